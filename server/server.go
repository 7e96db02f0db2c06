package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeu5/taxi-rl/session"
	"github.com/zeu5/taxi-rl/types"
)

type Config struct {
	Addr           string
	OutboundBuffer int
}

// Server accepts websocket connections and runs one session per connection
type Server struct {
	Addr   string
	ctx    context.Context
	server *http.Server
	router *gin.Engine

	logger      *slog.Logger
	metrics     *Metrics
	upgrader    websocket.Upgrader
	buffer      int
	sessionOpts []session.Option

	lock     *sync.Mutex
	sessions map[string]*conn
}

func NewServer(ctx context.Context, config Config, logger *slog.Logger, sessionOpts ...session.Option) *Server {
	registry := prometheus.NewRegistry()
	s := &Server{
		Addr:    config.Addr,
		ctx:     ctx,
		logger:  logger,
		metrics: NewMetrics(registry),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		buffer:      config.OutboundBuffer,
		sessionOpts: sessionOpts,
		lock:        new(sync.Mutex),
		sessions:    make(map[string]*conn),
	}
	if s.buffer <= 0 {
		s.buffer = 1024
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	r.GET("/", s.handleIndex)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	r.GET("/ws", s.handleWebsocket)
	s.router = r
	s.server = &http.Server{
		Addr:    config.Addr,
		Handler: r,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the server context is cancelled, then closes every session
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()
	s.logger.Info("server listening", slog.String("addr", s.Addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-s.ctx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.closeSessions()
	err := s.server.Shutdown(ctx)
	s.logger.Info("server stopped")
	return err
}

// Sessions is the number of connected sessions
func (s *Server) Sessions() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.sessions)
}

func (s *Server) closeSessions() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, c := range s.sessions {
		c.cancel()
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":     "taxi-rl",
		"status":   "running",
		"sessions": s.Sessions(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": s.Sessions(),
	})
}

func (s *Server) handleWebsocket(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	id := uuid.NewString()
	logger := s.logger.With(slog.String("session_id", id))
	conn := newConn(s.ctx, ws, s.buffer, logger, s.metrics)
	opts := append([]session.Option{session.WithLogger(s.logger)}, s.sessionOpts...)
	controller, err := session.NewController(conn.ctx, id, conn, opts...)
	if err != nil {
		logger.Error("creating session", slog.String("error", err.Error()))
		conn.cancel()
		ws.Close()
		return
	}

	s.lock.Lock()
	s.sessions[controller.ID()] = conn
	s.lock.Unlock()
	s.metrics.Sessions.Inc()
	logger.Info("client connected", slog.String("remote", c.Request.RemoteAddr))

	go conn.writeLoop()
	go conn.closeOnDone()

	conn.Emit(types.Event{
		Name: types.EventConnected,
		Data: types.ConnectedData{SessionID: controller.ID(), Message: "Connected to taxi server"},
	})
	s.readLoop(conn, controller)

	conn.cancel()
	controller.Close()
	s.lock.Lock()
	delete(s.sessions, controller.ID())
	s.lock.Unlock()
	s.metrics.Sessions.Dec()
	logger.Info("client disconnected")
}

func (s *Server) readLoop(conn *conn, controller *session.Controller) {
	for {
		_, msg, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}
		var cmd types.Command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			conn.Emit(types.Event{
				Name: types.EventError,
				Data: types.ErrorData{Message: "malformed message: " + err.Error()},
			})
			continue
		}
		s.metrics.command(cmd.Name)
		controller.Handle(conn.ctx, cmd)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
