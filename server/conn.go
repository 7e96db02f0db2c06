package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeu5/taxi-rl/types"
)

const writeTimeout = 10 * time.Second

// conn queues the events of one session and writes them to its websocket.
// Emit never blocks, a client that cannot keep up is disconnected.
type conn struct {
	ws      *websocket.Conn
	out     chan types.Event
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	metrics *Metrics
}

func newConn(ctx context.Context, ws *websocket.Conn, buffer int, logger *slog.Logger, metrics *Metrics) *conn {
	ctx, cancel := context.WithCancel(ctx)
	return &conn{
		ws:      ws,
		out:     make(chan types.Event, buffer),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		metrics: metrics,
	}
}

func (c *conn) Emit(e types.Event) {
	if c.ctx.Err() != nil {
		return
	}
	select {
	case c.out <- e:
		c.metrics.Events.WithLabelValues(e.Name).Inc()
	default:
		c.logger.Warn("outbound queue full, closing connection")
		c.metrics.Dropped.Inc()
		c.cancel()
	}
}

func (c *conn) writeLoop() {
	defer c.cancel()
	for {
		select {
		case <-c.ctx.Done():
			return
		case e := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteJSON(e); err != nil {
				c.logger.Debug("write failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// closeOnDone unblocks the reader once the connection is cancelled
func (c *conn) closeOnDone() {
	<-c.ctx.Done()
	c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.ws.Close()
}
