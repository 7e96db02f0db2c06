package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zeu5/taxi-rl/server"
	"github.com/zeu5/taxi-rl/session"
	"github.com/zeu5/taxi-rl/training"
	"golang.org/x/sync/errgroup"
)

func ServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve training sessions over websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				c.Server.Addr = addr
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			st, err := openStore(ctx, c, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			g, gctx := errgroup.WithContext(ctx)
			srv := server.NewServer(gctx, server.Config{
				Addr:           c.Server.Addr,
				OutboundBuffer: c.Server.OutboundBuffer,
			}, logger,
				session.WithAgent(c.Agent.Params, c.Agent.Seed),
				session.WithStore(st),
				session.WithTrainingOptions(training.WithMaxSteps(c.Training.MaxEpisodeSteps)),
			)

			g.Go(srv.Run)
			g.Go(func() error {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
				defer signal.Stop(sigCh)
				select {
				case sig := <-sigCh:
					logger.Info("shutting down", slog.String("signal", sig.String()))
					cancel()
				case <-gctx.Done():
				}
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address, overrides the config")
	return cmd
}
