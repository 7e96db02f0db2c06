package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/zeu5/taxi-rl/config"
	"github.com/zeu5/taxi-rl/store"
)

var (
	configPath string
	logLevel   string
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:          "taxi-rl",
		Short:        "Interactive Q-learning on the taxi grid world",
		SilenceUsage: true,
	}
	rootCommand.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides the config")

	rootCommand.AddCommand(ServeCommand())
	rootCommand.AddCommand(TrainCommand())
	rootCommand.AddCommand(TablesCommand())
	return rootCommand
}

// loadConfig reads the configuration and installs the logger it describes
func loadConfig() (*config.Config, *slog.Logger, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
		if err := c.Validate(); err != nil {
			return nil, nil, err
		}
	}
	logger := c.Logging.Logger(os.Stderr)
	slog.SetDefault(logger)
	return c, logger, nil
}

// openStore connects to redis when an address is configured, otherwise uses the directory
func openStore(ctx context.Context, c *config.Config, logger *slog.Logger) (store.Store, error) {
	if c.Store.RedisAddr == "" {
		logger.Debug("using file table store", slog.String("dir", c.Store.Dir))
		return store.NewFileStore(c.Store.Dir)
	}
	rs := store.NewRedisStore(store.RedisConfig{
		Addr:     c.Store.RedisAddr,
		Password: c.Store.RedisPassword,
		DB:       c.Store.RedisDB,
		Prefix:   c.Store.KeyPrefix,
	})
	if err := rs.Ping(ctx); err != nil {
		rs.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", c.Store.RedisAddr, err)
	}
	logger.Debug("using redis table store", slog.String("addr", c.Store.RedisAddr))
	return rs, nil
}
