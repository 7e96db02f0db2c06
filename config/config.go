package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zeu5/taxi-rl/policies"
	"github.com/zeu5/taxi-rl/types"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// OutboundBuffer is the number of events queued per connection before it is dropped
	OutboundBuffer int `yaml:"outbound_buffer"`
}

type AgentConfig struct {
	policies.Params `yaml:",inline"`
	Seed            uint64 `yaml:"seed"`
}

type TrainingConfig struct {
	// MaxEpisodeSteps ends an unfinished episode after that many steps, 0 disables the limit
	MaxEpisodeSteps int `yaml:"max_episode_steps"`
}

type StoreConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
	Dir           string `yaml:"dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Agent    AgentConfig    `yaml:"agent"`
	Training TrainingConfig `yaml:"training"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":5000",
			OutboundBuffer: 1024,
		},
		Agent: AgentConfig{
			Params: policies.DefaultParams(),
		},
		Store: StoreConfig{
			KeyPrefix: "taxi:qtable:",
			Dir:       "./qtables",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the config from the defaults, the YAML file at path if not empty,
// a .env file in the working directory if present and finally TAXI_* variables.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		bs, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(bs, c); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TAXI_ADDR":           &c.Server.Addr,
		"TAXI_REDIS_ADDR":     &c.Store.RedisAddr,
		"TAXI_REDIS_PASSWORD": &c.Store.RedisPassword,
		"TAXI_STORE_DIR":      &c.Store.Dir,
		"TAXI_LOG_LEVEL":      &c.Logging.Level,
	}
	for key, field := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*field = v
		}
	}
	if v, ok := os.LookupEnv("TAXI_MAX_EPISODE_STEPS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return types.NewConfigError("TAXI_MAX_EPISODE_STEPS must be an integer, got %q", v)
		}
		c.Training.MaxEpisodeSteps = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return types.NewConfigError("server.addr is required")
	}
	if c.Server.OutboundBuffer <= 0 {
		return types.NewConfigError("server.outbound_buffer must be positive, got %d", c.Server.OutboundBuffer)
	}
	if err := c.Agent.Params.Validate(); err != nil {
		return err
	}
	if c.Training.MaxEpisodeSteps < 0 {
		return types.NewConfigError("training.max_episode_steps must be zero or positive, got %d", c.Training.MaxEpisodeSteps)
	}
	if c.Store.RedisAddr == "" && c.Store.Dir == "" {
		return types.NewConfigError("one of store.redis_addr or store.dir is required")
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return types.NewConfigError("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(l.Level))); err != nil {
		return level, types.NewConfigError("logging.level must be debug, info, warn or error, got %q", l.Level)
	}
	return level, nil
}

// Logger builds the logger described by the config, writing to w
func (l LoggingConfig) Logger(w io.Writer) *slog.Logger {
	level, _ := l.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
