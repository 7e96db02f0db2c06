package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/taxi-rl/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taxi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, ":5000", c.Server.Addr)
	assert.Equal(t, 0.9, c.Agent.Gamma)
	assert.Zero(t, c.Training.MaxEpisodeSteps)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
agent:
  gamma: 0.95
  epsilon: 0.2
  seed: 42
training:
  max_episode_steps: 200
store:
  redis_addr: "localhost:6379"
logging:
  level: debug
  format: json
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, 1024, c.Server.OutboundBuffer)
	assert.Equal(t, 0.95, c.Agent.Gamma)
	assert.Equal(t, 0.1, c.Agent.Alpha)
	assert.Equal(t, 0.2, c.Agent.Epsilon)
	assert.Equal(t, uint64(42), c.Agent.Seed)
	assert.Equal(t, 200, c.Training.MaxEpisodeSteps)
	assert.Equal(t, "localhost:6379", c.Store.RedisAddr)
	assert.Equal(t, "taxi:qtable:", c.Store.KeyPrefix)

	level, err := c.Logging.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TAXI_ADDR", ":9000")
	t.Setenv("TAXI_STORE_DIR", "/tmp/tables")
	t.Setenv("TAXI_MAX_EPISODE_STEPS", "50")
	t.Setenv("TAXI_LOG_LEVEL", "WARN")

	c, err := Load(writeConfig(t, "server:\n  addr: \":8080\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, "/tmp/tables", c.Store.Dir)
	assert.Equal(t, 50, c.Training.MaxEpisodeSteps)
	level, err := c.Logging.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	t.Setenv("TAXI_MAX_EPISODE_STEPS", "many")
	_, err = Load("")
	var cfgErr *types.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"empty addr":     func(c *Config) { c.Server.Addr = "" },
		"zero buffer":    func(c *Config) { c.Server.OutboundBuffer = 0 },
		"alpha too big":  func(c *Config) { c.Agent.Alpha = 1.5 },
		"negative steps": func(c *Config) { c.Training.MaxEpisodeSteps = -1 },
		"no store":       func(c *Config) { c.Store.Dir = "" },
		"bad level":      func(c *Config) { c.Logging.Level = "loud" },
		"bad format":     func(c *Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			var cfgErr *types.ConfigError
			assert.True(t, errors.As(c.Validate(), &cfgErr))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
