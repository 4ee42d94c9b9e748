package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/mcoot/wishlist/internal/config"
)

// isolate keeps the user's own wishlist.yaml out of the test
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wishlist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("server.port", 7777, "")
	cmd.Flags().String("storage.type", config.StorageMemory, "")
	return cmd
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	c, err := config.Load(nil, "")
	require.NoError(t, err)

	assert.Equal(t, "localhost", c.Server.Host)
	assert.Equal(t, 7777, c.Server.Port)
	assert.Equal(t, 1024, c.Server.BufferSize)
	assert.Equal(t, 0, c.Admin.Port)
	assert.Equal(t, config.StorageMemory, c.Storage.Type)
	assert.Equal(t, bcrypt.DefaultCost, c.Auth.BcryptCost)
	assert.Equal(t, "info", c.Log.Level)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, `
server:
  port: 9000
storage:
  type: redis
  redis_url: redis://cache:6379/2
log:
  level: debug
`)

	c, err := config.Load(nil, path)
	require.NoError(t, err)

	assert.Equal(t, 9000, c.Server.Port)
	assert.Equal(t, "localhost", c.Server.Host)
	assert.Equal(t, config.StorageRedis, c.Storage.Type)
	assert.Equal(t, "redis://cache:6379/2", c.Storage.RedisURL)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadFileInWorkingDirectory(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("wishlist.yaml", []byte("admin:\n  port: 8081\n"), 0o600))

	c, err := config.Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 8081, c.Admin.Port)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := config.Load(nil, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, "server:\n  port: 9000\n")
	t.Setenv("WISHLIST_SERVER_PORT", "9100")
	t.Setenv("WISHLIST_AUTH_BCRYPT_COST", "4")

	c, err := config.Load(nil, path)
	require.NoError(t, err)

	assert.Equal(t, 9100, c.Server.Port)
	assert.Equal(t, 4, c.Auth.BcryptCost)
}

func TestFlagOverridesEnv(t *testing.T) {
	isolate(t)
	t.Setenv("WISHLIST_SERVER_PORT", "9100")
	cmd := newCmd()
	require.NoError(t, cmd.Flags().Set("server.port", "9200"))

	c, err := config.Load(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, 9200, c.Server.Port)
}

func TestUnchangedFlagDoesNotOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("WISHLIST_STORAGE_TYPE", "redis")

	c, err := config.Load(newCmd(), "")
	require.NoError(t, err)
	assert.Equal(t, config.StorageRedis, c.Storage.Type)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Server:  config.ServerConfig{Host: "localhost", Port: 7777, BufferSize: 1024},
			Storage: config.StorageConfig{Type: config.StorageMemory},
			Auth:    config.AuthConfig{BcryptCost: bcrypt.MinCost},
			Log:     config.LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"port too large", func(c *config.Config) { c.Server.Port = 70000 }},
		{"zero buffer", func(c *config.Config) { c.Server.BufferSize = 0 }},
		{"negative admin port", func(c *config.Config) { c.Admin.Port = -1 }},
		{"unknown storage", func(c *config.Config) { c.Storage.Type = "postgres" }},
		{"redis without url", func(c *config.Config) { c.Storage.Type = config.StorageRedis }},
		{"bcrypt cost too low", func(c *config.Config) { c.Auth.BcryptCost = 1 }},
		{"bad log level", func(c *config.Config) { c.Log.Level = "loud" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestSlogLevel(t *testing.T) {
	level, err := config.LogConfig{Level: "warn"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = config.LogConfig{Level: "DEBUG"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestYAMLRoundTrip(t *testing.T) {
	isolate(t)
	c, err := config.Load(nil, "")
	require.NoError(t, err)

	out, err := c.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "buffer_size: 1024")

	reloaded, err := config.Load(nil, writeFile(t, string(out)))
	require.NoError(t, err)
	assert.Equal(t, c, reloaded)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(out, &raw))
	assert.ElementsMatch(t, []string{"server", "admin", "storage", "auth", "log"}, keys(raw))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
