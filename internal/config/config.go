// Package config loads server configuration from defaults, an optional
// wishlist.yaml, WISHLIST_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable override
const EnvPrefix = "wishlist"

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config is the full server configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Admin   AdminConfig   `mapstructure:"admin" yaml:"admin"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ServerConfig configures the TCP listener
type ServerConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	BufferSize int    `mapstructure:"buffer_size" yaml:"buffer_size"`
}

// AdminConfig configures the admin HTTP listener. Port 0 disables it.
type AdminConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// StorageConfig selects the storage backend
type StorageConfig struct {
	Type     string `mapstructure:"type" yaml:"type"`
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
}

// AuthConfig configures password hashing
type AuthConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Defaults returns the default value for every configuration key
func Defaults() map[string]any {
	return map[string]any{
		"server.host":        "localhost",
		"server.port":        7777,
		"server.buffer_size": 1024,
		"admin.host":         "localhost",
		"admin.port":         0,
		"storage.type":       StorageMemory,
		"storage.redis_url":  "redis://localhost:6379/0",
		"auth.bcrypt_cost":   bcrypt.DefaultCost,
		"log.level":          "info",
	}
}

// Load builds a Config. Flags on cmd whose names match configuration keys
// take precedence over the environment, which takes precedence over the
// config file. An explicit configFile must exist; otherwise wishlist.yaml
// is searched for in the user config directory and the working directory.
func Load(cmd *cobra.Command, configFile string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("wishlist")
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "wishlist"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate reports the first invalid setting
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.BufferSize <= 0 {
		return fmt.Errorf("server.buffer_size must be positive, got %d", c.Server.BufferSize)
	}
	if c.Admin.Port < 0 || c.Admin.Port > 65535 {
		return fmt.Errorf("admin.port %d out of range", c.Admin.Port)
	}
	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("storage.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage.type %q", c.Storage.Type)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses the configured level name
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// YAML renders the configuration as it would appear in wishlist.yaml
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
