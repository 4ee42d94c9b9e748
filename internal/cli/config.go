package cli

import (
	"os"
	"time"
)

// Config holds CLI configuration
type Config struct {
	Server   string
	AdminURL string
	Output   string
	Timeout  time.Duration
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Server:   getEnvOrDefault("WISHLIST_SERVER", "localhost:7777"),
		AdminURL: getEnvOrDefault("WISHLIST_ADMIN", "http://localhost:8081"),
		Output:   "text",
		Timeout:  10 * time.Second,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
