package server

// Config holds configuration for the TCP server
type Config struct {
	Host string
	Port int
	// BufferSize caps how many bytes one read takes; one read is one command
	BufferSize int
}

// DefaultConfig returns the default server configuration
func DefaultConfig() Config {
	return Config{
		Host:       "localhost",
		Port:       7777,
		BufferSize: 1024,
	}
}
