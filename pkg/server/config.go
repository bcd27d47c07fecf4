package server

import "time"

// Config holds server configuration settings
type Config struct {
	Host            string        // Bind host for the TCP command listener
	Port            int           // Bind port for the TCP command listener
	EnableAdmin     bool          // Enable the HTTP admin surface
	AdminPort       int           // Bind port for the HTTP admin surface
	MaxCommandSize  int           // Maximum size of a single command line in bytes
	ShutdownTimeout time.Duration // How long to wait for graceful shutdown
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            6380,
		EnableAdmin:     true,
		AdminPort:       8080,
		MaxCommandSize:  1024 * 1024, // 1MB per command line
		ShutdownTimeout: 30 * time.Second,
	}
}
