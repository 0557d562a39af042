package config

import "fmt"

const (
	// DefaultListenAddr serves the HTTP/WebSocket data plane.
	DefaultListenAddr = "127.0.0.1:8090"
	// DefaultHealthAddr serves the gRPC health endpoint for supervisors.
	DefaultHealthAddr = "127.0.0.1:50051"
	DefaultModel      = "base"
	DefaultLanguage   = "en"
	DefaultLogLevel   = "info"
	DefaultDataDir    = "data"
)

// Config captures bootstrap configuration extracted from environment
// variables or an injected JSON payload (`BRIDGE_CONFIG`).
type Config struct {
	ListenAddr    string
	HealthAddr    string
	ModelVariant  string
	Language      string
	LogLevel      string
	DataDir       string
	ModelPath     string
	UseStubEngine bool
	UseGPU        *bool
	Threads       *int
}

// Validate applies defaults, checks required fields, and rejects
// out-of-range values.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.HealthAddr == "" {
		c.HealthAddr = DefaultHealthAddr
	}
	if c.ModelVariant == "" {
		c.ModelVariant = DefaultModel
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Threads != nil && *c.Threads < 0 {
		return fmt.Errorf("config: threads must be >= 0, got %d", *c.Threads)
	}
	return nil
}
