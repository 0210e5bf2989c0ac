package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Playground PlaygroundConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// PlaygroundConfig holds run orchestration and sandbox configuration.
type PlaygroundConfig struct {
	// Origin stamps outbound run envelopes and gates inbound ones.
	Origin string `envconfig:"PLAYGROUND_ORIGIN" default:"playground://host"`
	// GracePeriod bounds a runner's observable lifetime after its payload.
	GracePeriod time.Duration `envconfig:"PLAYGROUND_GRACE_PERIOD" default:"200ms"`
	// ReadyTimeout is the fallback before transmitting without a ready signal.
	ReadyTimeout   time.Duration `envconfig:"PLAYGROUND_READY_TIMEOUT" default:"50ms"`
	MaxSourceBytes int           `envconfig:"PLAYGROUND_MAX_SOURCE_BYTES" default:"65536"`
	MaxConcurrent  int           `envconfig:"PLAYGROUND_MAX_CONCURRENT" default:"8"`
	MaxCallStack   int           `envconfig:"PLAYGROUND_MAX_CALL_STACK" default:"1024"`
	EventBuffer    int           `envconfig:"PLAYGROUND_EVENT_BUFFER" default:"256"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "0.0.0.0",
		},
		Playground: PlaygroundConfig{
			Origin:         "playground://host",
			GracePeriod:    200 * time.Millisecond,
			ReadyTimeout:   50 * time.Millisecond,
			MaxSourceBytes: 65536,
			MaxConcurrent:  8,
			MaxCallStack:   1024,
			EventBuffer:    256,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}
