package api

import (
	"time"
)

// Config holds configuration for the API server
type Config struct {
	ListenAddress   string          `mapstructure:"listen_address" validate:"required"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration   `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	EnableCORS      bool            `mapstructure:"enable_cors"`
	CORSOrigins     []string        `mapstructure:"cors_origins"`
	LogRequests     bool            `mapstructure:"log_requests"`
	ServiceName     string          `mapstructure:"service_name"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Limit is the sustained number of requests per second per client
	Limit      float64       `mapstructure:"limit" validate:"gte=0"`
	Burst      int           `mapstructure:"burst" validate:"gte=0"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		ListenAddress:   ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     90 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		EnableCORS:      true,
		CORSOrigins:     []string{"http://localhost:3000"},
		LogRequests:     true,
		ServiceName:     "homekey-api",
		RateLimit: RateLimitConfig{
			Enabled:    false,
			Limit:      50,
			Burst:      100,
			Expiration: time.Hour,
		},
	}
}
