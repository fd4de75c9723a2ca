package store

import (
	"time"

	"github.com/homekey/stage-tracker/internal/resilience"
)

// Config holds the connection settings for the record store
type Config struct {
	// URL is the store's base address, e.g. http://127.0.0.1:8090
	URL string `mapstructure:"url" validate:"required,url"`
	// AuthCollection is the auth collection used for password authentication.
	// Seeding uses "_superusers".
	AuthCollection string `mapstructure:"auth_collection"`
	Identity       string `mapstructure:"identity"`
	Password       string `mapstructure:"password"`

	Timeout  time.Duration `mapstructure:"timeout"`
	PageSize int           `mapstructure:"page_size" validate:"gte=0,lte=1000"`

	// AuthMaxElapsed bounds the retries of the initial authentication
	AuthMaxElapsed time.Duration `mapstructure:"auth_max_elapsed"`
	// TokenRefreshMargin re-authenticates this long before the token expires
	TokenRefreshMargin time.Duration `mapstructure:"token_refresh_margin"`

	CircuitBreaker resilience.CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// DefaultConfig returns a Config pointing at a local store
func DefaultConfig() Config {
	return Config{
		URL:                "http://127.0.0.1:8090",
		AuthCollection:     "users",
		Timeout:            10 * time.Second,
		PageSize:           500,
		AuthMaxElapsed:     30 * time.Second,
		TokenRefreshMargin: time.Minute,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Name:         "store",
			MaxRequests:  3,
			Interval:     30 * time.Second,
			Timeout:      15 * time.Second,
			FailureRatio: 0.5,
			MinRequests:  5,
		},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AuthCollection == "" {
		c.AuthCollection = d.AuthCollection
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.PageSize == 0 {
		c.PageSize = d.PageSize
	}
	if c.AuthMaxElapsed == 0 {
		c.AuthMaxElapsed = d.AuthMaxElapsed
	}
	if c.TokenRefreshMargin == 0 {
		c.TokenRefreshMargin = d.TokenRefreshMargin
	}
	if c.CircuitBreaker.Name == "" {
		c.CircuitBreaker.Name = d.CircuitBreaker.Name
	}
	return c
}
