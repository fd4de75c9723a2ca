// Package config loads the application configuration from defaults, an
// optional YAML file and HOMEKEY_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/homekey/stage-tracker/internal/api"
	"github.com/homekey/stage-tracker/internal/cache"
	"github.com/homekey/stage-tracker/internal/store"
	"github.com/homekey/stage-tracker/internal/tracker"
	"github.com/homekey/stage-tracker/pkg/observability"
)

// Config holds the complete application configuration
type Config struct {
	API           api.Config           `mapstructure:"api"`
	Store         store.Config         `mapstructure:"store"`
	Cache         cache.Config         `mapstructure:"cache"`
	Tracker       tracker.Config       `mapstructure:"tracker"`
	Observability observability.Config `mapstructure:"observability"`
}

// Load loads configuration from file and environment variables. The file is
// named by HOMEKEY_CONFIG_FILE (default configs/config.yaml) and may be absent.
func Load() (*Config, error) {
	configFile := os.Getenv("HOMEKEY_CONFIG_FILE")
	if configFile == "" {
		configFile = "configs/config.yaml"
	}
	return LoadFile(configFile)
}

// LoadFile loads configuration from the given file and environment variables
func LoadFile(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configFile)

	// Read from environment variables prefixed with HOMEKEY_
	v.SetEnvPrefix("HOMEKEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is not required if environment variables are set
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the struct tag constraints of every section
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// API defaults
	apiDefaults := api.DefaultConfig()
	v.SetDefault("api.listen_address", apiDefaults.ListenAddress)
	v.SetDefault("api.read_timeout", apiDefaults.ReadTimeout)
	v.SetDefault("api.write_timeout", apiDefaults.WriteTimeout)
	v.SetDefault("api.idle_timeout", apiDefaults.IdleTimeout)
	v.SetDefault("api.shutdown_timeout", apiDefaults.ShutdownTimeout)
	v.SetDefault("api.enable_cors", apiDefaults.EnableCORS)
	v.SetDefault("api.cors_origins", apiDefaults.CORSOrigins)
	v.SetDefault("api.log_requests", apiDefaults.LogRequests)
	v.SetDefault("api.service_name", apiDefaults.ServiceName)

	// API rate limiting defaults
	v.SetDefault("api.rate_limit.enabled", apiDefaults.RateLimit.Enabled)
	v.SetDefault("api.rate_limit.limit", apiDefaults.RateLimit.Limit)
	v.SetDefault("api.rate_limit.burst", apiDefaults.RateLimit.Burst)
	v.SetDefault("api.rate_limit.expiration", apiDefaults.RateLimit.Expiration)

	// Store defaults
	storeDefaults := store.DefaultConfig()
	v.SetDefault("store.url", storeDefaults.URL)
	v.SetDefault("store.auth_collection", storeDefaults.AuthCollection)
	v.SetDefault("store.identity", "")
	v.SetDefault("store.password", "")
	v.SetDefault("store.timeout", storeDefaults.Timeout)
	v.SetDefault("store.page_size", storeDefaults.PageSize)
	v.SetDefault("store.auth_max_elapsed", storeDefaults.AuthMaxElapsed)
	v.SetDefault("store.token_refresh_margin", storeDefaults.TokenRefreshMargin)
	v.SetDefault("store.circuit_breaker.name", storeDefaults.CircuitBreaker.Name)
	v.SetDefault("store.circuit_breaker.max_requests", storeDefaults.CircuitBreaker.MaxRequests)
	v.SetDefault("store.circuit_breaker.interval", storeDefaults.CircuitBreaker.Interval)
	v.SetDefault("store.circuit_breaker.timeout", storeDefaults.CircuitBreaker.Timeout)
	v.SetDefault("store.circuit_breaker.failure_ratio", storeDefaults.CircuitBreaker.FailureRatio)
	v.SetDefault("store.circuit_breaker.min_requests", storeDefaults.CircuitBreaker.MinRequests)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.size", 64)
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.database", 0)
	v.SetDefault("cache.redis.key_prefix", "homekey:")
	v.SetDefault("cache.redis.max_retries", 3)
	v.SetDefault("cache.redis.dial_timeout", 5*time.Second)
	v.SetDefault("cache.redis.read_timeout", 3*time.Second)
	v.SetDefault("cache.redis.write_timeout", 3*time.Second)
	v.SetDefault("cache.redis.pool_size", 10)

	// Tracker defaults
	trackerDefaults := tracker.DefaultConfig()
	v.SetDefault("tracker.base_url", trackerDefaults.BaseURL)
	v.SetDefault("tracker.timeout", trackerDefaults.Timeout)
	v.SetDefault("tracker.default_type", trackerDefaults.DefaultType)

	// Observability defaults
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.namespace", "homekey")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.service_name", "homekey")
	v.SetDefault("observability.tracing.environment", "development")
	v.SetDefault("observability.tracing.endpoint", "")
}
