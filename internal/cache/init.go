package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a key is not found in the cache
var ErrNotFound = errors.New("key not found in cache")

// Config selects and configures the cache backend
type Config struct {
	// Type is "memory", "redis" or "none"
	Type string        `mapstructure:"type" validate:"omitempty,oneof=memory redis none"`
	TTL  time.Duration `mapstructure:"ttl"`
	// Size bounds the number of entries of the memory backend
	Size  int         `mapstructure:"size" validate:"gte=0"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

// NewCache creates the cache backend named by cfg.Type. "none" and "" give a
// cache that never stores anything.
func NewCache(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Type {
	case "", "none":
		return NoopCache{}, nil
	case "memory":
		return NewMemoryCache(cfg.Size, cfg.TTL), nil
	case "redis":
		return NewRedisCache(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
