// Package resilience wraps sony/gobreaker with the defaults used for calls
// to external collaborators.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned when a call is rejected because the breaker is open
// or the half-open probe budget is exhausted.
var ErrOpen = errors.New("circuit breaker open")

// CircuitBreakerConfig holds configuration for circuit breakers
type CircuitBreakerConfig struct {
	Name         string        `mapstructure:"name"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio" validate:"gte=0,lte=1"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

// Options customise breaker behaviour beyond the static config
type Options struct {
	// IsSuccessful decides whether a returned error counts against the breaker.
	// Nil means every non-nil error is a failure.
	IsSuccessful func(err error) bool
	// OnStateChange is called on every transition
	OnStateChange func(name string, from, to gobreaker.State)
}

// withDefaults fills unset fields
func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = 5
	}
	if c.Interval == 0 {
		c.Interval = 30 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.FailureRatio == 0 {
		c.FailureRatio = 0.5
	}
	if c.MinRequests == 0 {
		c.MinRequests = 5
	}
	return c
}

// NewCircuitBreaker creates a breaker that trips once at least MinRequests
// calls were made in the interval and the failure ratio reaches FailureRatio.
func NewCircuitBreaker(config CircuitBreakerConfig, opts Options) *gobreaker.CircuitBreaker {
	config = config.withDefaults()

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureRatio
		},
		IsSuccessful:  opts.IsSuccessful,
		OnStateChange: opts.OnStateChange,
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// Execute runs fn through cb. Rejections by the breaker are reported as ErrOpen
// so callers do not need to import gobreaker. A cancelled context is checked
// before the call is admitted.
func Execute[T any](ctx context.Context, cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, ErrOpen
	}
	if err != nil {
		return zero, err
	}
	value, _ := result.(T)
	return value, nil
}
