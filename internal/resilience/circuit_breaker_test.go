package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cfg := CircuitBreakerConfig{}.withDefaults()
	assert.Equal(t, "default", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MaxRequests)
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 0.5, cfg.FailureRatio)
	assert.Equal(t, uint32(5), cfg.MinRequests)
}

func TestExecute_TripsAfterFailures(t *testing.T) {
	var transitions []gobreaker.State
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "store", MinRequests: 3, Timeout: time.Minute}, Options{
		OnStateChange: func(name string, from, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	})

	for i := 0; i < 3; i++ {
		_, err := Execute(context.Background(), cb, func() (int, error) { return 0, errBoom })
		assert.ErrorIs(t, err, errBoom)
	}

	_, err := Execute(context.Background(), cb, func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
}

func TestExecute_IsSuccessfulKeepsBreakerClosed(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MinRequests: 2}, Options{
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, errBoom) },
	})

	for i := 0; i < 5; i++ {
		_, err := Execute(context.Background(), cb, func() (string, error) { return "", errBoom })
		assert.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestExecute_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{}, Options{})
	got, err := Execute(context.Background(), cb, func() ([]byte, error) { return []byte("ok"), nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
}

func TestExecute_CancelledContext(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Execute(ctx, cb, func() (int, error) { called = true; return 0, nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
