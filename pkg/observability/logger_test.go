package observability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewZapLogger(zap.New(core), "test-service"), logs
}

func TestLogger_LogLevels(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.DebugLevel)

	logger.Debug("Debug message", map[string]interface{}{"key": "value"})
	logger.Info("Info message", map[string]interface{}{"key": "value"})
	logger.Warn("Warn message", map[string]interface{}{"key": "value"})
	logger.Error("Error message", nil)

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "Debug message", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "value", entries[1].ContextMap()["key"])
	assert.Equal(t, "test-service", entries[0].LoggerName)
}

func TestLogger_MinimumLevel(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.InfoLevel)

	logger.Debug("Debug message", nil)
	logger.Debugf("Debug %d", 1)
	logger.Info("Info message", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Info message", logs.All()[0].Message)
}

func TestLogger_WithFieldsAndPrefix(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.DebugLevel)

	logger.With(map[string]interface{}{"request_id": "abc"}).Infof("handled %s", "GET")
	logger.WithPrefix("store").Error("boom", map[string]interface{}{"error": errors.New("unreachable")})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "handled GET", entries[0].Message)
	assert.Equal(t, "abc", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "test-service.store", entries[1].LoggerName)
	assert.Equal(t, "unreachable", entries[1].ContextMap()["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNoopLogger(t *testing.T) {
	logger := NewNoopLogger()
	assert.NotPanics(t, func() {
		logger.Info("ignored", map[string]interface{}{"k": 1})
		logger.WithPrefix("x").With(nil).Errorf("ignored %d", 2)
	})
}
