package logger_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"staticnotes/pkg/logger"
)

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "invalid", ""} {
		t.Run("development level="+level, func(t *testing.T) {
			log, err := logger.NewLogger(logger.Development, level)
			require.NoError(t, err)
			require.NotNil(t, log)
		})
		t.Run("production level="+level, func(t *testing.T) {
			log, err := logger.NewLogger(logger.Production, level)
			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	assert.Equal(t, logger.Production, logger.ParseEnvironment("production"))
	assert.Equal(t, logger.Production, logger.ParseEnvironment(" PRODUCTION "))
	assert.Equal(t, logger.Development, logger.ParseEnvironment("development"))
	assert.Equal(t, logger.Development, logger.ParseEnvironment(""))
}

func TestFromContext(t *testing.T) {
	t.Run("success when logger exists in context", func(t *testing.T) {
		testLogger, err := logger.NewLogger(logger.Development, "debug")
		require.NoError(t, err)

		ctx := logger.NewContext(context.Background(), testLogger)

		got, err := logger.FromContext(ctx)
		require.NoError(t, err)
		assert.Same(t, testLogger, got)
	})

	t.Run("error when no logger in context", func(t *testing.T) {
		got, err := logger.FromContext(context.Background())
		require.Error(t, err)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, logger.ErrLoggerNotFound)
	})

	t.Run("success with derived context", func(t *testing.T) {
		testLogger := logger.NewNop()

		type ctxKeyType struct{}
		ctx := logger.NewContext(context.Background(), testLogger)
		derived := context.WithValue(ctx, ctxKeyType{}, "some-value")

		got, err := logger.FromContext(derived)
		require.NoError(t, err)
		assert.Same(t, testLogger, got)
	})
}

func TestLog(t *testing.T) {
	t.Cleanup(func() { logger.SetGlobalLogger(nil) })

	t.Run("fallback when nothing is configured", func(t *testing.T) {
		logger.SetGlobalLogger(nil)
		assert.NotNil(t, logger.Log(context.Background()))
	})

	t.Run("global logger is returned", func(t *testing.T) {
		global := logger.NewNop()
		logger.SetGlobalLogger(global)
		assert.Same(t, global, logger.Log(context.Background()))
	})

	t.Run("context logger wins over global", func(t *testing.T) {
		global := logger.NewNop()
		local := logger.NewNop()
		logger.SetGlobalLogger(global)

		ctx := logger.NewContext(context.Background(), local)
		assert.Same(t, local, logger.Log(ctx))
	})

	t.Run("init keeps the first global logger", func(t *testing.T) {
		logger.SetGlobalLogger(nil)
		require.NoError(t, logger.InitGlobalLoggerWithLevel(logger.Production, "info"))
		first := logger.Log(context.Background())

		require.NoError(t, logger.InitGlobalLoggerWithLevel(logger.Development, "debug"))
		assert.Same(t, first, logger.Log(context.Background()))
	})
}

func TestRequestID(t *testing.T) {
	t.Run("explicit id is kept", func(t *testing.T) {
		ctx := logger.NewRequestIDContext(context.Background(), "req-1")
		id, ok := logger.GetRequestID(ctx)
		assert.True(t, ok)
		assert.Equal(t, "req-1", id)
	})

	t.Run("empty id is generated", func(t *testing.T) {
		ctx := logger.NewRequestIDContext(context.Background(), "")
		id, ok := logger.GetRequestID(ctx)
		assert.True(t, ok)
		assert.Len(t, id, 36)
	})

	t.Run("unusable inbound ids are replaced", func(t *testing.T) {
		for _, raw := range []string{"   ", "bad id", "id\r\nSet-Cookie: x", strings.Repeat("a", 129)} {
			ctx := logger.NewRequestIDContext(context.Background(), raw)
			id, ok := logger.GetRequestID(ctx)
			assert.True(t, ok)
			assert.Len(t, id, 36, "%q", raw)
		}
	})

	t.Run("surrounding spaces are trimmed", func(t *testing.T) {
		ctx := logger.NewRequestIDContext(context.Background(), "  req-1\t")
		id, _ := logger.GetRequestID(ctx)
		assert.Equal(t, "req-1", id)
	})

	t.Run("WithRequestID returns a new logger only when id exists", func(t *testing.T) {
		log := logger.NewNop()

		assert.Same(t, log, log.WithRequestID(context.Background()))

		ctx := logger.NewRequestIDContext(context.Background(), "req-2")
		assert.NotSame(t, log, log.WithRequestID(ctx))
	})
}

func TestLoggerMethods(t *testing.T) {
	log, err := logger.NewLogger(logger.Development, "debug")
	require.NoError(t, err)

	ctx := logger.NewRequestIDContext(context.Background(), "req-3")
	withField := log.With(zap.String("key", "value"))
	assert.NotSame(t, log, withField)

	assert.NotPanics(t, func() {
		withField.Debug(ctx, "debug message", zap.Int("count", 1))
		withField.Info(ctx, "info message")
		withField.Warn(context.Background(), "warn message")
		withField.Error(context.Background(), "error message")
		_ = withField.Sync()
	})
}
