package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogger(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	orig := NewLogger
	NewLogger = func() (*zap.Logger, error) {
		return zap.New(core), nil
	}
	t.Cleanup(func() { NewLogger = orig })
	return logs
}

func TestNewLogger(t *testing.T) {
	// Make sure it returns a logger
	l, err := NewDefaultLogger()
	assert.NoError(t, err)
	assert.NotNil(t, l)
	assert.NotNil(t, LogLevel)
}

func TestGetLoggerDefault(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))
}

func TestWithLogger(t *testing.T) {
	l := zap.NewExample()
	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, GetLogger(ctx))
}

func TestLoggerMiddleware(t *testing.T) {
	logs := observeLogger(t)

	var inner *zap.Logger
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = GetLogger(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/brew", nil)
	handler.ServeHTTP(w, req)

	assert.NotNil(t, inner)
	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
		assert.EqualValues(t, http.StatusTeapot, entries[0].ContextMap()["http.status_code"])
		assert.Equal(t, http.MethodGet, entries[0].ContextMap()["http.method"])
	}
}

func TestLoggerMiddlewareServerError(t *testing.T) {
	logs := observeLogger(t)

	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}
