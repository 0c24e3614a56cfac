package logging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"Warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for input, want := range tests {
		assert.Equal(t, want, parseLevel(input), input)
	}
}

func TestNewLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refine.log")
	logger, err := NewLogger(&Config{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", zap.Int("generation", 3))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry), "exactly one json line")
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, 3.0, entry["generation"])
}

func TestNewLoggerDefaults(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	logger := zap.NewExample()
	assert.Same(t, logger, FromContext(WithContext(context.Background(), logger)))
}

func TestMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var scoped *zap.Logger
	handler := Middleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scoped = FromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/status/missing", nil))

	require.NotNil(t, scoped)
	require.Equal(t, 2, logs.Len())
	completed := logs.All()[1]
	assert.Equal(t, "Request completed", completed.Message)
	fields := completed.ContextMap()
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.Equal(t, "/api/v1/status/missing", fields["path"])
	assert.Equal(t, "Not Found", fields["error"])
}
