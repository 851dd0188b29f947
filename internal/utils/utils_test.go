package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"print-bridge/internal/config"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewLoggerWritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bridge.log")
	logger, err := NewLogger(&config.LoggingConfig{Level: "debug", Format: "json", Output: path, MaxSize: 1})
	require.NoError(t, err)

	logger.Info("hello")
	require.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewLogger(&config.LoggingConfig{Level: "chatty", Output: "stdout"})
	assert.Error(t, err)
}

func TestJobLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	jl := NewJobLogger(zap.New(core), "job-1", "/dev/rfcomm0")

	jl.Started()
	jl.Failed(errors.New("paper out"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Print job failed", entries[1].Message)
	ctx := entries[1].ContextMap()
	assert.Equal(t, "job-1", ctx["job_id"])
	assert.Equal(t, "/dev/rfcomm0", ctx["device_id"])
	assert.Equal(t, "paper out", ctx["error"])
}

func TestLogAPIRequestLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sl := NewServiceLogger(zap.New(core), "http")

	sl.LogAPIRequest("GET", "/health", "127.0.0.1", "r1", http.StatusOK, 0)
	sl.LogAPIRequest("POST", "/api/v1/receipts/print", "127.0.0.1", "r2", http.StatusConflict, 0)
	sl.LogAPIRequest("POST", "/api/v1/receipts/print", "127.0.0.1", "r3", http.StatusBadGateway, 0)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestErrorResponseEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("request_id", "req-9")

	ErrorResponse(c, http.StatusGatewayTimeout, "Agent did not answer", errors.New("timeout"))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"code":"AGENT_TIMEOUT"`)
	assert.Contains(t, body, `"request_id":"req-9"`)
	assert.Contains(t, body, `"details":"timeout"`)
}

func TestValidationErrorResponseListsFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	ValidationErrorResponse(c, map[string]string{"limit": "must be between 1 and 500"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"code":"VALIDATION_ERROR"`)
	assert.Contains(t, body, `"limit":"must be between 1 and 500"`)
	assert.NotContains(t, body, "request_id")
}

func TestErrorResponseUnknownStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	ErrorResponse(c, http.StatusTeapot, "odd", nil)

	assert.Contains(t, w.Body.String(), `"code":"UNKNOWN_ERROR"`)
	assert.NotContains(t, w.Body.String(), "details")
}
