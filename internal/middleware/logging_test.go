package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureLogger_RedactsSensitiveQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := SecureLogger(logger)(okHandler())

	req := httptest.NewRequest("GET", "/records/email/x?email=user@example.com", nil)
	req.RemoteAddr = "203.0.113.77:5555"
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "/records/email/x?[REDACTED]", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.NotContains(t, buf.String(), "user@example.com")
	assert.NotContains(t, buf.String(), "203.0.113.77")
}
