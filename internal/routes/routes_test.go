package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/customs/internal/auth"
	"github.com/BradenHooton/customs/internal/customs"
	"github.com/BradenHooton/customs/internal/handlers"
	"github.com/BradenHooton/customs/internal/limits"
	"github.com/BradenHooton/customs/internal/middleware"
	"github.com/BradenHooton/customs/internal/observability/metrics"
	"github.com/BradenHooton/customs/internal/repositories"
	"github.com/BradenHooton/customs/internal/services"
	pkghttp "github.com/BradenHooton/customs/pkg/http"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "routes-test-secret-0123456789abcdef"

type testServer struct {
	router http.Handler
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	keys, err := services.NewKeyBuilder("customs", "routes-test-hash-key")
	require.NoError(t, err)

	holder := limits.NewHolder(limits.Default(), logger)
	customsService := services.NewCustomsService(
		repositories.NewRedisRecordRepository(client),
		holder,
		keys,
		customs.NewFactory(time.Now),
		nil,
		services.CustomsConfig{},
		logger,
	)
	reg := prometheus.NewRegistry()
	customsService.SetMetrics(metrics.New(reg, metrics.Config{Environment: "test"}))
	limitsService := services.NewLimitsService(holder, repositories.NewRedisLimitsRepository(client, keys.LimitsKey()), logger)
	tokens := auth.NewTokenManager(testSecret, time.Hour)

	router := chi.NewRouter()
	RegisterRoutes(router,
		handlers.NewCustomsHandler(customsService, &pkghttp.IPConfig{}, logger),
		handlers.NewAdminHandler(customsService, limitsService, logger),
		tokens,
		middleware.RateLimitConfig{RequestsPerMinute: 1000},
		middleware.RateLimitConfig{RequestsPerMinute: 1000},
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)

	return &testServer{router: router, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.20:51000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsExposeDecisions(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/check", "", map[string]any{"email": "user@example.com", "action": "accountLogin"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `customs_decisions_total{endpoint="check",env="test"`)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	paths := []struct{ method, path string }{
		{"POST", "/blockEmail"},
		{"POST", "/blockIp"},
		{"POST", "/suspectEmail"},
		{"POST", "/disableEmail"},
		{"GET", "/records/email/user@example.com"},
		{"GET", "/limits"},
		{"PUT", "/limits"},
	}
	for _, p := range paths {
		w := s.do(t, p.method, p.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, p.path)
	}

	forged, err := auth.NewTokenManager("some-other-secret-0123456789abcd", time.Hour).GenerateAdminToken("mallory", 0)
	require.NoError(t, err)
	w := s.do(t, "GET", "/limits", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBlockedEmailIsRefusedByCheck(t *testing.T) {
	s := newTestServer(t)
	token, err := s.tokens.GenerateAdminToken("ops", 0)
	require.NoError(t, err)

	w := s.do(t, "POST", "/check", "", map[string]any{"email": "victim@example.com", "action": "accountLogin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"block":false`)

	w = s.do(t, "POST", "/blockEmail", token, map[string]any{"email": "Victim@Example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "POST", "/check", "", map[string]any{"email": "victim@example.com", "action": "accountLogin"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["block"])
	assert.Equal(t, "other", resp["blockReason"])
	assert.Greater(t, resp["retryAfter"], float64(0))

	w = s.do(t, "GET", "/records/email/victim@example.com", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bk":`)
}

func TestBlockedIPIsRefusedByCheckIPOnly(t *testing.T) {
	s := newTestServer(t)
	token, err := s.tokens.GenerateAdminToken("ops", 0)
	require.NoError(t, err)

	w := s.do(t, "POST", "/blockIp", token, map[string]any{"ip": "203.0.113.20"})
	require.Equal(t, http.StatusOK, w.Code)

	// No ip in the body: the connection address is used
	w = s.do(t, "POST", "/checkIpOnly", "", map[string]any{"action": "accountStatusCheck"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"block":true`)
}

func TestLimitsRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token, err := s.tokens.GenerateAdminToken("ops", 0)
	require.NoError(t, err)

	w := s.do(t, "PUT", "/limits", token, map[string]any{"maxEmails": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "GET", "/limits", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, float64(1), got["maxEmails"])

	// With maxEmails at 1 the second email send is over the limit
	body := map[string]any{"email": "spam@example.com", "action": "accountCreate"}
	assert.Contains(t, s.do(t, "POST", "/check", "", body).Body.String(), `"block":false`)
	assert.Contains(t, s.do(t, "POST", "/check", "", body).Body.String(), `"block":true`)
}
