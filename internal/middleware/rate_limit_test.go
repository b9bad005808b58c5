package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/customs/internal/auth"
	"github.com/BradenHooton/customs/internal/models"
	pkghttp "github.com/BradenHooton/customs/pkg/http"
	"github.com/stretchr/testify/assert"
)

func serve(h http.Handler, remote string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/check", nil)
	req.RemoteAddr = remote
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimitByIP(t *testing.T) {
	h := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 2})(okHandler())

	assert.Equal(t, http.StatusOK, serve(h, "198.51.100.1:1000", nil).Code)
	assert.Equal(t, http.StatusOK, serve(h, "198.51.100.1:1001", nil).Code)

	w := serve(h, "198.51.100.1:1002", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	// A different address has its own budget
	assert.Equal(t, http.StatusOK, serve(h, "198.51.100.2:1000", nil).Code)
}

func TestRateLimitByIP_IgnoresUntrustedForwardedFor(t *testing.T) {
	h := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1})(okHandler())
	spoof := func(ip string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("X-Forwarded-For", ip) }
	}

	assert.Equal(t, http.StatusOK, serve(h, "198.51.100.9:1000", spoof("10.0.0.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "198.51.100.9:1000", spoof("10.0.0.2")).Code)
}

func TestRateLimitByIP_TrustedProxy(t *testing.T) {
	cfg := RateLimitConfig{
		RequestsPerMinute: 1,
		IPConfig:          &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}},
	}
	h := RateLimitByIP(cfg)(okHandler())
	forwarded := func(ip string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("X-Forwarded-For", ip) }
	}

	assert.Equal(t, http.StatusOK, serve(h, "10.1.1.1:1000", forwarded("203.0.113.1")).Code)
	assert.Equal(t, http.StatusOK, serve(h, "10.1.1.1:1000", forwarded("203.0.113.2")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "10.1.1.1:1000", forwarded("203.0.113.1")).Code)
}

func TestRateLimitBySubject(t *testing.T) {
	h := RateLimitBySubject(RateLimitConfig{RequestsPerMinute: 1})(okHandler())
	as := func(subject string) func(*http.Request) {
		return func(r *http.Request) {
			claims := &models.TokenClaims{Type: "admin", Role: models.RoleAdmin}
			claims.Subject = subject
			*r = *r.WithContext(context.WithValue(r.Context(), auth.ClaimsContextKey, claims))
		}
	}

	assert.Equal(t, http.StatusOK, serve(h, "198.51.100.1:1000", as("alice")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "198.51.100.2:1000", as("alice")).Code)
	assert.Equal(t, http.StatusOK, serve(h, "198.51.100.1:1000", as("bob")).Code)
}
