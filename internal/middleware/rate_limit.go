package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/BradenHooton/customs/internal/auth"
	pkghttp "github.com/BradenHooton/customs/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// DefaultCheckRateLimit returns the fallback limit for the decision endpoints.
// The auth server is the only expected caller, so the ceiling is generous.
func DefaultCheckRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 600}
}

// DefaultAdminRateLimit returns the limit applied per operator token subject.
func DefaultAdminRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 60}
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
}

// RateLimitByIP limits requests per calling address. Forwarding headers are
// only trusted when the connection comes from a configured proxy.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	if config.RequestsPerMinute <= 0 {
		config = DefaultCheckRateLimit()
	}
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// RateLimitBySubject limits operator requests per token subject, falling back
// to the client address when no claims are present. It must run after
// AuthMiddleware.
func RateLimitBySubject(config RateLimitConfig) func(next http.Handler) http.Handler {
	if config.RequestsPerMinute <= 0 {
		config = DefaultAdminRateLimit()
	}
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if claims := auth.GetClaimsFromContext(r); claims != nil && claims.Subject != "" {
				return "sub:" + claims.Subject, nil
			}
			return "ip:" + pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(limitExceeded),
	)
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
