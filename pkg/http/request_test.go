package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/customs/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		config     *pkghttp.IPConfig
		want       string
	}{
		{
			name:       "direct connection ignores spoofed headers",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4, 5.6.7.8",
			xri:        "192.168.1.1",
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8", "127.0.0.1/32"}},
			want:       "203.0.113.10",
		},
		{
			name:       "trusted proxy uses first forwarded address",
			remoteAddr: "10.0.0.5:54321",
			xff:        "203.0.113.42, 203.0.113.43, 10.0.0.5",
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}},
			want:       "203.0.113.42",
		},
		{
			name:       "trusted proxy falls back to X-Real-IP",
			remoteAddr: "10.0.0.5:54321",
			xri:        "203.0.113.7",
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}},
			want:       "203.0.113.7",
		},
		{
			name:       "ipv6 trusted proxy",
			remoteAddr: "[::1]:54321",
			xff:        "2001:db8::1",
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"::1/128"}},
			want:       "2001:db8::1",
		},
		{
			name:       "nil config",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			want:       "203.0.113.10",
		},
		{
			name:       "invalid cidr ranges",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"invalid-cidr-range"}},
			want:       "203.0.113.10",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "203.0.113.10",
			want:       "203.0.113.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/check", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			assert.Equal(t, tt.want, pkghttp.ExtractClientIP(req, tt.config))
		})
	}
}

func TestResolveIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/check", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	assert.Equal(t, "198.51.100.4", pkghttp.ResolveIP(req, " 198.51.100.4 ", nil))
	assert.Equal(t, "203.0.113.10", pkghttp.ResolveIP(req, "", nil))
	assert.Equal(t, "203.0.113.10", pkghttp.ResolveIP(req, "not-an-ip", nil))
}
