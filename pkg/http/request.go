package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig holds configuration for IP extraction and validation
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// ResolveIP returns claimed when it is a valid address, otherwise the client
// address of the request. Auth servers calling customs pass the end user's
// address in the body; direct callers rely on the connection.
func ResolveIP(r *http.Request, claimed string, config *IPConfig) string {
	claimed = strings.TrimSpace(claimed)
	if ValidIP(claimed) {
		return claimed
	}
	return ExtractClientIP(r, config)
}

// ExtractClientIP returns the client address of the request. Forwarding
// headers are honoured only when the connection comes from a trusted proxy.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := remoteAddr(r)

	if config == nil || !isTrustedProxy(remoteIP, config.TrustedProxies) {
		return remoteIP
	}

	// First valid entry is the original client
	for _, ip := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip = strings.TrimSpace(ip); ValidIP(ip) {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); ValidIP(xri) {
		return xri
	}

	return remoteIP
}

// ValidIP reports whether ip parses as an IPv4 or IPv6 address.
func ValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func isTrustedProxy(ip string, trustedProxies []string) bool {
	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue // Skip invalid CIDR ranges
		}
		if ipNet.Contains(clientIP) {
			return true
		}
	}
	return false
}
