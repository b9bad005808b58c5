package logger

import (
	"log/slog"
	"net"
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	// Keep first char
	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Keep TLD
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// SanitizedIP zeroes the host part of an address: the last octet for IPv4,
// everything past the /48 for IPv6.
func SanitizedIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "[invalid-ip]"
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}
	return parsed.Mask(net.CIDRMask(48, 128)).String()
}

// SanitizedIdentity masks an identity according to its kind.
func SanitizedIdentity(kind, identity string) string {
	switch kind {
	case "email":
		return SanitizedEmail(identity)
	case "ip":
		return SanitizedIP(identity)
	default:
		if len(identity) > 8 {
			return identity[:8] + "..."
		}
		return identity
	}
}

// RedactedAttr returns a redacted slog attribute for sensitive values
// In production, returns "[REDACTED]"; in development, returns the actual value
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// SanitizeQueryString reports whether the query string carries anything that
// must not reach the access log.
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"email", "ip", "uid", "token", "secret", "unblockcode", "auth",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
