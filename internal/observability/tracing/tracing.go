// Package tracing wraps the OpenTelemetry API for customs. Without an SDK
// installed by the embedding process every span is a no-op.
package tracing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BradenHooton/customs"

// Identity values never go on spans, only their kind.
var sensitiveAttributeKeys = []string{
	"email",
	"ip",
	"uid",
	"identity",
	"unblock",
	"token",
}

// Start opens a span named name.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(SafeAttributes(attrs...)...))
}

// End records err, if any, and ends span.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(SafeError(err))
		span.SetStatus(codes.Error, "error")
	}
	span.End()
}

// SafeAttributes drops attributes with sensitive keys.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if isSensitiveKey(string(attr.Key)) {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

// SafeError replaces an error with a type-only error to avoid leaking identities.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%T", err)
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, needle := range sensitiveAttributeKeys {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}
