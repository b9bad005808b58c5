package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributes(t *testing.T) {
	got := SafeAttributes(
		attribute.String("customs.action", "accountLogin"),
		attribute.String("customs.email", "user@example.com"),
		attribute.String("client_ip", "203.0.113.1"),
		attribute.Bool("customs.block", true),
	)

	keys := make([]string, 0, len(got))
	for _, kv := range got {
		keys = append(keys, string(kv.Key))
	}
	assert.Equal(t, []string{"customs.action", "customs.block"}, keys)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.Equal(t, "*errors.errorString", SafeError(errors.New("user@example.com")).Error())
}

func TestStartEnd_NoopWithoutSDK(t *testing.T) {
	ctx, span := Start(context.Background(), "customs.check", attribute.String("customs.action", "x"))
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { End(span, errors.New("boom")) })
}
