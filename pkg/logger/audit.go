package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AuditEvent describes a customs decision or an explicit state change.
type AuditEvent struct {
	EventType  string
	Kind       string // identity kind: email, ip or uid
	Identity   string // raw identity, sanitized before logging
	IPAddress  string
	Action     string
	Reason     string
	RetryAfter int
	Actor      string // admin subject for explicit transitions
	Metadata   map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogDecision records a blocking decision. Every event gets its own id so
// that downstream log pipelines can deduplicate.
func (al *AuditLogger) LogDecision(ctx context.Context, event AuditEvent) string {
	id := uuid.NewString()
	attrs := al.baseAttrs(id, "decision", event)
	attrs = append(attrs, slog.Int("retry_after", event.RetryAfter))
	if event.Reason != "" {
		attrs = append(attrs, slog.String("block_reason", event.Reason))
	}

	al.logger.LogAttrs(ctx, slog.LevelWarn, "audit", attrs...)
	return id
}

// LogTransition records an explicit block, suspect or disable.
func (al *AuditLogger) LogTransition(ctx context.Context, event AuditEvent) string {
	id := uuid.NewString()
	attrs := al.baseAttrs(id, "transition", event)
	if event.Actor != "" {
		attrs = append(attrs, slog.String("actor", event.Actor))
	}

	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	return id
}

func (al *AuditLogger) baseAttrs(id, category string, event AuditEvent) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("audit_type", "customs"),
		slog.String("event_id", id),
		slog.String("category", category),
		slog.String("event_type", event.EventType),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Kind != "" {
		attrs = append(attrs,
			slog.String("kind", event.Kind),
			slog.String("identity", SanitizedIdentity(event.Kind, event.Identity)),
		)
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.Action != "" {
		attrs = append(attrs, slog.String("action", event.Action))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}
	return attrs
}
