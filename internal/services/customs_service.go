package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/customs/internal/actions"
	"github.com/BradenHooton/customs/internal/customs"
	"github.com/BradenHooton/customs/internal/limits"
	"github.com/BradenHooton/customs/internal/models"
	"github.com/BradenHooton/customs/internal/observability/metrics"
	"github.com/BradenHooton/customs/internal/observability/tracing"
	"github.com/BradenHooton/customs/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
)

// Block reasons reported by Check.
const (
	BlockReasonOther        = "other"
	BlockReasonDisabled     = "disabled"
	BlockReasonIPReputation = "ip_reputation"
)

const violationReportTimeout = 2 * time.Second

// RecordRepository defines the interface for identity record storage
type RecordRepository interface {
	Get(ctx context.Context, key string) (*models.StoredRecord, error)
	Set(ctx context.Context, key string, rec *models.StoredRecord, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// LimitsProvider hands out the limits snapshot for one call.
type LimitsProvider interface {
	Snapshot() *limits.Limits
}

// ReputationChecker is the IP reputation service as seen by customs.
type ReputationChecker interface {
	Reputation(ctx context.Context, ip string) (int, bool)
	ReportViolation(ctx context.Context, ip, violation string) error
}

// CustomsConfig holds the reputation thresholds.
type CustomsConfig struct {
	ReputationEnabled      bool
	ReputationBlockBelow   int
	ReputationSuspectBelow int
}

// CheckResult is the outcome of an unauthenticated check.
type CheckResult struct {
	Block       bool
	RetryAfter  int
	BlockReason string
	Unblock     bool
	Suspect     bool
}

// Decision is the outcome of a uid or IP only check.
type Decision struct {
	Block      bool
	RetryAfter int
}

type actorKey struct{}

// ContextWithActor tags ctx with the admin subject performing an operation.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// CustomsService decides whether requests against the auth server may
// proceed. Every operation takes one limits snapshot, loads the identity
// records it needs, lets the engine mutate them and writes them back.
type CustomsService struct {
	repo       RecordRepository
	limits     LimitsProvider
	keys       *KeyBuilder
	factory    *customs.Factory
	reputation ReputationChecker
	config     CustomsConfig
	audit      *logger.AuditLogger
	logger     *slog.Logger
	metrics    *metrics.CustomsMetrics

	reports sync.WaitGroup
}

// NewCustomsService creates a new CustomsService. reputation may be nil.
func NewCustomsService(
	repo RecordRepository,
	limitsProvider LimitsProvider,
	keys *KeyBuilder,
	factory *customs.Factory,
	reputation ReputationChecker,
	config CustomsConfig,
	log *slog.Logger,
) *CustomsService {
	return &CustomsService{
		repo:       repo,
		limits:     limitsProvider,
		keys:       keys,
		factory:    factory,
		reputation: reputation,
		config:     config,
		audit:      logger.NewAuditLogger(log),
		logger:     log,
	}
}

// SetMetrics enables decision metrics.
func (s *CustomsService) SetMetrics(m *metrics.CustomsMetrics) {
	s.metrics = m
}

// load returns the record for identity. Store failures are logged and give an
// empty record so that an outage never blocks legitimate users.
func (s *CustomsService) load(ctx context.Context, l *limits.Limits, kind, identity string) (*customs.Record, string, error) {
	key, err := s.keys.Key(kind, identity)
	if err != nil {
		return nil, "", err
	}

	stored, err := s.repo.Get(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		stored = nil
	case errors.Is(err, models.ErrCorruptRecord):
		s.metrics.IncStoreError("corrupt")
		s.logger.Warn("discarding corrupt record",
			slog.String("op", "record.load"),
			slog.String("kind", kind),
			slog.Any("error", err))
		stored = nil
	default:
		s.metrics.IncStoreError("load")
		s.logger.Error("failed to load record",
			slog.String("op", "record.load"),
			slog.String("kind", kind),
			slog.Any("error", err))
		stored = nil
	}

	return s.factory.Parse(l, stored), key, nil
}

// save writes rec back. A failed write is logged; the decision already made
// stands.
func (s *CustomsService) save(ctx context.Context, key, kind string, rec *customs.Record) {
	if err := s.repo.Set(ctx, key, rec.Stored(), rec.MinLifetime()); err != nil {
		s.metrics.IncStoreError("save")
		s.logger.Error("failed to save record",
			slog.String("op", "record.save"),
			slog.String("kind", kind),
			slog.Any("error", err))
	}
}

// loadIP loads the IP record when ip is usable. Checks carry the IP as
// secondary context, so a malformed one is skipped rather than rejected.
func (s *CustomsService) loadIP(ctx context.Context, l *limits.Limits, ip string) *customs.Record {
	if ip == "" {
		return nil
	}
	rec, _, err := s.load(ctx, l, models.IdentityKindIP, ip)
	if err != nil {
		s.logger.Debug("ignoring unusable ip", slog.Any("error", err))
		return nil
	}
	return rec
}

// Check decides an unauthenticated request made for email from ip.
func (s *CustomsService) Check(ctx context.Context, email, ip, action, unblockCode string) (_ *CheckResult, err error) {
	ctx, span := tracing.Start(ctx, "customs.check", attribute.String("customs.action", action))
	defer func() { tracing.End(span, err) }()

	l := s.limits.Snapshot()

	emailRec, emailKey, err := s.load(ctx, l, models.IdentityKindEmail, email)
	if err != nil {
		return nil, err
	}
	ipRec := s.loadIP(ctx, l, ip)

	result := &CheckResult{}

	if retryAfter := emailRec.Update(action, unblockCode != ""); retryAfter > 0 {
		result.Block = true
		result.RetryAfter = retryAfter
		result.BlockReason = BlockReasonOther
	}

	if ipRec != nil && ipRec.IsBlocked() {
		result.Block = true
		result.RetryAfter = max(result.RetryAfter, ipRec.RetryAfter())
		result.BlockReason = BlockReasonOther
	}

	if disabledFor := emailRec.DisabledFor(); disabledFor > 0 {
		result.Block = true
		result.RetryAfter = max(result.RetryAfter, disabledFor)
		result.BlockReason = BlockReasonDisabled
	}

	if result.BlockReason == BlockReasonOther && actions.IsUnblockable(action) {
		result.Unblock = emailRec.CanUnblock()
	}

	result.Suspect = emailRec.IsSuspected()

	if !result.Block && ipRec != nil {
		s.applyReputation(ctx, l, ip, result)
	}

	s.save(ctx, emailKey, models.IdentityKindEmail, emailRec)

	s.metrics.ObserveDecision("check", result.Block, result.BlockReason)
	span.SetAttributes(
		attribute.Bool("customs.block", result.Block),
		attribute.String("customs.block_reason", result.BlockReason),
		attribute.Bool("customs.suspect", result.Suspect),
	)

	if result.Block {
		s.audit.LogDecision(ctx, logger.AuditEvent{
			EventType:  "request.check.block",
			Kind:       models.IdentityKindEmail,
			Identity:   email,
			IPAddress:  ip,
			Action:     action,
			Reason:     result.BlockReason,
			RetryAfter: result.RetryAfter,
		})
		if ipRec != nil && result.BlockReason != BlockReasonIPReputation {
			s.reportViolation(ctx, ip, "request.check.block."+action)
		}
	}

	return result, nil
}

func (s *CustomsService) applyReputation(ctx context.Context, l *limits.Limits, ip string, result *CheckResult) {
	if !s.config.ReputationEnabled || s.reputation == nil {
		return
	}

	score, ok := s.reputation.Reputation(ctx, ip)
	if !ok {
		s.metrics.IncReputation("unknown")
		return
	}

	switch {
	case score < s.config.ReputationBlockBelow:
		s.metrics.IncReputation("block")
		result.Block = true
		result.BlockReason = BlockReasonIPReputation
		result.RetryAfter = int(l.RateLimitIntervalMs / 1000)
		result.Unblock = false
	case score < s.config.ReputationSuspectBelow:
		s.metrics.IncReputation("suspect")
		result.Suspect = true
	default:
		s.metrics.IncReputation("pass")
	}
}

// reportViolation notifies the reputation service in the background.
func (s *CustomsService) reportViolation(ctx context.Context, ip, violation string) {
	if s.reputation == nil {
		return
	}

	s.reports.Add(1)
	go func() {
		defer s.reports.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), violationReportTimeout)
		defer cancel()

		if err := s.reputation.ReportViolation(ctx, ip, violation); err != nil {
			s.logger.Warn("failed to report violation",
				slog.String("op", "reputation.violation"),
				slog.String("violation", violation),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until every background violation report has finished.
func (s *CustomsService) Wait() {
	s.reports.Wait()
}

// CheckAuthenticated decides a request made by a signed-in account.
func (s *CustomsService) CheckAuthenticated(ctx context.Context, uid, ip, action string) (*Decision, error) {
	return s.checkIdentity(ctx, models.IdentityKindUID, uid, ip, action)
}

// CheckIPOnly decides a request for which only the client address is known.
func (s *CustomsService) CheckIPOnly(ctx context.Context, ip, action string) (*Decision, error) {
	return s.checkIdentity(ctx, models.IdentityKindIP, ip, "", action)
}

func (s *CustomsService) checkIdentity(ctx context.Context, kind, identity, ip, action string) (_ *Decision, err error) {
	endpoint := "checkAuthenticated"
	if kind == models.IdentityKindIP {
		endpoint = "checkIpOnly"
	}
	ctx, span := tracing.Start(ctx, "customs."+endpoint,
		attribute.String("customs.action", action),
		attribute.String("customs.kind", kind))
	defer func() { tracing.End(span, err) }()

	l := s.limits.Snapshot()

	rec, key, err := s.load(ctx, l, kind, identity)
	if err != nil {
		return nil, err
	}

	decision := &Decision{}
	if retryAfter := rec.Update(action, false); retryAfter > 0 {
		decision.Block = true
		decision.RetryAfter = retryAfter
	}

	if ipRec := s.loadIP(ctx, l, ip); ipRec != nil && ipRec.IsBlocked() {
		decision.Block = true
		decision.RetryAfter = max(decision.RetryAfter, ipRec.RetryAfter())
	}

	s.save(ctx, key, kind, rec)

	reason := ""
	if decision.Block {
		reason = BlockReasonOther
	}
	s.metrics.ObserveDecision(endpoint, decision.Block, reason)
	span.SetAttributes(attribute.Bool("customs.block", decision.Block))

	if decision.Block {
		s.audit.LogDecision(ctx, logger.AuditEvent{
			EventType:  "request.check.block",
			Kind:       kind,
			Identity:   identity,
			IPAddress:  ip,
			Action:     action,
			Reason:     BlockReasonOther,
			RetryAfter: decision.RetryAfter,
		})
	}

	return decision, nil
}

// FailedLoginAttempt counts a failed password check against email.
func (s *CustomsService) FailedLoginAttempt(ctx context.Context, email, ip string) error {
	l := s.limits.Snapshot()

	rec, key, err := s.load(ctx, l, models.IdentityKindEmail, email)
	if err != nil {
		return err
	}

	rec.AddBadLogin()
	s.save(ctx, key, models.IdentityKindEmail, rec)

	s.logger.Info("failed login recorded",
		slog.String("op", "request.failedLoginAttempt"),
		slog.String("email", logger.SanitizedEmail(email)),
		slog.String("ip_address", ip))
	return nil
}

// PasswordReset records a completed password reset for email.
func (s *CustomsService) PasswordReset(ctx context.Context, email string) error {
	return s.transition(ctx, models.IdentityKindEmail, email, "record.passwordReset", (*customs.Record).PasswordReset)
}

// Block starts an explicit block on the identity.
func (s *CustomsService) Block(ctx context.Context, kind, identity string) error {
	return s.transition(ctx, kind, identity, "record.block", (*customs.Record).Block)
}

// Suspect marks the identity as suspected.
func (s *CustomsService) Suspect(ctx context.Context, kind, identity string) error {
	return s.transition(ctx, kind, identity, "record.suspect", (*customs.Record).Suspect)
}

// Disable disables the identity.
func (s *CustomsService) Disable(ctx context.Context, kind, identity string) error {
	return s.transition(ctx, kind, identity, "record.disable", (*customs.Record).Disable)
}

func (s *CustomsService) transition(ctx context.Context, kind, identity, eventType string, apply func(*customs.Record)) error {
	l := s.limits.Snapshot()
	rec, key, err := s.load(ctx, l, kind, identity)
	if err != nil {
		return err
	}

	apply(rec)

	if err := s.repo.Set(ctx, key, rec.Stored(), rec.MinLifetime()); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	s.audit.LogTransition(ctx, logger.AuditEvent{
		EventType: eventType,
		Kind:      kind,
		Identity:  identity,
		Actor:     actorFrom(ctx),
	})
	return nil
}

// Record returns the stored record for the identity.
func (s *CustomsService) Record(ctx context.Context, kind, identity string) (*models.StoredRecord, error) {
	key, err := s.keys.Key(kind, identity)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, key)
}

// Health reports whether the record store is reachable.
func (s *CustomsService) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
