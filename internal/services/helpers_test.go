package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/customs/internal/customs"
	"github.com/BradenHooton/customs/internal/limits"
	"github.com/BradenHooton/customs/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// memoryRecordRepository implements RecordRepository in memory
type memoryRecordRepository struct {
	mu      sync.Mutex
	records map[string]*models.StoredRecord
	ttls    map[string]time.Duration

	GetErr  error
	SetErr  error
	PingErr error
}

func newMemoryRecordRepository() *memoryRecordRepository {
	return &memoryRecordRepository{
		records: make(map[string]*models.StoredRecord),
		ttls:    make(map[string]time.Duration),
	}
}

func (m *memoryRecordRepository) Get(ctx context.Context, key string) (*models.StoredRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	rec, ok := m.records[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return rec, nil
}

func (m *memoryRecordRepository) Set(ctx context.Context, key string, rec *models.StoredRecord, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetErr != nil {
		return m.SetErr
	}
	m.records[key] = rec
	m.ttls[key] = ttl
	return nil
}

func (m *memoryRecordRepository) Ping(ctx context.Context) error {
	return m.PingErr
}

// staticLimits implements LimitsProvider
type staticLimits struct {
	l *limits.Limits
}

func (s staticLimits) Snapshot() *limits.Limits {
	return s.l
}

// MockReputationChecker implements ReputationChecker for testing
type MockReputationChecker struct {
	ReputationFunc func(ctx context.Context, ip string) (int, bool)

	mu         sync.Mutex
	violations map[string]string
}

func (m *MockReputationChecker) Reputation(ctx context.Context, ip string) (int, bool) {
	if m.ReputationFunc != nil {
		return m.ReputationFunc(ctx, ip)
	}
	return 0, false
}

func (m *MockReputationChecker) ReportViolation(ctx context.Context, ip, violation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.violations == nil {
		m.violations = make(map[string]string)
	}
	m.violations[ip] = violation
	return nil
}

func (m *MockReputationChecker) Violation(ip string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.violations[ip]
}

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time {
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

type serviceFixture struct {
	service    *CustomsService
	repo       *memoryRecordRepository
	reputation *MockReputationChecker
	keys       *KeyBuilder
	clock      *testClock
	limits     *limits.Limits
}

func newServiceFixture(config CustomsConfig) *serviceFixture {
	keys, err := NewKeyBuilder("customs", "test-hash-key")
	if err != nil {
		panic(err)
	}

	f := &serviceFixture{
		repo:       newMemoryRecordRepository(),
		reputation: &MockReputationChecker{},
		keys:       keys,
		clock:      &testClock{t: time.UnixMilli(1_700_000_000_000)},
		limits:     limits.Default().Limits(),
	}
	f.service = NewCustomsService(
		f.repo,
		staticLimits{l: f.limits},
		keys,
		customs.NewFactory(f.clock.Now),
		f.reputation,
		config,
		testLogger(),
	)
	return f
}

func (f *serviceFixture) stored(kind, identity string) *models.StoredRecord {
	key, err := f.keys.Key(kind, identity)
	if err != nil {
		panic(err)
	}
	rec, _ := f.repo.Get(context.Background(), key)
	return rec
}
