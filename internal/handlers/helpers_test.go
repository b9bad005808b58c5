package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/customs/internal/auth"
	"github.com/BradenHooton/customs/internal/limits"
	"github.com/BradenHooton/customs/internal/models"
	"github.com/BradenHooton/customs/internal/services"
	pkghttp "github.com/BradenHooton/customs/pkg/http"
	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.50:40000"
	return req
}

// WithAdminContext adds admin claims to request context
func WithAdminContext(req *http.Request, subject string) *http.Request {
	claims := &models.TokenClaims{Type: "admin", Role: models.RoleAdmin}
	claims.Subject = subject
	ctx := context.WithValue(req.Context(), auth.ClaimsContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockCustomsService implements CustomsServiceInterface for testing
type MockCustomsService struct {
	CheckFunc              func(ctx context.Context, email, ip, action, unblockCode string) (*services.CheckResult, error)
	CheckAuthenticatedFunc func(ctx context.Context, uid, ip, action string) (*services.Decision, error)
	CheckIPOnlyFunc        func(ctx context.Context, ip, action string) (*services.Decision, error)
	FailedLoginAttemptFunc func(ctx context.Context, email, ip string) error
	PasswordResetFunc      func(ctx context.Context, email string) error
	HealthFunc             func(ctx context.Context) error
}

func (m *MockCustomsService) Check(ctx context.Context, email, ip, action, unblockCode string) (*services.CheckResult, error) {
	if m.CheckFunc == nil {
		return &services.CheckResult{}, nil
	}
	return m.CheckFunc(ctx, email, ip, action, unblockCode)
}

func (m *MockCustomsService) CheckAuthenticated(ctx context.Context, uid, ip, action string) (*services.Decision, error) {
	if m.CheckAuthenticatedFunc == nil {
		return &services.Decision{}, nil
	}
	return m.CheckAuthenticatedFunc(ctx, uid, ip, action)
}

func (m *MockCustomsService) CheckIPOnly(ctx context.Context, ip, action string) (*services.Decision, error) {
	if m.CheckIPOnlyFunc == nil {
		return &services.Decision{}, nil
	}
	return m.CheckIPOnlyFunc(ctx, ip, action)
}

func (m *MockCustomsService) FailedLoginAttempt(ctx context.Context, email, ip string) error {
	if m.FailedLoginAttemptFunc == nil {
		return nil
	}
	return m.FailedLoginAttemptFunc(ctx, email, ip)
}

func (m *MockCustomsService) PasswordReset(ctx context.Context, email string) error {
	if m.PasswordResetFunc == nil {
		return nil
	}
	return m.PasswordResetFunc(ctx, email)
}

func (m *MockCustomsService) Health(ctx context.Context) error {
	if m.HealthFunc == nil {
		return nil
	}
	return m.HealthFunc(ctx)
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	BlockFunc   func(ctx context.Context, kind, identity string) error
	SuspectFunc func(ctx context.Context, kind, identity string) error
	DisableFunc func(ctx context.Context, kind, identity string) error
	RecordFunc  func(ctx context.Context, kind, identity string) (*models.StoredRecord, error)
}

func (m *MockAdminService) Block(ctx context.Context, kind, identity string) error {
	if m.BlockFunc == nil {
		return nil
	}
	return m.BlockFunc(ctx, kind, identity)
}

func (m *MockAdminService) Suspect(ctx context.Context, kind, identity string) error {
	if m.SuspectFunc == nil {
		return nil
	}
	return m.SuspectFunc(ctx, kind, identity)
}

func (m *MockAdminService) Disable(ctx context.Context, kind, identity string) error {
	if m.DisableFunc == nil {
		return nil
	}
	return m.DisableFunc(ctx, kind, identity)
}

func (m *MockAdminService) Record(ctx context.Context, kind, identity string) (*models.StoredRecord, error) {
	if m.RecordFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.RecordFunc(ctx, kind, identity)
}

// MockLimitsService implements LimitsServiceInterface for testing
type MockLimitsService struct {
	settings   limits.Settings
	UpdateFunc func(ctx context.Context, candidate any) (limits.Settings, error)
}

func (m *MockLimitsService) Current() limits.Settings {
	return m.settings
}

func (m *MockLimitsService) Update(ctx context.Context, candidate any) (limits.Settings, error) {
	if m.UpdateFunc == nil {
		return m.settings, nil
	}
	return m.UpdateFunc(ctx, candidate)
}
