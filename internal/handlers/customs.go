package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/customs/internal/models"
	"github.com/BradenHooton/customs/internal/services"
	pkghttp "github.com/BradenHooton/customs/pkg/http"
)

// CustomsServiceInterface defines the decision operations the public API exposes
type CustomsServiceInterface interface {
	Check(ctx context.Context, email, ip, action, unblockCode string) (*services.CheckResult, error)
	CheckAuthenticated(ctx context.Context, uid, ip, action string) (*services.Decision, error)
	CheckIPOnly(ctx context.Context, ip, action string) (*services.Decision, error)
	FailedLoginAttempt(ctx context.Context, email, ip string) error
	PasswordReset(ctx context.Context, email string) error
	Health(ctx context.Context) error
}

// CustomsHandler handles the decision endpoints called by the auth server
type CustomsHandler struct {
	service  CustomsServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewCustomsHandler creates a new CustomsHandler
func NewCustomsHandler(service CustomsServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *CustomsHandler {
	return &CustomsHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// CheckPayload carries optional extras sent with a check
type CheckPayload struct {
	UnblockCode string `json:"unblockCode"`
}

// CheckRequest represents the request body for /check
type CheckRequest struct {
	Email   string        `json:"email" validate:"required,max=320"`
	IP      string        `json:"ip" validate:"omitempty,ip"`
	Action  string        `json:"action" validate:"required,max=128"`
	Payload *CheckPayload `json:"payload"`
}

// CheckAuthenticatedRequest represents the request body for /checkAuthenticated
type CheckAuthenticatedRequest struct {
	UID    string `json:"uid" validate:"required,max=128"`
	IP     string `json:"ip" validate:"omitempty,ip"`
	Action string `json:"action" validate:"required,max=128"`
}

// CheckIPOnlyRequest represents the request body for /checkIpOnly
type CheckIPOnlyRequest struct {
	IP     string `json:"ip" validate:"omitempty,ip"`
	Action string `json:"action" validate:"required,max=128"`
}

// FailedLoginAttemptRequest represents the request body for /failedLoginAttempt
type FailedLoginAttemptRequest struct {
	Email string `json:"email" validate:"required,max=320"`
	IP    string `json:"ip" validate:"omitempty,ip"`
}

// PasswordResetRequest represents the request body for /passwordReset
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,max=320"`
}

// Response DTOs

// CheckResponse is the answer to /check
type CheckResponse struct {
	Block       bool   `json:"block"`
	RetryAfter  int    `json:"retryAfter"`
	BlockReason string `json:"blockReason,omitempty"`
	Unblock     bool   `json:"unblock"`
	Suspect     bool   `json:"suspect"`
}

// DecisionResponse is the answer to /checkAuthenticated and /checkIpOnly
type DecisionResponse struct {
	Block      bool `json:"block"`
	RetryAfter int  `json:"retryAfter"`
}

// decode reads and validates a JSON request body. It writes the error
// response itself and reports whether the handler should continue.
func decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

func (h *CustomsHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, models.ErrInvalidIdentity) {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	h.logger.Error("request failed", slog.String("op", op), slog.Any("error", err))
	pkghttp.WriteInternalError(w, "Internal server error")
}

// Check handles POST /check
func (h *CustomsHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !decode(w, r, &req) {
		return
	}

	unblockCode := ""
	if req.Payload != nil {
		unblockCode = req.Payload.UnblockCode
	}
	ip := pkghttp.ResolveIP(r, req.IP, h.ipConfig)

	result, err := h.service.Check(r.Context(), req.Email, ip, req.Action, unblockCode)
	if err != nil {
		h.writeServiceError(w, "request.check", err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, CheckResponse{
		Block:       result.Block,
		RetryAfter:  result.RetryAfter,
		BlockReason: result.BlockReason,
		Unblock:     result.Unblock,
		Suspect:     result.Suspect,
	})
}

// CheckAuthenticated handles POST /checkAuthenticated
func (h *CustomsHandler) CheckAuthenticated(w http.ResponseWriter, r *http.Request) {
	var req CheckAuthenticatedRequest
	if !decode(w, r, &req) {
		return
	}

	ip := pkghttp.ResolveIP(r, req.IP, h.ipConfig)
	decision, err := h.service.CheckAuthenticated(r.Context(), req.UID, ip, req.Action)
	if err != nil {
		h.writeServiceError(w, "request.checkAuthenticated", err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, DecisionResponse{Block: decision.Block, RetryAfter: decision.RetryAfter})
}

// CheckIPOnly handles POST /checkIpOnly
func (h *CustomsHandler) CheckIPOnly(w http.ResponseWriter, r *http.Request) {
	var req CheckIPOnlyRequest
	if !decode(w, r, &req) {
		return
	}

	ip := pkghttp.ResolveIP(r, req.IP, h.ipConfig)
	decision, err := h.service.CheckIPOnly(r.Context(), ip, req.Action)
	if err != nil {
		h.writeServiceError(w, "request.checkIpOnly", err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, DecisionResponse{Block: decision.Block, RetryAfter: decision.RetryAfter})
}

// FailedLoginAttempt handles POST /failedLoginAttempt
func (h *CustomsHandler) FailedLoginAttempt(w http.ResponseWriter, r *http.Request) {
	var req FailedLoginAttemptRequest
	if !decode(w, r, &req) {
		return
	}

	ip := pkghttp.ResolveIP(r, req.IP, h.ipConfig)
	if err := h.service.FailedLoginAttempt(r.Context(), req.Email, ip); err != nil {
		h.writeServiceError(w, "request.failedLoginAttempt", err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, struct{}{})
}

// PasswordReset handles POST /passwordReset
func (h *CustomsHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.PasswordReset(r.Context(), req.Email); err != nil {
		h.writeServiceError(w, "request.passwordReset", err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, struct{}{})
}

// Health handles GET /health
func (h *CustomsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		h.logger.Warn("health check failed", slog.Any("error", err))
		pkghttp.WriteServiceUnavailable(w, "record store unavailable")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
