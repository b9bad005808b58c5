package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/customs/internal/auth"
	"github.com/BradenHooton/customs/internal/limits"
	"github.com/BradenHooton/customs/internal/models"
	"github.com/BradenHooton/customs/internal/services"
	pkghttp "github.com/BradenHooton/customs/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AdminServiceInterface defines the operator operations on identity records.
type AdminServiceInterface interface {
	Block(ctx context.Context, kind, identity string) error
	Suspect(ctx context.Context, kind, identity string) error
	Disable(ctx context.Context, kind, identity string) error
	Record(ctx context.Context, kind, identity string) (*models.StoredRecord, error)
}

// LimitsServiceInterface defines the operator operations on limits.
type LimitsServiceInterface interface {
	Current() limits.Settings
	Update(ctx context.Context, candidate any) (limits.Settings, error)
}

// AdminHandler handles operator HTTP requests.
type AdminHandler struct {
	service AdminServiceInterface
	limits  LimitsServiceInterface
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service AdminServiceInterface, limitsService LimitsServiceInterface, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: service, limits: limitsService, logger: logger}
}

// EmailRequest represents the request body for email state changes
type EmailRequest struct {
	Email string `json:"email" validate:"required,max=320"`
}

// IPRequest represents the request body for IP state changes
type IPRequest struct {
	IP string `json:"ip" validate:"required,ip"`
}

// actorContext tags the request context with the token subject for auditing.
func actorContext(r *http.Request) context.Context {
	if claims := auth.GetClaimsFromContext(r); claims != nil {
		return services.ContextWithActor(r.Context(), claims.Subject)
	}
	return r.Context()
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request, op, kind, identity string, apply func(context.Context, string, string) error) {
	if err := apply(actorContext(r), kind, identity); err != nil {
		if errors.Is(err, models.ErrInvalidIdentity) {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
		h.logger.Error("state change failed", slog.String("op", op), slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, struct{}{})
}

// BlockEmail handles POST /blockEmail
func (h *AdminHandler) BlockEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}
	h.transition(w, r, "admin.blockEmail", models.IdentityKindEmail, req.Email, h.service.Block)
}

// BlockIP handles POST /blockIp
func (h *AdminHandler) BlockIP(w http.ResponseWriter, r *http.Request) {
	var req IPRequest
	if !decode(w, r, &req) {
		return
	}
	h.transition(w, r, "admin.blockIp", models.IdentityKindIP, req.IP, h.service.Block)
}

// SuspectEmail handles POST /suspectEmail
func (h *AdminHandler) SuspectEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}
	h.transition(w, r, "admin.suspectEmail", models.IdentityKindEmail, req.Email, h.service.Suspect)
}

// DisableEmail handles POST /disableEmail
func (h *AdminHandler) DisableEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}
	h.transition(w, r, "admin.disableEmail", models.IdentityKindEmail, req.Email, h.service.Disable)
}

// GetRecord handles GET /records/{kind}/{identity}
func (h *AdminHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	identity := chi.URLParam(r, "identity")

	rec, err := h.service.Record(r.Context(), kind, identity)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "No record for this identity")
		case errors.Is(err, models.ErrInvalidIdentity):
			pkghttp.WriteBadRequest(w, err.Error())
		case errors.Is(err, models.ErrCorruptRecord):
			pkghttp.WriteErrorWithDetails(w, http.StatusUnprocessableEntity, "corrupt_record", "Stored record is corrupt", err.Error())
		default:
			h.logger.Error("record lookup failed", slog.String("op", "admin.getRecord"), slog.Any("error", err))
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, rec)
}

// GetLimits handles GET /limits
func (h *AdminHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, h.limits.Current())
}

// PutLimits handles PUT /limits. Keys that fail validation keep their current
// value; the response shows what is now in effect.
func (h *AdminHandler) PutLimits(w http.ResponseWriter, r *http.Request) {
	var candidate any
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	settings, err := h.limits.Update(actorContext(r), candidate)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrLimitsMissing):
			pkghttp.WriteBadRequest(w, "limits must be a JSON object")
		default:
			h.logger.Error("limits update failed", slog.String("op", "admin.putLimits"), slog.Any("error", err))
			pkghttp.WriteInternalError(w, "Limits applied locally but could not be persisted")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, settings)
}
