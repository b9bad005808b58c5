package routes

import (
	"net/http"

	"github.com/BradenHooton/customs/internal/auth"
	"github.com/BradenHooton/customs/internal/handlers"
	"github.com/BradenHooton/customs/internal/middleware"
	"github.com/BradenHooton/customs/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	customsHandler *handlers.CustomsHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
	checkLimit middleware.RateLimitConfig,
	adminLimit middleware.RateLimitConfig,
	metricsHandler http.Handler,
) {
	router.Get("/health", customsHandler.Health)
	if metricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// Decision endpoints, called by the auth server on every sensitive request
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(checkLimit))

		r.Post("/check", customsHandler.Check)
		r.Post("/checkAuthenticated", customsHandler.CheckAuthenticated)
		r.Post("/checkIpOnly", customsHandler.CheckIPOnly)
		r.Post("/failedLoginAttempt", customsHandler.FailedLoginAttempt)
		r.Post("/passwordReset", customsHandler.PasswordReset)
	})

	// Operator routes
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))
		r.Use(auth.RequireRole(models.RoleAdmin))
		r.Use(middleware.RateLimitBySubject(adminLimit))

		r.Post("/blockEmail", adminHandler.BlockEmail)
		r.Post("/blockIp", adminHandler.BlockIP)
		r.Post("/suspectEmail", adminHandler.SuspectEmail)
		r.Post("/disableEmail", adminHandler.DisableEmail)

		r.Get("/records/{kind}/{identity}", adminHandler.GetRecord)

		r.Get("/limits", adminHandler.GetLimits)
		r.Put("/limits", adminHandler.PutLimits)
	})
}
