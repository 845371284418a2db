package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/studentmarketplace/identity-service/internal/application"
	"github.com/studentmarketplace/identity-service/internal/domain"
	"github.com/studentmarketplace/identity-service/internal/ports"
)

// Handler is the HTTP adapter entrypoint for identity use-cases.
// Keeping only application-level dependencies here preserves clean adapter boundaries.
type Handler struct {
	service    *application.Service
	signer     ports.TokenSigner
	authorizer *domain.Authorizer
	// trustProxy enables X-Forwarded-For resolution; only production runs
	// behind a proxy that strips client-sent values.
	trustProxy bool
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service, signer ports.TokenSigner, authorizer *domain.Authorizer, environment string) *Handler {
	return &Handler{
		service:    service,
		signer:     signer,
		authorizer: authorizer,
		trustProxy: environment == "production",
	}
}

// NewRouter registers identity HTTP routes and the middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/register", handler.register)
		r.Post("/verify-registration", handler.verifyRegistration)
		r.Post("/login", handler.login)
		r.Post("/forgot-password", handler.forgotPassword)
		r.Post("/verify-forgot-password", handler.verifyForgotPassword)
		r.Post("/reset-password", handler.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Use(handler.requireRole(domain.RoleUser))
			r.Post("/refresh", handler.refreshToken)
			r.Post("/logout", handler.logout)
		})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}
