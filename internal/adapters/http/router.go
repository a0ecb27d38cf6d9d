package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/strataboard/authcore/internal/application"
)

// Handler is the HTTP adapter entrypoint for auth use-cases.
// Keeping only application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service

	// adminToken guards operational endpoints. Empty disables them.
	adminToken string
}

// NewHandler constructs an HTTP handler bound to application service.
func NewHandler(service *application.Service, adminToken string) *Handler {
	return &Handler{service: service, adminToken: adminToken}
}

// NewRouter registers the auth routes and middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/login", handler.login)
		r.Post("/session/check", handler.sessionCheck)
		r.Post("/logout", handler.logout)

		// Minting needs a live session; redeeming needs only the token, that
		// is the whole point of a shareable link.
		r.With(handler.sessionMiddleware).Post("/resources/{resource_id}/link", handler.issueResourceLink)
		r.Get("/resources/view", handler.viewResource)

		r.Route("/principals/{principal_id}", func(r chi.Router) {
			// Unlock is an operator action: a locked-out principal has no
			// session to present, so it cannot ride the session gate.
			r.With(handler.adminMiddleware).Post("/unlock", handler.unlockAccount)

			r.Group(func(r chi.Router) {
				r.Use(handler.sessionMiddleware)
				r.Get("/sessions", handler.listSessions)
				r.Delete("/sessions", handler.terminateSessions)
				r.Delete("/sessions/{session_id}", handler.terminateSession)
				r.Post("/password", handler.changePassword)
			})
		})
	})

	return r
}
