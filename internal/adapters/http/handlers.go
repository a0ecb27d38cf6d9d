package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeAck(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeAck(w, http.StatusOK, "ready")
}

// principalFromPath parses {principal_id} and enforces that the caller's
// session belongs to that principal. Session management is strictly
// self-service; there is no cross-principal view.
func principalFromPath(w http.ResponseWriter, r *http.Request, operation string) (uuid.UUID, bool) {
	principalID, err := uuid.Parse(chi.URLParam(r, "principal_id"))
	if err != nil {
		writeValidationError(r.Context(), w, operation, err)
		return uuid.Nil, false
	}
	check, ok := sessionFromContext(r.Context())
	if !ok || check.PrincipalID != principalID {
		code := "FORBIDDEN"
		msg := "session does not belong to this principal"
		logHTTPOperationError(r.Context(), operation, http.StatusForbidden, code, msg, nil)
		writeError(w, http.StatusForbidden, code, msg)
		return uuid.Nil, false
	}
	return principalID, true
}
