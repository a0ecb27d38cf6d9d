package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	principalID, ok := principalFromPath(w, r, "list_sessions")
	if !ok {
		return
	}
	check, _ := sessionFromContext(r.Context())

	items, err := h.service.ListSessions(r.Context(), principalID, check.SessionID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": items})
}

func (h *Handler) terminateSession(w http.ResponseWriter, r *http.Request) {
	principalID, ok := principalFromPath(w, r, "terminate_session")
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "terminate_session", err)
		return
	}
	if err := h.service.TerminateSession(r.Context(), principalID, sessionID); err != nil {
		writeMappedError(r.Context(), w, "terminate_session", err)
		return
	}
	writeAck(w, http.StatusOK, "Session terminated")
}

// terminateSessions ends every session for the principal, or every session
// except one when ?keep=<session_id> or keep=current is given.
func (h *Handler) terminateSessions(w http.ResponseWriter, r *http.Request) {
	principalID, ok := principalFromPath(w, r, "terminate_sessions")
	if !ok {
		return
	}
	check, _ := sessionFromContext(r.Context())

	keepRaw := strings.TrimSpace(r.URL.Query().Get("keep"))
	if keepRaw == "" {
		count, err := h.service.TerminateAllSessions(r.Context(), principalID)
		if err != nil {
			writeMappedError(r.Context(), w, "terminate_sessions", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"terminated": count})
		return
	}

	keep := check.SessionID
	if keepRaw != "current" {
		parsed, err := uuid.Parse(keepRaw)
		if err != nil {
			writeValidationError(r.Context(), w, "terminate_sessions", err)
			return
		}
		keep = parsed
	}
	count, err := h.service.TerminateOtherSessions(r.Context(), principalID, keep)
	if err != nil {
		writeMappedError(r.Context(), w, "terminate_sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"terminated": count, "kept": keep})
}
