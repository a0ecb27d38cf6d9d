package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) issueResourceLink(w http.ResponseWriter, r *http.Request) {
	resourceID, err := uuid.Parse(chi.URLParam(r, "resource_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "issue_resource_link", err)
		return
	}

	link, err := h.service.IssueResourceLink(r.Context(), resourceID)
	if err != nil {
		writeMappedError(r.Context(), w, "issue_resource_link", err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (h *Handler) viewResource(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		code := "TOKEN_INVALID"
		msg := "token query parameter is required"
		logHTTPOperationError(r.Context(), "view_resource", http.StatusUnauthorized, code, msg, nil)
		writeError(w, http.StatusUnauthorized, code, msg)
		return
	}

	view, err := h.service.ViewResource(r.Context(), token, readIP(r), r.UserAgent())
	if err != nil {
		writeMappedError(r.Context(), w, "view_resource", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
