package http

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/strataboard/authcore/internal/application"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginParams
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}
	req.OriginAddress = readIP(r)
	req.UserAgent = r.UserAgent()

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}

	switch res.Outcome {
	case application.LoginSuccess:
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id":       res.SessionID,
			"session_token":    res.SessionToken,
			"expires_at":       res.ExpiresAt,
			"evicted_sessions": res.EvictedSessions,
		})
	case application.LoginLocked:
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
		logHTTPOperationError(r.Context(), "login", http.StatusTooManyRequests, "ACCOUNT_LOCKED", "account temporarily locked", nil)
		writeError(w, http.StatusTooManyRequests, "ACCOUNT_LOCKED", "account temporarily locked")
	case application.LoginInactive:
		logHTTPOperationError(r.Context(), "login", http.StatusForbidden, "ACCOUNT_INACTIVE", "account is not active", nil)
		writeError(w, http.StatusForbidden, "ACCOUNT_INACTIVE", "account is not active")
	default:
		// One body for every credential rejection: the response never reveals
		// whether the email maps to an account. The remaining-attempts hint
		// stays internal for the same reason.
		logHTTPOperationError(r.Context(), "login", http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	}
}

func (h *Handler) sessionCheck(w http.ResponseWriter, r *http.Request) {
	token, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		var req struct {
			SessionToken string `json:"session_token"`
		}
		if decodeErr := decodeBody(r, &req); decodeErr != nil || req.SessionToken == "" {
			writeMissingBearerError(r.Context(), w, "session_check")
			return
		}
		token = req.SessionToken
	}

	check, err := h.service.CheckSession(r.Context(), token)
	if err != nil {
		writeMappedError(r.Context(), w, "session_check", err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		// Logout without a token has nothing to do; absorbing by contract.
		writeAck(w, http.StatusOK, "Logged out")
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeAck(w, http.StatusOK, "Logged out")
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	principalID, ok := principalFromPath(w, r, "change_password")
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "change_password", err)
		return
	}

	err := h.service.ChangePassword(r.Context(), application.ChangePasswordParams{
		PrincipalID:     principalID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "change_password", err)
		return
	}
	writeAck(w, http.StatusOK, "Password changed; all sessions terminated")
}

func (h *Handler) unlockAccount(w http.ResponseWriter, r *http.Request) {
	principalID, err := uuid.Parse(chi.URLParam(r, "principal_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "unlock_account", err)
		return
	}
	if err := h.service.UnlockAccount(r.Context(), principalID); err != nil {
		writeMappedError(r.Context(), w, "unlock_account", err)
		return
	}
	writeAck(w, http.StatusOK, "Account unlocked")
}
