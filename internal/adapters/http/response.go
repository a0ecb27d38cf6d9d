package http

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the failure envelope shared by every endpoint: a stable
// machine code for clients that branch on failures plus a human message.
// Success payloads are written as-is; only failures are wrapped.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeAck acknowledges an operation that produces no data.
func writeAck(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"message": message})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorResponse{Error: errorDetail{Code: code, Message: message}})
}
