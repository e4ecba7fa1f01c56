package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Values of the "status" field in response envelopes.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

// WriteStatus writes the {"status", "message"} envelope used by the ingestion
// and dashboard endpoints.
func WriteStatus(w http.ResponseWriter, code int, status string, msg string) {
	WriteJSON(w, code, map[string]any{
		"status":  status,
		"message": msg,
	})
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]any{
		"status":  StatusError,
		"error":   http.StatusText(status),
		"message": msg,
	})
}
