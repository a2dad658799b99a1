package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/krshsl/hireagent/backend/interview"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// sessionErrorBody maps a session operation error to its HTTP status and body.
// Unexpected failures are reported with every known secret scrubbed.
func sessionErrorBody(err error, secrets ...string) (int, map[string]string) {
	switch {
	case errors.Is(err, interview.ErrMissingIdentity):
		return http.StatusForbidden, map[string]string{"detail": "Email is missing"}
	case errors.Is(err, interview.ErrOrderNotFound):
		return http.StatusNotFound, map[string]string{"error": "Order not found"}
	case errors.Is(err, interview.ErrApplicantNotFound):
		return http.StatusNotFound, map[string]string{"error": "Applicant not found"}
	case errors.Is(err, interview.ErrNotFound):
		return http.StatusNotFound, map[string]string{"error": "Session not found"}
	case errors.Is(err, interview.ErrInvalidInput):
		return http.StatusBadRequest, map[string]string{"error": err.Error()}
	default:
		return http.StatusInternalServerError, map[string]string{"error": RedactSecrets(err.Error(), secrets...)}
	}
}

func writeSessionError(w http.ResponseWriter, err error, secrets ...string) {
	status, body := sessionErrorBody(err, secrets...)
	if status == http.StatusInternalServerError {
		slog.Error("Session turn failed", "error", body["error"])
	}
	writeJSON(w, status, body)
}
