package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hszk-dev/videohub/internal/usecase"
)

// warmingUpRetryAfter is the Retry-After hint sent while no snapshot exists.
const warmingUpRetryAfter = "5"

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func Error(w http.ResponseWriter, status int, err string, message string) {
	JSON(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

// WarmingUp reports that the first snapshot has not been installed yet.
func WarmingUp(w http.ResponseWriter) {
	w.Header().Set("Retry-After", warmingUpRetryAfter)
	Error(w, http.StatusServiceUnavailable, "warming_up", "The catalog cache is being populated, retry shortly")
}

// handleCatalogError maps catalog read errors to responses.
func handleCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrSnapshotUnavailable):
		WarmingUp(w)
	case errors.Is(err, usecase.ErrVideoNotFound):
		Error(w, http.StatusNotFound, "video_not_found", "Video not found")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
