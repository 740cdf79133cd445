package handler

import (
	"net/http"
	"time"

	"github.com/hszk-dev/videohub/internal/usecase"
)

type HealthResponse struct {
	Status string `json:"status"`
}

func Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

type ReadyResponse struct {
	Status             string  `json:"status"`
	SnapshotAgeSeconds float64 `json:"snapshot_age_seconds"`
}

// ReadyHandler reports readiness once the first snapshot is installed.
type ReadyHandler struct {
	snapshots usecase.SnapshotReader
	now       func() time.Time
}

// NewReadyHandler creates a new ReadyHandler.
func NewReadyHandler(snapshots usecase.SnapshotReader) *ReadyHandler {
	return &ReadyHandler{snapshots: snapshots, now: time.Now}
}

// Ready handles GET /ready
func (h *ReadyHandler) Ready(w http.ResponseWriter, r *http.Request) {
	age, ok := h.snapshots.Age(h.now())
	if !ok {
		WarmingUp(w)
		return
	}

	JSON(w, http.StatusOK, ReadyResponse{
		Status:             "ready",
		SnapshotAgeSeconds: age.Seconds(),
	})
}
