package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/usecase"
)

// maxAnalyticsBody caps the size of a player report.
const maxAnalyticsBody = 4 << 10

// Request/Response types

type StartSessionRequest struct {
	VideoID string `json:"video_id"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type ProgressRequest struct {
	SessionID   string   `json:"session_id"`
	CurrentTime *float64 `json:"current_time"`
	Duration    float64  `json:"duration"`
	Event       string   `json:"event"`
}

type HeatmapResponse struct {
	VideoID    string        `json:"video_id"`
	Engagement model.Heatmap `json:"engagement"`
}

// AnalyticsHandler records player sessions and serves per-video engagement.
type AnalyticsHandler struct {
	svc    usecase.AnalyticsService
	logger *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc usecase.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, logger: logger}
}

// StartSession handles POST /v1/analytics/session/start
func (h *AnalyticsHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !decodeAnalyticsBody(w, r, &req) {
		return
	}

	sess, err := h.svc.StartSession(r.Context(), req.VideoID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	JSON(w, http.StatusCreated, sess)
}

// Progress handles POST /v1/analytics/session/progress
func (h *AnalyticsHandler) Progress(w http.ResponseWriter, r *http.Request) {
	var req ProgressRequest
	if !decodeAnalyticsBody(w, r, &req) {
		return
	}

	sess, err := h.svc.Progress(r.Context(), usecase.ProgressUpdate{
		SessionID: req.SessionID,
		Position:  req.CurrentTime,
		Duration:  req.Duration,
		Event:     model.PlaybackEvent(req.Event),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	JSON(w, http.StatusOK, sess)
}

// EndSession handles POST /v1/analytics/session/end
func (h *AnalyticsHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !decodeAnalyticsBody(w, r, &req) {
		return
	}

	sess, err := h.svc.EndSession(r.Context(), req.SessionID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	JSON(w, http.StatusOK, sess)
}

// Video handles GET /v1/analytics/video/{id}
func (h *AnalyticsHandler) Video(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.VideoAnalytics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	JSON(w, http.StatusOK, a)
}

// Heatmap handles GET /v1/analytics/video/{id}/heatmap
func (h *AnalyticsHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	heatmap, err := h.svc.Heatmap(r.Context(), videoID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if heatmap == nil {
		heatmap = model.Heatmap{}
	}

	JSON(w, http.StatusOK, HeatmapResponse{VideoID: videoID, Engagement: heatmap})
}

func (h *AnalyticsHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidPlayback):
		Error(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, usecase.ErrSessionNotFound):
		Error(w, http.StatusNotFound, "session_not_found", "Session not found")
	case errors.Is(err, usecase.ErrSessionEnded):
		Error(w, http.StatusConflict, "session_ended", "Session has already ended")
	default:
		h.logger.Error("analytics request failed", slog.String("error", err.Error()))
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// decodeAnalyticsBody reads a JSON report and writes a 400 when it is malformed.
func decodeAnalyticsBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyticsBody)).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return false
	}
	return true
}
