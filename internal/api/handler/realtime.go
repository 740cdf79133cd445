package handler

import (
	"net/http"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/usecase"
)

type RealtimeResponse struct {
	Items        []model.RealtimeItem `json:"items"`
	TotalViewers int64                `json:"total_viewers"`
	FetchedAt    string               `json:"fetched_at"`
	Stale        bool                 `json:"stale"`
	Unavailable  bool                 `json:"unavailable"`
}

// RealtimeHandler serves live viewer counts.
type RealtimeHandler struct {
	svc usecase.RealtimeService
}

// NewRealtimeHandler creates a new RealtimeHandler.
func NewRealtimeHandler(svc usecase.RealtimeService) *RealtimeHandler {
	return &RealtimeHandler{svc: svc}
}

// Get handles GET /v1/realtime
// Upstream failures degrade to stale or empty stats, never to an error status.
func (h *RealtimeHandler) Get(w http.ResponseWriter, r *http.Request) {
	result := h.svc.Get(r.Context())

	items := result.Stats.Items
	if items == nil {
		items = []model.RealtimeItem{}
	}

	JSON(w, http.StatusOK, RealtimeResponse{
		Items:        items,
		TotalViewers: result.Stats.TotalViewers(),
		FetchedAt:    formatTime(result.Stats.FetchedAt),
		Stale:        result.Stale,
		Unavailable:  result.Unavailable,
	})
}
