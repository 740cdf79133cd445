package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/usecase"
)

type TotalsResponse struct {
	Videos       int   `json:"videos"`
	Folders      int   `json:"folders"`
	StorageBytes int64 `json:"storage_bytes"`
}

type FolderStatsResponse struct {
	FolderID   string `json:"folder_id"`
	FolderName string `json:"folder_name"`
	VideoCount int    `json:"video_count"`
	TotalSize  int64  `json:"total_size"`
}

type FolderReportResponse struct {
	Folders  []FolderStatsResponse `json:"folders"`
	Totals   TotalsResponse        `json:"totals"`
	CachedAt string                `json:"cached_at"`
}

type CycleReportResponse struct {
	StartedAt       string   `json:"started_at"`
	DurationSeconds float64  `json:"duration_seconds"`
	Folders         int      `json:"folders"`
	Videos          int      `json:"videos"`
	FailedFolders   []string `json:"failed_folders,omitempty"`
	FailedPages     int      `json:"failed_pages"`
	Error           string   `json:"error,omitempty"`
}

type CacheStatusResponse struct {
	Populated      bool                 `json:"populated"`
	Timestamp      string               `json:"timestamp,omitempty"`
	AgeSeconds     float64              `json:"age_seconds"`
	Videos         int                  `json:"videos"`
	Folders        int                  `json:"folders"`
	DanglingVideos int                  `json:"dangling_videos"`
	Refreshing     bool                 `json:"refreshing"`
	LastCycle      *CycleReportResponse `json:"last_cycle,omitempty"`
}

type OverviewResponse struct {
	Totals            TotalsResponse        `json:"totals"`
	Folders           []FolderStatsResponse `json:"folders"`
	ActiveViewers     int64                 `json:"active_viewers"`
	RealtimeAvailable bool                  `json:"realtime_available"`
	Cache             CacheStatusResponse   `json:"cache"`
}

// RefreshTrigger runs a refresh cycle on demand.
type RefreshTrigger interface {
	Refresh(ctx context.Context) (*usecase.CycleReport, error)
}

// AdminHandler serves the admin dashboard and cache controls.
type AdminHandler struct {
	catalog   usecase.CatalogService
	refresher RefreshTrigger
	logger    *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(catalog usecase.CatalogService, refresher RefreshTrigger, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{catalog: catalog, refresher: refresher, logger: logger}
}

// Overview handles GET /v1/admin/overview
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.catalog.Overview(r.Context())
	if err != nil {
		handleCatalogError(w, err)
		return
	}

	JSON(w, http.StatusOK, OverviewResponse{
		Totals:            toTotalsResponse(o.Totals),
		Folders:           toFolderStatsResponses(o.Folders),
		ActiveViewers:     o.ActiveViewers,
		RealtimeAvailable: o.RealtimeAvailable,
		Cache:             toCacheStatusResponse(o.Cache),
	})
}

// Folders handles GET /v1/admin/folders
func (h *AdminHandler) Folders(w http.ResponseWriter, r *http.Request) {
	report, err := h.catalog.FolderStats()
	if err != nil {
		handleCatalogError(w, err)
		return
	}

	JSON(w, http.StatusOK, FolderReportResponse{
		Folders:  toFolderStatsResponses(report.Folders),
		Totals:   toTotalsResponse(report.Totals),
		CachedAt: formatTime(report.CachedAt),
	})
}

// Cache handles GET /v1/admin/cache
// It answers 200 while warming up so operators can watch the first cycle.
func (h *AdminHandler) Cache(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, toCacheStatusResponse(h.catalog.CacheStatus()))
}

// Refresh handles POST /v1/admin/refresh
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.refresher.Refresh(r.Context())
	switch {
	case errors.Is(err, usecase.ErrRefreshInProgress):
		Error(w, http.StatusConflict, "refresh_in_progress", "A refresh cycle is already running")
		return
	case err != nil:
		h.logger.Warn("manual refresh failed", slog.String("error", err.Error()))
		Error(w, http.StatusBadGateway, "refresh_failed", err.Error())
		return
	}

	JSON(w, http.StatusOK, toCycleReportResponse(report))
}

func toTotalsResponse(t model.Totals) TotalsResponse {
	return TotalsResponse{
		Videos:       t.Videos,
		Folders:      t.Folders,
		StorageBytes: t.StorageBytes,
	}
}

func toFolderStatsResponses(stats []model.FolderStats) []FolderStatsResponse {
	out := make([]FolderStatsResponse, 0, len(stats))
	for _, s := range stats {
		out = append(out, FolderStatsResponse{
			FolderID:   s.FolderID,
			FolderName: s.FolderName,
			VideoCount: s.VideoCount,
			TotalSize:  s.TotalSize,
		})
	}
	return out
}

func toCycleReportResponse(r *usecase.CycleReport) *CycleReportResponse {
	if r == nil {
		return nil
	}
	return &CycleReportResponse{
		StartedAt:       formatTime(r.StartedAt),
		DurationSeconds: r.Duration.Seconds(),
		Folders:         r.Folders,
		Videos:          r.Videos,
		FailedFolders:   r.FailedFolders,
		FailedPages:     r.FailedPages,
		Error:           r.Error,
	}
}

func toCacheStatusResponse(st usecase.CacheStatus) CacheStatusResponse {
	return CacheStatusResponse{
		Populated:      st.Populated,
		Timestamp:      formatTime(st.Timestamp),
		AgeSeconds:     st.Age.Seconds(),
		Videos:         st.Videos,
		Folders:        st.Folders,
		DanglingVideos: st.DanglingVideos,
		Refreshing:     st.Refresh.Running,
		LastCycle:      toCycleReportResponse(st.Refresh.LastCycle),
	}
}
