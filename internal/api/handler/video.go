package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/usecase"
)

// Response types

type VideoResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Poster      string  `json:"poster,omitempty"`
	AssetURL    string  `json:"asset_url"`
	AssetPath   string  `json:"asset_path,omitempty"`
	Views       int64   `json:"views"`
	Size        *int64  `json:"size,omitempty"`
	FolderID    string  `json:"folder_id"`
	CreatedAt   string  `json:"created_at,omitempty"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

type VideoListResponse struct {
	Videos     []VideoResponse `json:"videos"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalPages int             `json:"total_pages"`
	CachedAt   string          `json:"cached_at"`
}

type FolderResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	VideoCount  *int64 `json:"video_count,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

type FolderListResponse struct {
	Folders  []FolderResponse `json:"folders"`
	CachedAt string           `json:"cached_at"`
}

// VideoHandler serves the public catalog from the shared snapshot.
type VideoHandler struct {
	catalog usecase.CatalogService
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(catalog usecase.CatalogService) *VideoHandler {
	return &VideoHandler{catalog: catalog}
}

// List handles GET /v1/videos
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, ok := optionalPositiveInt(q.Get("page"))
	if !ok {
		Error(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
		return
	}
	perPage, ok := optionalPositiveInt(q.Get("per_page"))
	if !ok {
		Error(w, http.StatusBadRequest, "invalid_per_page", "per_page must be a positive integer")
		return
	}

	result, err := h.catalog.ListVideos(usecase.VideoFilter{
		FolderID: q.Get("folder"),
		Query:    q.Get("q"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		handleCatalogError(w, err)
		return
	}

	videos := make([]VideoResponse, 0, len(result.Videos))
	for _, v := range result.Videos {
		videos = append(videos, toVideoResponse(v))
	}

	JSON(w, http.StatusOK, VideoListResponse{
		Videos:     videos,
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
		CachedAt:   formatTime(result.CachedAt),
	})
}

// Get handles GET /v1/videos/{id}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	video, err := h.catalog.GetVideo(chi.URLParam(r, "id"))
	if err != nil {
		handleCatalogError(w, err)
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(*video))
}

// Folders handles GET /v1/folders
func (h *VideoHandler) Folders(w http.ResponseWriter, r *http.Request) {
	result, err := h.catalog.ListFolders()
	if err != nil {
		handleCatalogError(w, err)
		return
	}

	folders := make([]FolderResponse, 0, len(result.Folders))
	for _, f := range result.Folders {
		folders = append(folders, toFolderResponse(f))
	}

	JSON(w, http.StatusOK, FolderListResponse{
		Folders:  folders,
		CachedAt: formatTime(result.CachedAt),
	})
}

// optionalPositiveInt parses s; an empty string yields 0 (use the default).
func optionalPositiveInt(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func toVideoResponse(v model.Video) VideoResponse {
	return VideoResponse{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Duration:    v.Duration,
		Thumbnail:   v.Thumbnail,
		Poster:      v.Poster,
		AssetURL:    v.AssetURL,
		AssetPath:   v.AssetPath,
		Views:       v.Views,
		Size:        v.Size,
		FolderID:    v.FolderID,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func toFolderResponse(f model.Folder) FolderResponse {
	return FolderResponse{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		VideoCount:  f.VideoCount,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
