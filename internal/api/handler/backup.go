package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/hszk-dev/videohub/internal/domain/repository"
	"github.com/hszk-dev/videohub/internal/usecase"
)

// maxVerifyBody caps the size of an uploaded backup document.
const maxVerifyBody = 64 << 20

// Request/Response types

type EnqueueBackupRequest struct {
	IncludeVideos *bool `json:"include_videos"`
	IncludeLogs   *bool `json:"include_logs"`
	IncludeUsers  *bool `json:"include_users"`
}

type EnqueueBackupResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type BackupInfoResponse struct {
	CacheAvailable     bool    `json:"cache_available"`
	CacheAgeSeconds    float64 `json:"cache_age_seconds"`
	VideosCount        int     `json:"videos_count"`
	FoldersCount       int     `json:"folders_count"`
	LogsCount          int     `json:"logs_count"`
	UsersCount         int     `json:"users_count"`
	EstimatedSizeBytes int64   `json:"estimated_size_bytes"`
	EstimatedSizeMB    string  `json:"estimated_size_mb"`
}

// BackupHandler exports, inspects and verifies backups and queues backup tasks.
type BackupHandler struct {
	svc       usecase.BackupService
	publisher repository.TaskPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewBackupHandler creates a new BackupHandler.
// publisher may be nil, in which case queued backups answer 503.
func NewBackupHandler(svc usecase.BackupService, publisher repository.TaskPublisher, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{svc: svc, publisher: publisher, logger: logger, now: time.Now}
}

// Export handles GET /v1/admin/backup/export
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format := strings.ToLower(q.Get("format"))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		Error(w, http.StatusBadRequest, "invalid_format", "format must be json or csv")
		return
	}

	opts := usecase.BackupOptions{RequestID: chimw.GetReqID(r.Context())}
	var ok bool
	if opts.IncludeVideos, ok = boolParam(q.Get("includeVideos"), true); !ok {
		Error(w, http.StatusBadRequest, "invalid_parameter", "includeVideos must be a boolean")
		return
	}
	if opts.IncludeLogs, ok = boolParam(q.Get("includeLogs"), true); !ok {
		Error(w, http.StatusBadRequest, "invalid_parameter", "includeLogs must be a boolean")
		return
	}
	if opts.IncludeUsers, ok = boolParam(q.Get("includeUsers"), true); !ok {
		Error(w, http.StatusBadRequest, "invalid_parameter", "includeUsers must be a boolean")
		return
	}
	// CSV only carries videos.
	if format == "csv" {
		opts.IncludeLogs = false
		opts.IncludeUsers = false
	}

	backup, err := h.svc.Build(r.Context(), opts)
	if err != nil {
		h.logger.Error("backup export failed",
			slog.String("request_id", opts.RequestID),
			slog.String("error", err.Error()),
		)
		Error(w, http.StatusInternalServerError, "backup_failed", "Failed to build backup")
		return
	}

	stamp := h.now().UTC().Format("2006-01-02")
	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="videos-%s.csv"`, stamp))
		if err := h.svc.WriteCSV(w, backup); err != nil {
			h.logger.Error("csv export failed", slog.String("error", err.Error()))
		}
		return
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		Error(w, http.StatusInternalServerError, "backup_failed", "Failed to encode backup")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="backup-%s.json"`, stamp))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Info handles GET /v1/admin/backup/info
func (h *BackupHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Info(r.Context())
	if err != nil {
		h.logger.Error("backup info failed", slog.String("error", err.Error()))
		Error(w, http.StatusInternalServerError, "internal_error", "Failed to collect backup info")
		return
	}

	JSON(w, http.StatusOK, BackupInfoResponse{
		CacheAvailable:     info.CacheAvailable,
		CacheAgeSeconds:    info.CacheAge.Seconds(),
		VideosCount:        info.VideosCount,
		FoldersCount:       info.FoldersCount,
		LogsCount:          info.LogsCount,
		UsersCount:         info.UsersCount,
		EstimatedSizeBytes: info.EstimatedSizeBytes,
		EstimatedSizeMB:    strconv.FormatFloat(float64(info.EstimatedSizeBytes)/1024/1024, 'f', 2, 64),
	})
}

// Verify handles POST /v1/admin/backup/verify
func (h *BackupHandler) Verify(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxVerifyBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "backup_too_large", "Backup exceeds the upload limit")
			return
		}
		Error(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return
	}

	result, err := h.svc.Verify(data)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidBackup) {
			Error(w, http.StatusBadRequest, "invalid_backup", err.Error())
			return
		}
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	JSON(w, http.StatusOK, result)
}

// Enqueue handles POST /v1/admin/backups
// The body is optional; every section defaults to included.
func (h *BackupHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		Error(w, http.StatusServiceUnavailable, "queue_unavailable", "Backup queue is not configured")
		return
	}

	var req EnqueueBackupRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
			return
		}
	}

	task := repository.BackupTask{
		TaskID:        uuid.New(),
		RequestID:     chimw.GetReqID(r.Context()),
		IncludeVideos: boolOr(req.IncludeVideos, true),
		IncludeLogs:   boolOr(req.IncludeLogs, true),
		IncludeUsers:  boolOr(req.IncludeUsers, true),
	}

	if err := h.publisher.PublishBackupTask(r.Context(), task); err != nil {
		h.logger.Error("failed to enqueue backup task",
			slog.String("task_id", task.TaskID.String()),
			slog.String("error", err.Error()),
		)
		Error(w, http.StatusServiceUnavailable, "queue_unavailable", "Failed to enqueue backup task")
		return
	}

	JSON(w, http.StatusAccepted, EnqueueBackupResponse{
		TaskID: task.TaskID.String(),
		Status: "queued",
	})
}

// boolParam parses an optional boolean query value.
func boolParam(s string, def bool) (bool, bool) {
	if s == "" {
		return def, true
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return v, true
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
