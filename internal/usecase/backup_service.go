package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/domain/repository"
	"github.com/hszk-dev/videohub/internal/infrastructure/metrics"
)

var (
	// ErrInvalidBackup is returned when a backup document is structurally unusable.
	ErrInvalidBackup = errors.New("invalid backup")

	// ErrStorageNotConfigured is returned when a stored backup is requested without object storage.
	ErrStorageNotConfigured = errors.New("backup storage is not configured")
)

const (
	// Per-record weights used to estimate a backup's size without building it.
	estimatedVideoBytes = 500
	estimatedLogBytes   = 300
	estimatedUserBytes  = 200
)

// CSVHeader is the column order of the CSV video export.
var CSVHeader = []string{"id", "title", "folder_id", "duration", "views", "created_at"}

// BackupServiceConfig holds configuration for BackupService.
type BackupServiceConfig struct {
	// LogLimit caps how many log entries a backup contains.
	LogLimit int
	// Prefix is the object key prefix of stored backups.
	Prefix string
	// Retention is how long stored backups are kept.
	Retention time.Duration
	// MaxRetries is the number of attempts before a queued task is dropped.
	MaxRetries int
}

// DefaultBackupServiceConfig returns the default configuration.
func DefaultBackupServiceConfig() BackupServiceConfig {
	return BackupServiceConfig{
		LogLimit:   10000,
		Prefix:     "backups/",
		Retention:  7 * 24 * time.Hour,
		MaxRetries: 3,
	}
}

// BackupOptions selects the sections of a backup.
type BackupOptions struct {
	IncludeVideos bool
	IncludeLogs   bool
	IncludeUsers  bool
	RequestID     string
	Automated     bool
}

// BackupSummary counts the records of each section.
type BackupSummary struct {
	VideosCount int `json:"videosCount"`
	LogsCount   int `json:"logsCount"`
	UsersCount  int `json:"usersCount"`
}

// VerifyResult is the outcome of verifying a backup document.
type VerifyResult struct {
	Valid    bool                 `json:"valid"`
	Issues   []string             `json:"issues"`
	Metadata model.BackupMetadata `json:"metadata"`
	Summary  BackupSummary        `json:"summary"`
}

// BackupInfo describes what a full backup would contain.
type BackupInfo struct {
	CacheAvailable     bool
	CacheAge           time.Duration
	VideosCount        int
	FoldersCount       int
	LogsCount          int
	UsersCount         int
	EstimatedSizeBytes int64
}

// StoredBackup describes a backup written to object storage.
type StoredBackup struct {
	Key       string
	SizeBytes int
	Verified  bool
	Deleted   int
}

// BackupService builds, verifies and stores backups.
type BackupService interface {
	// Build assembles a backup document from the snapshot and the datastore.
	Build(ctx context.Context, opts BackupOptions) (*model.Backup, error)

	// WriteCSV writes the videos of b as CSV.
	WriteCSV(w io.Writer, b *model.Backup) error

	// Verify checks a serialized backup.
	// Structural problems return ErrInvalidBackup; section problems are reported as issues.
	Verify(data []byte) (*VerifyResult, error)

	// Info returns counts and an estimated size.
	Info(ctx context.Context) (*BackupInfo, error)

	// RunScheduled stores an automated full backup, reads it back to verify it,
	// and deletes stored backups older than the retention period.
	RunScheduled(ctx context.Context) (*StoredBackup, error)

	// ProcessTask handles a queued backup request.
	// Returns nil on success or when retries are exhausted.
	ProcessTask(ctx context.Context, task repository.BackupTask) error
}

type backupService struct {
	snapshots SnapshotReader
	logs      repository.LogRepository
	users     repository.UserRepository
	storage   repository.ObjectStorage

	cfg BackupServiceConfig
	now func() time.Time
}

// NewBackupService creates a new BackupService.
// logs, users and storage may be nil; the matching sections or features are then skipped.
func NewBackupService(
	snapshots SnapshotReader,
	logs repository.LogRepository,
	users repository.UserRepository,
	storage repository.ObjectStorage,
	cfg BackupServiceConfig,
) BackupService {
	if cfg.LogLimit <= 0 {
		cfg.LogLimit = DefaultBackupServiceConfig().LogLimit
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultBackupServiceConfig().Prefix
	}
	return &backupService{
		snapshots: snapshots,
		logs:      logs,
		users:     users,
		storage:   storage,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *backupService) Build(ctx context.Context, opts BackupOptions) (*model.Backup, error) {
	b := &model.Backup{
		Metadata: model.BackupMetadata{
			ExportDate: s.now().UTC().Format(time.RFC3339Nano),
			Version:    model.BackupVersion,
			RequestID:  opts.RequestID,
			Automated:  opts.Automated,
		},
	}

	if opts.IncludeVideos {
		if snap, ok := s.snapshots.Load(); ok {
			b.Data.Videos = videoSection(snap)
		} else {
			slog.Warn("backup without videos, catalog is warming up", "request_id", opts.RequestID)
		}
	}

	if opts.IncludeLogs && s.logs != nil {
		entries, err := s.logs.Recent(ctx, s.cfg.LogLimit)
		if err != nil {
			return nil, fmt.Errorf("load logs: %w", err)
		}
		if entries == nil {
			entries = []model.LogEntry{}
		}
		b.Data.Logs = &model.LogSection{Count: len(entries), Entries: entries}
	}

	if opts.IncludeUsers && s.users != nil {
		users, err := s.users.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load users: %w", err)
		}
		if users == nil {
			users = []model.User{}
		}
		b.Data.Users = &model.UserSection{Count: len(users), Entries: users}
	}

	// Size is measured on the indented document before the size fields are set.
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}
	b.Metadata.SizeBytes = len(data)
	b.Metadata.SizeMB = strconv.FormatFloat(float64(len(data))/1024/1024, 'f', 2, 64)

	return b, nil
}

func videoSection(snap *model.Snapshot) *model.VideoSection {
	section := &model.VideoSection{
		Count:    len(snap.Videos),
		Folders:  make([]model.BackupFolder, 0, len(snap.Folders)),
		Videos:   make([]model.BackupVideo, 0, len(snap.Videos)),
		CachedAt: snap.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	for _, f := range snap.Folders {
		section.Folders = append(section.Folders, model.NewBackupFolder(f))
	}
	for _, v := range snap.Videos {
		section.Videos = append(section.Videos, model.NewBackupVideo(v))
	}
	return section
}

func (s *backupService) WriteCSV(w io.Writer, b *model.Backup) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	if b != nil && b.Data.Videos != nil {
		for _, v := range b.Data.Videos.Videos {
			row := []string{
				v.ID,
				v.Title,
				v.FolderID,
				strconv.FormatFloat(v.Duration, 'f', -1, 64),
				strconv.FormatInt(v.Views, 10),
				v.CreatedAt,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// looseBackup keeps sections raw so wrong JSON types become issues
// instead of decode failures.
type looseBackup struct {
	Metadata *model.BackupMetadata `json:"metadata"`
	Data     *struct {
		Videos *struct {
			Count   int             `json:"count"`
			Videos  json.RawMessage `json:"videos"`
			Folders json.RawMessage `json:"folders"`
		} `json:"videos"`
		Logs *struct {
			Count   int             `json:"count"`
			Entries json.RawMessage `json:"entries"`
		} `json:"logs"`
		Users *struct {
			Count   int             `json:"count"`
			Entries json.RawMessage `json:"entries"`
		} `json:"users"`
	} `json:"data"`
}

func (s *backupService) Verify(data []byte) (*VerifyResult, error) {
	var b looseBackup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if b.Metadata == nil || b.Data == nil {
		return nil, fmt.Errorf("%w: missing metadata or data", ErrInvalidBackup)
	}
	if !slices.Contains(model.SupportedBackupVersions, b.Metadata.Version) {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidBackup, b.Metadata.Version)
	}

	res := &VerifyResult{Issues: []string{}, Metadata: *b.Metadata}

	if v := b.Data.Videos; v != nil {
		if !isJSONArray(v.Videos) {
			res.Issues = append(res.Issues, "Invalid videos array")
		}
		if !isJSONArray(v.Folders) {
			res.Issues = append(res.Issues, "Invalid folders array")
		}
		res.Summary.VideosCount = v.Count
	}
	if l := b.Data.Logs; l != nil {
		if !isJSONArray(l.Entries) {
			res.Issues = append(res.Issues, "Invalid logs array")
		}
		res.Summary.LogsCount = l.Count
	}
	if u := b.Data.Users; u != nil {
		if !isJSONArray(u.Entries) {
			res.Issues = append(res.Issues, "Invalid users array")
		}
		res.Summary.UsersCount = u.Count
	}

	res.Valid = len(res.Issues) == 0
	return res, nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func (s *backupService) Info(ctx context.Context) (*BackupInfo, error) {
	info := &BackupInfo{}

	if snap, ok := s.snapshots.Load(); ok {
		info.CacheAvailable = true
		info.CacheAge = snap.Age(s.now())
		info.VideosCount = len(snap.Videos)
		info.FoldersCount = len(snap.Folders)
	}

	if s.logs != nil {
		n, err := s.logs.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count logs: %w", err)
		}
		info.LogsCount = n
	}

	if s.users != nil {
		n, err := s.users.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count users: %w", err)
		}
		info.UsersCount = n
	}

	info.EstimatedSizeBytes = int64(info.VideosCount)*estimatedVideoBytes +
		int64(info.LogsCount)*estimatedLogBytes +
		int64(info.UsersCount)*estimatedUserBytes

	return info, nil
}

func (s *backupService) RunScheduled(ctx context.Context) (*StoredBackup, error) {
	stored, err := s.store(ctx, BackupOptions{
		IncludeVideos: true,
		IncludeLogs:   true,
		Automated:     true,
	}, "")
	if err != nil {
		metrics.BackupsTotal.WithLabelValues(metrics.BackupTriggerScheduled, metrics.BackupResultError).Inc()
		return nil, err
	}
	metrics.BackupsTotal.WithLabelValues(metrics.BackupTriggerScheduled, metrics.BackupResultSuccess).Inc()

	deleted, err := s.cleanup(ctx)
	if err != nil {
		// Cleanup failures never fail the backup itself.
		slog.Error("backup cleanup failed", "error", err)
	}
	stored.Deleted = deleted

	return stored, nil
}

func (s *backupService) ProcessTask(ctx context.Context, task repository.BackupTask) error {
	if task.RetryCount >= s.cfg.MaxRetries {
		slog.Error("backup task dropped after max retries",
			"task_id", task.TaskID,
			"request_id", task.RequestID,
			"retry_count", task.RetryCount,
		)
		return nil
	}

	_, err := s.store(ctx, BackupOptions{
		IncludeVideos: task.IncludeVideos,
		IncludeLogs:   task.IncludeLogs,
		IncludeUsers:  task.IncludeUsers,
		RequestID:     task.RequestID,
	}, task.TaskID.String())
	if err != nil {
		metrics.BackupsTotal.WithLabelValues(metrics.BackupTriggerTask, metrics.BackupResultError).Inc()
		return fmt.Errorf("backup task %s: %w", task.TaskID, err)
	}

	metrics.BackupsTotal.WithLabelValues(metrics.BackupTriggerTask, metrics.BackupResultSuccess).Inc()
	return nil
}

// store builds a backup, uploads it and verifies the uploaded copy.
func (s *backupService) store(ctx context.Context, opts BackupOptions, suffix string) (*StoredBackup, error) {
	if s.storage == nil {
		return nil, ErrStorageNotConfigured
	}

	b, err := s.Build(ctx, opts)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}

	key := s.backupKey(suffix)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return nil, fmt.Errorf("upload backup: %w", err)
	}

	verified, err := s.verifyStored(ctx, key)
	if err != nil {
		return nil, err
	}

	videos := 0
	if b.Data.Videos != nil {
		videos = b.Data.Videos.Count
	}
	logs := 0
	if b.Data.Logs != nil {
		logs = b.Data.Logs.Count
	}
	slog.Info("backup stored",
		"key", key,
		"size_bytes", len(data),
		"videos", videos,
		"logs", logs,
		"automated", opts.Automated,
	)

	return &StoredBackup{Key: key, SizeBytes: len(data), Verified: verified}, nil
}

func (s *backupService) verifyStored(ctx context.Context, key string) (bool, error) {
	reader, err := s.storage.Download(ctx, key)
	if err != nil {
		return false, fmt.Errorf("download backup for verification: %w", err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return false, fmt.Errorf("read backup for verification: %w", err)
	}

	res, err := s.Verify(data)
	if err != nil {
		return false, fmt.Errorf("verify stored backup: %w", err)
	}
	if !res.Valid {
		slog.Error("stored backup failed verification", "key", key, "issues", res.Issues)
	}
	return res.Valid, nil
}

// cleanup deletes stored backups older than the retention period.
func (s *backupService) cleanup(ctx context.Context) (int, error) {
	if s.cfg.Retention <= 0 {
		return 0, nil
	}

	objects, err := s.storage.List(ctx, s.cfg.Prefix)
	if err != nil {
		return 0, fmt.Errorf("list backups: %w", err)
	}

	cutoff := s.now().Add(-s.cfg.Retention)
	deleted := 0
	var errs []error

	for _, obj := range objects {
		name := path.Base(obj.Key)
		if !strings.HasPrefix(name, "backup-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := s.storage.Delete(ctx, obj.Key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", obj.Key, err))
			continue
		}
		deleted++
	}

	if deleted > 0 {
		slog.Info("cleaned up old backups",
			"deleted", deleted,
			"retention", s.cfg.Retention,
		)
	}

	return deleted, errors.Join(errs...)
}

// backupKey names a backup after its creation time, e.g. backups/backup-2026-01-02T03-04-05-000Z.json.
func (s *backupService) backupKey(suffix string) string {
	ts := s.now().UTC().Format("2006-01-02T15-04-05.000Z")
	ts = strings.ReplaceAll(ts, ".", "-")
	name := "backup-" + ts
	if suffix != "" {
		name += "-" + suffix
	}
	return s.cfg.Prefix + name + ".json"
}
