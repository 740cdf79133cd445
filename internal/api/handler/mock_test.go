package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/domain/repository"
	"github.com/hszk-dev/videohub/internal/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCatalogService provides a configurable mock for usecase.CatalogService.
type mockCatalogService struct {
	listVideosFn  func(filter usecase.VideoFilter) (*usecase.VideoPage, error)
	getVideoFn    func(id string) (*model.Video, error)
	listFoldersFn func() (*usecase.FolderList, error)
	folderStatsFn func() (*usecase.FolderReport, error)
	overviewFn    func(ctx context.Context) (*usecase.Overview, error)
	cacheStatus   usecase.CacheStatus
}

func (m *mockCatalogService) ListVideos(filter usecase.VideoFilter) (*usecase.VideoPage, error) {
	if m.listVideosFn != nil {
		return m.listVideosFn(filter)
	}
	return nil, usecase.ErrSnapshotUnavailable
}

func (m *mockCatalogService) GetVideo(id string) (*model.Video, error) {
	if m.getVideoFn != nil {
		return m.getVideoFn(id)
	}
	return nil, usecase.ErrSnapshotUnavailable
}

func (m *mockCatalogService) ListFolders() (*usecase.FolderList, error) {
	if m.listFoldersFn != nil {
		return m.listFoldersFn()
	}
	return nil, usecase.ErrSnapshotUnavailable
}

func (m *mockCatalogService) FolderStats() (*usecase.FolderReport, error) {
	if m.folderStatsFn != nil {
		return m.folderStatsFn()
	}
	return nil, usecase.ErrSnapshotUnavailable
}

func (m *mockCatalogService) Overview(ctx context.Context) (*usecase.Overview, error) {
	if m.overviewFn != nil {
		return m.overviewFn(ctx)
	}
	return nil, usecase.ErrSnapshotUnavailable
}

func (m *mockCatalogService) CacheStatus() usecase.CacheStatus {
	return m.cacheStatus
}

// mockRealtimeService returns a fixed result.
type mockRealtimeService struct {
	result *usecase.RealtimeResult
}

func (m *mockRealtimeService) Get(ctx context.Context) *usecase.RealtimeResult {
	return m.result
}

// mockRefresher provides a configurable mock for RefreshTrigger.
type mockRefresher struct {
	refreshFn func(ctx context.Context) (*usecase.CycleReport, error)
}

func (m *mockRefresher) Refresh(ctx context.Context) (*usecase.CycleReport, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx)
	}
	return &usecase.CycleReport{}, nil
}

// mockBackupService provides a configurable mock for usecase.BackupService.
type mockBackupService struct {
	buildFn    func(ctx context.Context, opts usecase.BackupOptions) (*model.Backup, error)
	writeCSVFn func(w io.Writer, b *model.Backup) error
	verifyFn   func(data []byte) (*usecase.VerifyResult, error)
	infoFn     func(ctx context.Context) (*usecase.BackupInfo, error)
}

func (m *mockBackupService) Build(ctx context.Context, opts usecase.BackupOptions) (*model.Backup, error) {
	if m.buildFn != nil {
		return m.buildFn(ctx, opts)
	}
	return &model.Backup{}, nil
}

func (m *mockBackupService) WriteCSV(w io.Writer, b *model.Backup) error {
	if m.writeCSVFn != nil {
		return m.writeCSVFn(w, b)
	}
	return nil
}

func (m *mockBackupService) Verify(data []byte) (*usecase.VerifyResult, error) {
	if m.verifyFn != nil {
		return m.verifyFn(data)
	}
	return &usecase.VerifyResult{Valid: true}, nil
}

func (m *mockBackupService) Info(ctx context.Context) (*usecase.BackupInfo, error) {
	if m.infoFn != nil {
		return m.infoFn(ctx)
	}
	return &usecase.BackupInfo{}, nil
}

func (m *mockBackupService) RunScheduled(ctx context.Context) (*usecase.StoredBackup, error) {
	return nil, nil
}

func (m *mockBackupService) ProcessTask(ctx context.Context, task repository.BackupTask) error {
	return nil
}

// mockPublisher records published tasks.
type mockPublisher struct {
	published []repository.BackupTask
	err       error
}

func (m *mockPublisher) PublishBackupTask(ctx context.Context, task repository.BackupTask) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, task)
	return nil
}

// fixedSnapshots is a usecase.SnapshotReader with a fixed age.
type fixedSnapshots struct {
	populated bool
	age       time.Duration
}

func (f fixedSnapshots) Load() (*model.Snapshot, bool) {
	if !f.populated {
		return nil, false
	}
	return &model.Snapshot{}, true
}

func (f fixedSnapshots) Age(now time.Time) (time.Duration, bool) {
	return f.age, f.populated
}

// mockAnalyticsService provides a configurable mock for usecase.AnalyticsService.
type mockAnalyticsService struct {
	startFn    func(ctx context.Context, videoID string) (*model.PlaybackSession, error)
	progressFn func(ctx context.Context, update usecase.ProgressUpdate) (*model.PlaybackSession, error)
	endFn      func(ctx context.Context, sessionID string) (*model.PlaybackSession, error)
	videoFn    func(ctx context.Context, videoID string) (*model.VideoAnalytics, error)
	heatmapFn  func(ctx context.Context, videoID string) (model.Heatmap, error)
}

func (m *mockAnalyticsService) StartSession(ctx context.Context, videoID string) (*model.PlaybackSession, error) {
	if m.startFn != nil {
		return m.startFn(ctx, videoID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAnalyticsService) Progress(ctx context.Context, update usecase.ProgressUpdate) (*model.PlaybackSession, error) {
	if m.progressFn != nil {
		return m.progressFn(ctx, update)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAnalyticsService) EndSession(ctx context.Context, sessionID string) (*model.PlaybackSession, error) {
	if m.endFn != nil {
		return m.endFn(ctx, sessionID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAnalyticsService) VideoAnalytics(ctx context.Context, videoID string) (*model.VideoAnalytics, error) {
	if m.videoFn != nil {
		return m.videoFn(ctx, videoID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAnalyticsService) Heatmap(ctx context.Context, videoID string) (model.Heatmap, error) {
	if m.heatmapFn != nil {
		return m.heatmapFn(ctx, videoID)
	}
	return nil, errors.New("not implemented")
}
