package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/infrastructure/metrics"
	"github.com/hszk-dev/videohub/internal/upstream"
)

var (
	// ErrRefreshInProgress is returned by a manual refresh while another cycle is running.
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// ErrNoFolderFetched is returned when folders were listed but none of them
	// could be fetched. The previous snapshot is kept.
	ErrNoFolderFetched = errors.New("no folder could be fetched")
)

// CatalogSource is the upstream API as seen by the refresher.
type CatalogSource interface {
	ListFolders(ctx context.Context) ([]upstream.RawRecord, error)
	ListVideosInFolder(ctx context.Context, folderID string) (*upstream.FolderVideos, error)
}

// SnapshotReader is the read side of the shared snapshot.
type SnapshotReader interface {
	Load() (*model.Snapshot, bool)
	Age(now time.Time) (time.Duration, bool)
}

// SnapshotWriter installs snapshots. Only the refresher writes.
type SnapshotWriter interface {
	SnapshotReader
	Store(snap *model.Snapshot)
}

// RefresherConfig holds configuration for Refresher.
type RefresherConfig struct {
	// Interval is the time between scheduled cycles.
	Interval time.Duration
	// FolderConcurrency bounds how many folders are fetched at once.
	FolderConcurrency int
	// CycleTimeout bounds one whole cycle.
	CycleTimeout time.Duration
}

// DefaultRefresherConfig returns the default configuration.
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Interval:          60 * time.Second,
		FolderConcurrency: 3,
		CycleTimeout:      2 * time.Minute,
	}
}

// CycleReport describes one completed or failed refresh cycle.
type CycleReport struct {
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	Folders       int           `json:"folders"`
	Videos        int           `json:"videos"`
	FailedFolders []string      `json:"failed_folders,omitempty"`
	FailedPages   int           `json:"failed_pages"`
	Error         string        `json:"error,omitempty"`
}

// RefreshStatus is the refresher state exposed to admin endpoints.
type RefreshStatus struct {
	Running   bool         `json:"running"`
	LastCycle *CycleReport `json:"last_cycle,omitempty"`
}

// Refresher rebuilds the catalog snapshot from upstream on a fixed interval.
// At most one cycle runs at a time. A failed cycle keeps the previous snapshot.
type Refresher struct {
	source     CatalogSource
	normalizer upstream.Normalizer
	store      SnapshotWriter
	cfg        RefresherConfig
	now        func() time.Time

	running atomic.Bool
	sf      singleflight.Group

	mu   sync.RWMutex
	last *CycleReport
}

// NewRefresher creates a new Refresher.
func NewRefresher(
	source CatalogSource,
	normalizer upstream.Normalizer,
	store SnapshotWriter,
	cfg RefresherConfig,
) *Refresher {
	if cfg.FolderConcurrency <= 0 {
		cfg.FolderConcurrency = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefresherConfig().Interval
	}
	return &Refresher{
		source:     source,
		normalizer: normalizer,
		store:      store,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run starts a cycle immediately and then one per interval until ctx is done.
// Ticks that fire while a cycle is still running are skipped.
func (r *Refresher) Run(ctx context.Context) {
	slog.Info("refresher started",
		"interval", r.cfg.Interval,
		"folder_concurrency", r.cfg.FolderConcurrency,
	)

	r.tick(ctx)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	// Run returns only after in-flight ticks have finished, so no snapshot
	// is installed once it has returned.
	var ticks sync.WaitGroup
	defer ticks.Wait()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresher stopped")
			return
		case <-ticker.C:
			// A cycle may outlast the interval, so ticks run asynchronously
			// and rely on the in-progress guard.
			ticks.Add(1)
			go func() {
				defer ticks.Done()
				r.tick(ctx)
			}()
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		metrics.RefreshCyclesTotal.WithLabelValues(metrics.RefreshSkipped).Inc()
		slog.Warn("refresh tick skipped, previous cycle still running")
		return
	}
	defer r.running.Store(false)

	// Errors are already logged and recorded by cycle.
	_, _ = r.cycle(ctx)
}

// Refresh runs a cycle on demand. Concurrent callers share one cycle. If a
// scheduled cycle is already running it returns ErrRefreshInProgress.
func (r *Refresher) Refresh(ctx context.Context) (*CycleReport, error) {
	result, err, shared := r.sf.Do("refresh", func() (any, error) {
		if !r.running.CompareAndSwap(false, true) {
			return nil, ErrRefreshInProgress
		}
		defer r.running.Store(false)

		// Detach from the first caller so a disconnect does not abort the
		// cycle other callers are waiting on.
		return r.cycle(context.WithoutCancel(ctx))
	})
	metrics.RecordSingleflight(metrics.SingleflightGroupRefresh, shared)

	report, _ := result.(*CycleReport)
	return report, err
}

// Status reports whether a cycle is running and the outcome of the last one.
func (r *Refresher) Status() RefreshStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RefreshStatus{
		Running:   r.running.Load(),
		LastCycle: r.last,
	}
}

// cycle fetches every folder and its videos and installs the result as one snapshot.
func (r *Refresher) cycle(ctx context.Context) (*CycleReport, error) {
	if r.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CycleTimeout)
		defer cancel()
	}

	start := r.now()
	report := &CycleReport{StartedAt: start}

	snap, err := r.build(ctx, report)
	report.Duration = r.now().Sub(start)

	if err != nil {
		report.Error = err.Error()
		r.record(report)
		metrics.RefreshCyclesTotal.WithLabelValues(metrics.RefreshFailed).Inc()

		_, populated := r.store.Load()
		slog.Error("refresh cycle failed, keeping previous snapshot",
			"error", err,
			"has_snapshot", populated,
			"duration", report.Duration,
		)
		return report, err
	}

	r.store.Store(snap)
	r.record(report)
	metrics.RefreshCyclesTotal.WithLabelValues(metrics.RefreshSuccess).Inc()
	metrics.RefreshDuration.Observe(report.Duration.Seconds())

	slog.Info("snapshot refreshed",
		"folders", report.Folders,
		"videos", report.Videos,
		"failed_folders", len(report.FailedFolders),
		"failed_pages", report.FailedPages,
		"duration", report.Duration,
	)
	return report, nil
}

func (r *Refresher) build(ctx context.Context, report *CycleReport) (*model.Snapshot, error) {
	rawFolders, err := r.source.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	folders := make([]model.Folder, 0, len(rawFolders))
	for _, raw := range rawFolders {
		folders = append(folders, r.normalizer.Folder(raw))
	}

	perFolder := make([][]model.Video, len(folders))
	failed := make([]bool, len(folders))
	failedPages := make([]int, len(folders))

	var g errgroup.Group
	g.SetLimit(r.cfg.FolderConcurrency)

	for i, folder := range folders {
		g.Go(func() error {
			fv, err := r.source.ListVideosInFolder(ctx, folder.ID)
			if err != nil {
				slog.Warn("folder fetch failed",
					"folder_id", folder.ID,
					"error", err,
				)
				failed[i] = true
				return nil
			}

			videos := make([]model.Video, 0, len(fv.Videos))
			for _, raw := range fv.Videos {
				videos = append(videos, r.normalizer.Video(raw, folder.ID))
			}
			perFolder[i] = videos
			failedPages[i] = len(fv.FailedPages)
			return nil
		})
	}

	// Folder goroutines never return errors.
	_ = g.Wait()

	var total int
	for i := range folders {
		if failed[i] {
			report.FailedFolders = append(report.FailedFolders, folders[i].ID)
			continue
		}
		total += len(perFolder[i])
		report.FailedPages += failedPages[i]
	}

	if len(folders) > 0 && len(report.FailedFolders) == len(folders) {
		return nil, ErrNoFolderFetched
	}

	videos := make([]model.Video, 0, total)
	for _, vs := range perFolder {
		videos = append(videos, vs...)
	}

	report.Folders = len(folders)
	report.Videos = len(videos)

	return &model.Snapshot{
		Videos:    videos,
		Folders:   folders,
		Timestamp: r.now(),
	}, nil
}

func (r *Refresher) record(report *CycleReport) {
	r.mu.Lock()
	r.last = report
	r.mu.Unlock()
}
