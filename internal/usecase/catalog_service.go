package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/hszk-dev/videohub/internal/domain/model"
)

var (
	// ErrSnapshotUnavailable is returned while no snapshot has been installed yet.
	ErrSnapshotUnavailable = errors.New("catalog is warming up")

	// ErrVideoNotFound is returned when a video is not in the current snapshot.
	ErrVideoNotFound = errors.New("video not found")
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// VideoFilter selects and pages videos from the snapshot.
type VideoFilter struct {
	FolderID string
	// Query matches title or description, case-insensitively.
	Query   string
	Page    int
	PerPage int
}

// VideoPage is one page of filtered videos.
type VideoPage struct {
	Videos     []model.Video
	Total      int
	Page       int
	PerPage    int
	TotalPages int
	CachedAt   time.Time
}

// FolderList is every folder of the snapshot.
type FolderList struct {
	Folders  []model.Folder
	CachedAt time.Time
}

// FolderReport is the storage breakdown per folder plus snapshot totals.
type FolderReport struct {
	Folders  []model.FolderStats
	Totals   model.Totals
	CachedAt time.Time
}

// CacheStatus describes the shared snapshot.
type CacheStatus struct {
	Populated      bool
	Timestamp      time.Time
	Age            time.Duration
	Videos         int
	Folders        int
	DanglingVideos int
	Refresh        RefreshStatus
}

// Overview is the admin dashboard summary.
type Overview struct {
	Totals            model.Totals
	Folders           []model.FolderStats
	ActiveViewers     int64
	RealtimeAvailable bool
	Cache             CacheStatus
}

// CatalogService serves read-only views of the shared snapshot.
// It never calls upstream per request.
type CatalogService interface {
	// ListVideos returns the filtered page of videos.
	ListVideos(filter VideoFilter) (*VideoPage, error)

	// GetVideo returns one video by ID.
	GetVideo(id string) (*model.Video, error)

	// ListFolders returns every folder.
	ListFolders() (*FolderList, error)

	// FolderStats returns the per-folder breakdown and totals.
	FolderStats() (*FolderReport, error)

	// Overview combines totals, folder breakdown, active viewers and cache status.
	Overview(ctx context.Context) (*Overview, error)

	// CacheStatus reports the snapshot state. It never fails.
	CacheStatus() CacheStatus
}

// RefreshStatusProvider exposes the refresher state.
type RefreshStatusProvider interface {
	Status() RefreshStatus
}

type catalogService struct {
	snapshots SnapshotReader
	refresher RefreshStatusProvider
	realtime  RealtimeService
	now       func() time.Time
}

// NewCatalogService creates a new CatalogService.
// refresher and realtime may be nil.
func NewCatalogService(
	snapshots SnapshotReader,
	refresher RefreshStatusProvider,
	realtime RealtimeService,
) CatalogService {
	return &catalogService{
		snapshots: snapshots,
		refresher: refresher,
		realtime:  realtime,
		now:       time.Now,
	}
}

func (s *catalogService) load() (*model.Snapshot, error) {
	snap, ok := s.snapshots.Load()
	if !ok {
		return nil, ErrSnapshotUnavailable
	}
	return snap, nil
}

// ListVideos filters the snapshot in its stored order and returns one page.
func (s *catalogService) ListVideos(filter VideoFilter) (*VideoPage, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))

	matched := make([]model.Video, 0, len(snap.Videos))
	for _, v := range snap.Videos {
		if filter.FolderID != "" && v.FolderID != filter.FolderID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(v.Title), query) &&
			!strings.Contains(strings.ToLower(v.Description), query) {
			continue
		}
		matched = append(matched, v)
	}

	total := len(matched)
	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return &VideoPage{
		Videos:     matched[start:end],
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		CachedAt:   snap.Timestamp,
	}, nil
}

// GetVideo returns a copy of the video with the given ID.
func (s *catalogService) GetVideo(id string) (*model.Video, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}

	v, ok := snap.FindVideo(id)
	if !ok {
		return nil, ErrVideoNotFound
	}
	return &v, nil
}

func (s *catalogService) ListFolders() (*FolderList, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	return &FolderList{Folders: slices.Clone(snap.Folders), CachedAt: snap.Timestamp}, nil
}

func (s *catalogService) FolderStats() (*FolderReport, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	return &FolderReport{
		Folders:  model.FolderBreakdown(snap),
		Totals:   model.ComputeTotals(snap),
		CachedAt: snap.Timestamp,
	}, nil
}

// Overview needs a snapshot. Realtime stats are best effort.
func (s *catalogService) Overview(ctx context.Context) (*Overview, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}

	o := &Overview{
		Totals:  model.ComputeTotals(snap),
		Folders: model.FolderBreakdown(snap),
		Cache:   s.CacheStatus(),
	}

	if s.realtime != nil {
		rt := s.realtime.Get(ctx)
		o.ActiveViewers = rt.Stats.TotalViewers()
		o.RealtimeAvailable = !rt.Unavailable
	}

	return o, nil
}

func (s *catalogService) CacheStatus() CacheStatus {
	var st CacheStatus
	if s.refresher != nil {
		st.Refresh = s.refresher.Status()
	}

	snap, ok := s.snapshots.Load()
	if !ok {
		return st
	}

	st.Populated = true
	st.Timestamp = snap.Timestamp
	st.Age = snap.Age(s.now())
	st.Videos = len(snap.Videos)
	st.Folders = len(snap.Folders)
	st.DanglingVideos = snap.DanglingVideos()
	return st
}
