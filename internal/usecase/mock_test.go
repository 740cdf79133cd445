package usecase

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/domain/repository"
	"github.com/hszk-dev/videohub/internal/infrastructure/cache"
	"github.com/hszk-dev/videohub/internal/upstream"
)

// mockCatalogSource provides a configurable mock for CatalogSource.
type mockCatalogSource struct {
	listFoldersFn func(ctx context.Context) ([]upstream.RawRecord, error)
	listVideosFn  func(ctx context.Context, folderID string) (*upstream.FolderVideos, error)

	listFoldersCalls atomic.Int32
	listVideosCalls  atomic.Int32
}

func (m *mockCatalogSource) ListFolders(ctx context.Context) ([]upstream.RawRecord, error) {
	m.listFoldersCalls.Add(1)
	if m.listFoldersFn != nil {
		return m.listFoldersFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogSource) ListVideosInFolder(ctx context.Context, folderID string) (*upstream.FolderVideos, error) {
	m.listVideosCalls.Add(1)
	if m.listVideosFn != nil {
		return m.listVideosFn(ctx, folderID)
	}
	return &upstream.FolderVideos{FolderID: folderID, Pages: 1}, nil
}

// mockRealtimeSource provides a configurable mock for RealtimeSource.
type mockRealtimeSource struct {
	realtimeFn func(ctx context.Context) ([]upstream.RawRecord, error)
	calls      atomic.Int32
}

func (m *mockRealtimeSource) Realtime(ctx context.Context) ([]upstream.RawRecord, error) {
	m.calls.Add(1)
	if m.realtimeFn != nil {
		return m.realtimeFn(ctx)
	}
	return nil, nil
}

// mockRealtimeCache is an in-memory RealtimeCache that ignores TTLs.
type mockRealtimeCache struct {
	mu    sync.Mutex
	stats *model.RealtimeStats
	ttl   time.Duration

	getFn func(ctx context.Context) (*model.RealtimeStats, error)
	setFn func(ctx context.Context, stats *model.RealtimeStats, ttl time.Duration) error
}

func (m *mockRealtimeCache) Get(ctx context.Context) (*model.RealtimeStats, error) {
	if m.getFn != nil {
		return m.getFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats, nil
}

func (m *mockRealtimeCache) Set(ctx context.Context, stats *model.RealtimeStats, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, stats, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = stats
	m.ttl = ttl
	return nil
}

func (m *mockRealtimeCache) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = nil
	return nil
}

// mockRealtimeService returns a fixed result.
type mockRealtimeService struct {
	result *RealtimeResult
}

func (m *mockRealtimeService) Get(ctx context.Context) *RealtimeResult {
	return m.result
}

// mockLogRepository provides a configurable mock for LogRepository.
type mockLogRepository struct {
	recentFn func(ctx context.Context, limit int) ([]model.LogEntry, error)
	countFn  func(ctx context.Context) (int, error)
}

func (m *mockLogRepository) Recent(ctx context.Context, limit int) ([]model.LogEntry, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockLogRepository) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

// mockUserRepository provides a configurable mock for UserRepository.
type mockUserRepository struct {
	listFn  func(ctx context.Context) ([]model.User, error)
	countFn func(ctx context.Context) (int, error)
}

func (m *mockUserRepository) List(ctx context.Context) ([]model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserRepository) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

// mockObjectStorage is an in-memory ObjectStorage.
type mockObjectStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	modified map[string]time.Time

	uploadFn   func(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	downloadFn func(ctx context.Context, key string) (io.ReadCloser, error)
	deleteFn   func(ctx context.Context, key string) error
}

func newMockObjectStorage() *mockObjectStorage {
	return &mockObjectStorage{
		objects:  make(map[string][]byte),
		modified: make(map[string]time.Time),
	}
}

func (m *mockObjectStorage) put(key string, data []byte, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.modified[key] = modified
}

func (m *mockObjectStorage) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *mockObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, reader, size, contentType)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.put(key, data, time.Now())
	return nil
}

func (m *mockObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, repository.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockObjectStorage) List(ctx context.Context, prefix string) ([]repository.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.ObjectInfo
	for k, data := range m.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		out = append(out, repository.ObjectInfo{Key: k, Size: int64(len(data)), LastModified: m.modified[k]})
	}
	return out, nil
}

func (m *mockObjectStorage) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.modified, key)
	return nil
}

// staticSnapshots is a SnapshotReader over a fixed snapshot.
type staticSnapshots struct {
	snap *model.Snapshot
}

func (s staticSnapshots) Load() (*model.Snapshot, bool) {
	return s.snap, s.snap != nil
}

func (s staticSnapshots) Age(now time.Time) (time.Duration, bool) {
	if s.snap == nil {
		return 0, false
	}
	return s.snap.Age(now), true
}

// mockAnalyticsStore is an in-memory AnalyticsStore that ignores TTLs.
type mockAnalyticsStore struct {
	mu        sync.Mutex
	sessions  map[string]model.PlaybackSession
	totals    map[string]*model.VideoAnalytics
	ttl       time.Duration
	updateErr error
}

func newMockAnalyticsStore() *mockAnalyticsStore {
	return &mockAnalyticsStore{
		sessions: make(map[string]model.PlaybackSession),
		totals:   make(map[string]*model.VideoAnalytics),
	}
}

func (m *mockAnalyticsStore) CreateSession(ctx context.Context, s *model.PlaybackSession, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	m.ttl = ttl
	return nil
}

func (m *mockAnalyticsStore) UpdateSession(
	ctx context.Context,
	id string,
	fn func(*model.PlaybackSession) (cache.SessionEffect, error),
) (*model.PlaybackSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	stored, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}

	sess := stored
	effect, err := fn(&sess)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = sess

	a := m.video(sess.VideoID)
	if effect.EngagementSecond != nil {
		a.Engagement[*effect.EngagementSecond]++
	}
	if effect.CountView {
		a.TotalViews++
		a.TotalWatchSeconds += sess.WatchSeconds
		if sess.Completed() {
			a.CompletedViews++
		}
		a.RecentSessions = append([]model.PlaybackSession{sess}, a.RecentSessions...)
	}
	return &sess, nil
}

func (m *mockAnalyticsStore) video(videoID string) *model.VideoAnalytics {
	a, ok := m.totals[videoID]
	if !ok {
		a = &model.VideoAnalytics{VideoID: videoID, Engagement: model.Heatmap{}, RecentSessions: []model.PlaybackSession{}}
		m.totals[videoID] = a
	}
	return a
}

func (m *mockAnalyticsStore) VideoAnalytics(ctx context.Context, videoID string) (*model.VideoAnalytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := *m.video(videoID)
	return &a, nil
}

func (m *mockAnalyticsStore) Heatmap(ctx context.Context, videoID string) (model.Heatmap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.video(videoID).Engagement, nil
}
