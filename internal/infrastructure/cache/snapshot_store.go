package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/infrastructure/metrics"
)

// SnapshotStore holds the single process-wide catalog snapshot.
// Reads are lock-free. Store is expected to be called by one writer only.
type SnapshotStore struct {
	current atomic.Pointer[model.Snapshot]

	readyOnce sync.Once
	ready     chan struct{}
}

// NewSnapshotStore creates an empty (warming up) store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{ready: make(chan struct{})}
}

// Load returns the installed snapshot, or false while no snapshot has been stored.
// The returned snapshot must not be modified.
func (s *SnapshotStore) Load() (*model.Snapshot, bool) {
	snap := s.current.Load()
	return snap, snap != nil
}

// Age returns how old the installed snapshot is at now.
func (s *SnapshotStore) Age(now time.Time) (time.Duration, bool) {
	snap := s.current.Load()
	if snap == nil {
		return 0, false
	}
	return snap.Age(now), true
}

// Store installs snap in a single atomic swap. Readers holding the previous
// snapshot keep a complete view of it. A nil snap is ignored so the store
// never returns to the warming-up state.
func (s *SnapshotStore) Store(snap *model.Snapshot) {
	if snap == nil {
		return
	}
	s.current.Store(snap)

	metrics.SnapshotVideos.Set(float64(len(snap.Videos)))
	metrics.SnapshotFolders.Set(float64(len(snap.Folders)))
	metrics.SnapshotTimestamp.Set(float64(snap.Timestamp.Unix()))

	s.readyOnce.Do(func() { close(s.ready) })
}

// Ready is closed once the first snapshot has been stored.
func (s *SnapshotStore) Ready() <-chan struct{} {
	return s.ready
}
