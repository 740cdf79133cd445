package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/upstream"
)

func newTestRealtimeService(source RealtimeSource, c *mockRealtimeCache, now time.Time) *realtimeService {
	svc := NewRealtimeService(source, c, upstream.NewNormalizer(""), DefaultRealtimeServiceConfig()).(*realtimeService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestRealtimeService_FreshCacheHit(t *testing.T) {
	now := time.Now()
	c := &mockRealtimeCache{stats: &model.RealtimeStats{
		Items:     []model.RealtimeItem{{VideoID: "v1", Viewers: 2}},
		FetchedAt: now.Add(-10 * time.Second),
	}}
	source := &mockRealtimeSource{}

	got := newTestRealtimeService(source, c, now).Get(context.Background())

	assert.False(t, got.Stale)
	assert.False(t, got.Unavailable)
	assert.Equal(t, int64(2), got.Stats.TotalViewers())
	assert.Equal(t, int32(0), source.calls.Load(), "fresh cache must not call upstream")
}

func TestRealtimeService_ExpiredCacheRefetches(t *testing.T) {
	now := time.Now()
	c := &mockRealtimeCache{stats: &model.RealtimeStats{FetchedAt: now.Add(-time.Minute)}}
	source := &mockRealtimeSource{
		realtimeFn: func(ctx context.Context) ([]upstream.RawRecord, error) {
			return []upstream.RawRecord{{"id": "v1", "realtime": 5}, {"id": "v2", "realtime": "3"}}, nil
		},
	}

	got := newTestRealtimeService(source, c, now).Get(context.Background())

	assert.False(t, got.Stale)
	assert.Equal(t, int64(8), got.Stats.TotalViewers())
	assert.Equal(t, now, got.Stats.FetchedAt)

	// The fresh result is cached for the stale window.
	require.NotNil(t, c.stats)
	assert.Equal(t, 10*time.Minute, c.ttl)
	assert.Len(t, c.stats.Items, 2)
}

func TestRealtimeService_StaleFallback(t *testing.T) {
	now := time.Now()
	old := &model.RealtimeStats{
		Items:     []model.RealtimeItem{{VideoID: "v1", Viewers: 7}},
		FetchedAt: now.Add(-5 * time.Minute),
	}
	c := &mockRealtimeCache{stats: old}
	source := &mockRealtimeSource{
		realtimeFn: func(ctx context.Context) ([]upstream.RawRecord, error) {
			return nil, upstream.ErrTimeout
		},
	}

	got := newTestRealtimeService(source, c, now).Get(context.Background())

	assert.True(t, got.Stale)
	assert.False(t, got.Unavailable)
	assert.Same(t, old, got.Stats)
}

func TestRealtimeService_UnavailableWithoutCache(t *testing.T) {
	source := &mockRealtimeSource{
		realtimeFn: func(ctx context.Context) ([]upstream.RawRecord, error) {
			return nil, errors.New("boom")
		},
	}

	got := newTestRealtimeService(source, &mockRealtimeCache{}, time.Now()).Get(context.Background())

	assert.True(t, got.Unavailable)
	require.NotNil(t, got.Stats)
	assert.Empty(t, got.Stats.Items)
	assert.NotNil(t, got.Stats.Items, "items must encode as an empty list")
}

func TestRealtimeService_CacheErrorsAreNotFatal(t *testing.T) {
	c := &mockRealtimeCache{
		getFn: func(ctx context.Context) (*model.RealtimeStats, error) {
			return nil, errors.New("redis down")
		},
		setFn: func(ctx context.Context, stats *model.RealtimeStats, ttl time.Duration) error {
			return errors.New("redis down")
		},
	}
	source := &mockRealtimeSource{
		realtimeFn: func(ctx context.Context) ([]upstream.RawRecord, error) {
			return []upstream.RawRecord{{"id": "v1", "realtime": 1}}, nil
		},
	}

	got := newTestRealtimeService(source, c, time.Now()).Get(context.Background())

	assert.False(t, got.Unavailable)
	assert.Equal(t, int64(1), got.Stats.TotalViewers())
}

func TestRealtimeService_ConcurrentMissesShareFetch(t *testing.T) {
	release := make(chan struct{})
	source := &mockRealtimeSource{
		realtimeFn: func(ctx context.Context) ([]upstream.RawRecord, error) {
			<-release
			return []upstream.RawRecord{{"id": "v1", "realtime": 1}}, nil
		},
	}
	// The cache stays empty so every caller misses.
	c := &mockRealtimeCache{
		setFn: func(ctx context.Context, stats *model.RealtimeStats, ttl time.Duration) error { return nil },
	}
	svc := newTestRealtimeService(source, c, time.Now())

	const callers = 10
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := svc.Get(context.Background())
			assert.Equal(t, int64(1), got.Stats.TotalViewers())
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), source.calls.Load())
}
