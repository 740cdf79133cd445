package cache

import (
	"context"
	"time"

	"github.com/hszk-dev/videohub/internal/domain/model"
)

// RealtimeCache stores the latest realtime viewer stats.
// Implementations should handle serialization transparently.
type RealtimeCache interface {
	// Get returns the cached stats.
	// Returns nil, nil on a cache miss.
	Get(ctx context.Context) (*model.RealtimeStats, error)

	// Set stores stats for ttl. Freshness is judged by the caller from
	// RealtimeStats.FetchedAt, so ttl is how long a stale copy may still be served.
	Set(ctx context.Context, stats *model.RealtimeStats, ttl time.Duration) error

	// Delete drops the cached stats. Returns nil if nothing was cached.
	Delete(ctx context.Context) error
}
