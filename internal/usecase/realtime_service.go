package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/infrastructure/cache"
	"github.com/hszk-dev/videohub/internal/infrastructure/metrics"
	"github.com/hszk-dev/videohub/internal/upstream"
)

// RealtimeSource fetches live viewer records from upstream.
type RealtimeSource interface {
	Realtime(ctx context.Context) ([]upstream.RawRecord, error)
}

// RealtimeServiceConfig holds configuration for RealtimeService.
type RealtimeServiceConfig struct {
	// FreshTTL is how long cached stats are served without asking upstream.
	FreshTTL time.Duration
	// StaleTTL is how long cached stats are kept as a fallback for upstream errors.
	StaleTTL time.Duration
}

// DefaultRealtimeServiceConfig returns the default configuration.
func DefaultRealtimeServiceConfig() RealtimeServiceConfig {
	return RealtimeServiceConfig{
		FreshTTL: 30 * time.Second,
		StaleTTL: 10 * time.Minute,
	}
}

// RealtimeResult is the realtime stats returned to callers.
type RealtimeResult struct {
	Stats *model.RealtimeStats
	// Stale is set when upstream failed and an older cached copy is served.
	Stale bool
	// Unavailable is set when upstream failed and nothing was cached.
	Unavailable bool
}

// RealtimeService serves live viewer counts with a short-lived cache.
type RealtimeService interface {
	// Get never fails. On upstream errors it falls back to stale cached
	// stats, then to an empty result marked Unavailable.
	Get(ctx context.Context) *RealtimeResult
}

type realtimeService struct {
	source     RealtimeSource
	cache      cache.RealtimeCache
	normalizer upstream.Normalizer
	sfGroup    singleflight.Group

	freshTTL time.Duration
	staleTTL time.Duration
	now      func() time.Time
}

// NewRealtimeService creates a new RealtimeService.
func NewRealtimeService(
	source RealtimeSource,
	realtimeCache cache.RealtimeCache,
	normalizer upstream.Normalizer,
	cfg RealtimeServiceConfig,
) RealtimeService {
	if cfg.StaleTTL < cfg.FreshTTL {
		cfg.StaleTTL = cfg.FreshTTL
	}
	return &realtimeService{
		source:     source,
		cache:      realtimeCache,
		normalizer: normalizer,
		freshTTL:   cfg.FreshTTL,
		staleTTL:   cfg.StaleTTL,
		now:        time.Now,
	}
}

func (s *realtimeService) Get(ctx context.Context) *RealtimeResult {
	cached, err := s.cache.Get(ctx)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		slog.Warn("realtime cache get failed, falling back to upstream", "error", err)
	}

	if cached != nil && s.now().Sub(cached.FetchedAt) < s.freshTTL {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeRedis).Inc()
		return &RealtimeResult{Stats: cached}
	}
	if err == nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeRedis).Inc()
	}

	// Coalesce concurrent misses into one upstream call.
	result, err, shared := s.sfGroup.Do("realtime", func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx))
	})
	metrics.RecordSingleflight(metrics.SingleflightGroupRealtime, shared)

	if err == nil {
		return &RealtimeResult{Stats: result.(*model.RealtimeStats)}
	}

	if cached != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusStale, metrics.CacheTypeRedis).Inc()
		slog.Warn("serving stale realtime stats",
			"error", err,
			"fetched_at", cached.FetchedAt,
		)
		return &RealtimeResult{Stats: cached, Stale: true}
	}

	slog.Warn("realtime stats unavailable", "error", err)
	return &RealtimeResult{
		Stats:       &model.RealtimeStats{Items: []model.RealtimeItem{}, FetchedAt: s.now()},
		Unavailable: true,
	}
}

func (s *realtimeService) fetch(ctx context.Context) (*model.RealtimeStats, error) {
	raw, err := s.source.Realtime(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch realtime stats: %w", err)
	}

	stats := &model.RealtimeStats{
		Items:     make([]model.RealtimeItem, 0, len(raw)),
		FetchedAt: s.now(),
	}
	for _, r := range raw {
		stats.Items = append(stats.Items, s.normalizer.Realtime(r))
	}

	if err := s.cache.Set(ctx, stats, s.staleTTL); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		slog.Warn("failed to cache realtime stats", "error", err)
	} else {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeRedis).Inc()
	}

	return stats, nil
}
