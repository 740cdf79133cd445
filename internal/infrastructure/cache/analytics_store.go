package cache

import (
	"context"
	"time"

	"github.com/hszk-dev/videohub/internal/domain/model"
)

// SessionEffect lists aggregate writes committed together with a session update.
type SessionEffect struct {
	// EngagementSecond adds one heatmap sample at that second when non-nil.
	EngagementSecond *int64
	// CountView adds the session to its video's totals and recent sessions.
	CountView bool
}

// AnalyticsStore persists playback sessions and per-video aggregates.
type AnalyticsStore interface {
	// CreateSession stores a new session that expires after ttl.
	CreateSession(ctx context.Context, s *model.PlaybackSession, ttl time.Duration) error

	// UpdateSession applies fn to the stored session and commits the result
	// with the returned effect atomically. An error from fn aborts the update
	// and is returned unchanged. Returns repository.ErrSessionNotFound if the
	// session does not exist.
	UpdateSession(ctx context.Context, id string, fn func(*model.PlaybackSession) (SessionEffect, error)) (*model.PlaybackSession, error)

	// VideoAnalytics returns the totals, heatmap and recent sessions of a video.
	// Rates are left for the caller to compute. Unknown videos yield zero totals.
	VideoAnalytics(ctx context.Context, videoID string) (*model.VideoAnalytics, error)

	// Heatmap returns the engagement samples of a video.
	Heatmap(ctx context.Context, videoID string) (model.Heatmap, error)
}
