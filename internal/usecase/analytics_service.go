package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/domain/repository"
	"github.com/hszk-dev/videohub/internal/infrastructure/cache"
	"github.com/hszk-dev/videohub/internal/infrastructure/metrics"
)

var (
	// ErrInvalidPlayback is returned for malformed session or progress input.
	ErrInvalidPlayback = errors.New("invalid playback data")

	// ErrSessionNotFound is returned when a session does not exist or has expired.
	ErrSessionNotFound = errors.New("playback session not found")

	// ErrSessionEnded is returned when a closed session receives updates.
	ErrSessionEnded = errors.New("playback session already ended")
)

// maxPositionSeconds bounds reported playback positions so a bad client cannot
// grow a heatmap without limit.
const maxPositionSeconds = 24 * 60 * 60

// AnalyticsServiceConfig holds configuration for AnalyticsService.
type AnalyticsServiceConfig struct {
	// SessionTTL is how long a session may stay open.
	SessionTTL time.Duration
	// MaxProgressGap caps the watch time credited for one progress update.
	MaxProgressGap time.Duration
}

// DefaultAnalyticsServiceConfig returns the default configuration.
func DefaultAnalyticsServiceConfig() AnalyticsServiceConfig {
	return AnalyticsServiceConfig{
		SessionTTL:     6 * time.Hour,
		MaxProgressGap: 5 * time.Second,
	}
}

// ProgressUpdate is one playback report from a player.
type ProgressUpdate struct {
	SessionID string
	// Position is the playback position in seconds. Nil when not reported.
	Position *float64
	// Duration is the video length in seconds. Zero when unknown.
	Duration float64
	Event    model.PlaybackEvent
}

// AnalyticsService records playback sessions and reports per-video engagement.
type AnalyticsService interface {
	// StartSession opens a session for videoID and returns it.
	StartSession(ctx context.Context, videoID string) (*model.PlaybackSession, error)

	// Progress applies a progress report to an open session.
	Progress(ctx context.Context, update ProgressUpdate) (*model.PlaybackSession, error)

	// EndSession closes a session and counts it as a view of its video.
	EndSession(ctx context.Context, sessionID string) (*model.PlaybackSession, error)

	// VideoAnalytics returns the aggregates of a video. Videos without data
	// yield zero totals.
	VideoAnalytics(ctx context.Context, videoID string) (*model.VideoAnalytics, error)

	// Heatmap returns the engagement samples of a video.
	Heatmap(ctx context.Context, videoID string) (model.Heatmap, error)
}

type analyticsService struct {
	store          cache.AnalyticsStore
	sessionTTL     time.Duration
	maxProgressGap time.Duration
	now            func() time.Time
	newID          func() string
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(store cache.AnalyticsStore, cfg AnalyticsServiceConfig) AnalyticsService {
	def := DefaultAnalyticsServiceConfig()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.MaxProgressGap <= 0 {
		cfg.MaxProgressGap = def.MaxProgressGap
	}
	return &analyticsService{
		store:          store,
		sessionTTL:     cfg.SessionTTL,
		maxProgressGap: cfg.MaxProgressGap,
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

func (s *analyticsService) StartSession(ctx context.Context, videoID string) (*model.PlaybackSession, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, fmt.Errorf("%w: video id is required", ErrInvalidPlayback)
	}

	now := s.now().UTC()
	sess := &model.PlaybackSession{
		ID:             s.newID(),
		VideoID:        videoID,
		StartedAt:      now,
		LastProgressAt: now,
	}
	if err := s.store.CreateSession(ctx, sess, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	metrics.PlaybackSessionsTotal.WithLabelValues(metrics.PlaybackStarted).Inc()
	slog.Info("playback session started",
		slog.String("session_id", sess.ID),
		slog.String("video_id", videoID),
	)
	return sess, nil
}

func (s *analyticsService) Progress(ctx context.Context, update ProgressUpdate) (*model.PlaybackSession, error) {
	if update.SessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidPlayback)
	}
	if p := update.Position; p != nil && (math.IsNaN(*p) || *p < 0 || *p > maxPositionSeconds) {
		return nil, fmt.Errorf("%w: position %v out of range", ErrInvalidPlayback, *p)
	}
	if math.IsNaN(update.Duration) || update.Duration < 0 {
		return nil, fmt.Errorf("%w: duration %v out of range", ErrInvalidPlayback, update.Duration)
	}

	now := s.now().UTC()
	sess, err := s.store.UpdateSession(ctx, update.SessionID, func(sess *model.PlaybackSession) (cache.SessionEffect, error) {
		if sess.Ended() {
			return cache.SessionEffect{}, ErrSessionEnded
		}

		var effect cache.SessionEffect
		if p := update.Position; p != nil {
			sess.WatchSeconds += s.credit(now.Sub(sess.LastProgressAt)).Seconds()
			sess.LastProgressAt = now
			if update.Duration > 0 {
				pct := math.Min(*p/update.Duration*100, 100)
				sess.CompletionPercent = math.Max(sess.CompletionPercent, pct)
			}
			second := int64(math.Floor(*p))
			effect.EngagementSecond = &second
		}

		switch update.Event {
		case model.PlaybackEventSeek:
			sess.SeekEvents++
		case model.PlaybackEventPause:
			sess.PauseEvents++
		}
		return effect, nil
	})
	if err != nil {
		return nil, s.sessionError("progress", update.SessionID, err)
	}
	return sess, nil
}

// credit returns the watch time earned since the previous report, capped at
// maxProgressGap.
func (s *analyticsService) credit(elapsed time.Duration) time.Duration {
	if elapsed < 0 {
		return 0
	}
	return min(elapsed, s.maxProgressGap)
}

func (s *analyticsService) EndSession(ctx context.Context, sessionID string) (*model.PlaybackSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidPlayback)
	}

	now := s.now().UTC()
	sess, err := s.store.UpdateSession(ctx, sessionID, func(sess *model.PlaybackSession) (cache.SessionEffect, error) {
		if sess.Ended() {
			return cache.SessionEffect{}, ErrSessionEnded
		}
		sess.EndedAt = &now
		return cache.SessionEffect{CountView: true}, nil
	})
	if err != nil {
		return nil, s.sessionError("end", sessionID, err)
	}

	metrics.PlaybackSessionsTotal.WithLabelValues(metrics.PlaybackEnded).Inc()
	slog.Info("playback session ended",
		slog.String("session_id", sess.ID),
		slog.String("video_id", sess.VideoID),
		slog.Float64("watch_seconds", sess.WatchSeconds),
		slog.Float64("completion_percent", sess.CompletionPercent),
	)
	return sess, nil
}

func (s *analyticsService) sessionError(op, sessionID string, err error) error {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	case errors.Is(err, ErrSessionEnded):
		return fmt.Errorf("%w: %s", ErrSessionEnded, sessionID)
	}
	slog.Error("playback session update failed",
		slog.String("op", op),
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s session: %w", op, err)
}

func (s *analyticsService) VideoAnalytics(ctx context.Context, videoID string) (*model.VideoAnalytics, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, fmt.Errorf("%w: video id is required", ErrInvalidPlayback)
	}
	a, err := s.store.VideoAnalytics(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("read video analytics: %w", err)
	}
	a.ComputeRates()
	return a, nil
}

func (s *analyticsService) Heatmap(ctx context.Context, videoID string) (model.Heatmap, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, fmt.Errorf("%w: video id is required", ErrInvalidPlayback)
	}
	h, err := s.store.Heatmap(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("read heatmap: %w", err)
	}
	return h, nil
}
