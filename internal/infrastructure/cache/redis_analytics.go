package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/domain/repository"
)

const (
	analyticsKeyPrefix = "videohub:analytics:"

	totalsFieldViews     = "views"
	totalsFieldCompleted = "completed"
	totalsFieldWatch     = "watch_seconds"

	// maxTxAttempts bounds optimistic retries when a session is updated concurrently.
	maxTxAttempts = 5
)

// sessionJSON is the cached representation of PlaybackSession.
type sessionJSON struct {
	ID                string  `json:"id"`
	VideoID           string  `json:"video_id"`
	StartedAt         string  `json:"started_at"`
	EndedAt           string  `json:"ended_at,omitempty"`
	LastProgressAt    string  `json:"last_progress_at"`
	WatchSeconds      float64 `json:"watch_seconds"`
	CompletionPercent float64 `json:"completion_percent"`
	SeekEvents        int     `json:"seek_events"`
	PauseEvents       int     `json:"pause_events"`
}

// RedisAnalyticsStore implements AnalyticsStore using Redis as the backing store.
// Sessions are JSON strings with a TTL. Per-video totals and heatmaps are
// hashes, and recently ended sessions are a capped list.
type RedisAnalyticsStore struct {
	client      *redis.Client
	recentLimit int64
}

// NewRedisAnalyticsStore creates a new Redis-backed analytics store keeping
// at most recentLimit ended sessions per video.
func NewRedisAnalyticsStore(client *redis.Client, recentLimit int) *RedisAnalyticsStore {
	if recentLimit < 0 {
		recentLimit = 0
	}
	return &RedisAnalyticsStore{
		client:      client,
		recentLimit: int64(recentLimit),
	}
}

func sessionKey(id string) string { return analyticsKeyPrefix + "session:" + id }
func totalsKey(videoID string) string { return analyticsKeyPrefix + "video:" + videoID }
func heatmapKey(videoID string) string { return analyticsKeyPrefix + "heatmap:" + videoID }
func recentKey(videoID string) string { return analyticsKeyPrefix + "recent:" + videoID }

// CreateSession stores a new session. It fails if the id is already taken.
func (s *RedisAnalyticsStore) CreateSession(ctx context.Context, sess *model.PlaybackSession, ttl time.Duration) error {
	if sess == nil {
		return errors.New("nil playback session")
	}

	data, err := json.Marshal(toSessionJSON(sess))
	if err != nil {
		return fmt.Errorf("serialize session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, sessionKey(sess.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	return nil
}

// UpdateSession runs fn inside a WATCH transaction on the session key and
// retries when another writer commits first.
func (s *RedisAnalyticsStore) UpdateSession(
	ctx context.Context,
	id string,
	fn func(*model.PlaybackSession) (SessionEffect, error),
) (*model.PlaybackSession, error) {
	key := sessionKey(id)
	var updated *model.PlaybackSession

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return repository.ErrSessionNotFound
			}
			return fmt.Errorf("redis get: %w", err)
		}

		sess, err := fromSessionData(data)
		if err != nil {
			return fmt.Errorf("deserialize session: %w", err)
		}

		effect, err := fn(sess)
		if err != nil {
			return err
		}

		out, err := json.Marshal(toSessionJSON(sess))
		if err != nil {
			return fmt.Errorf("serialize session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, redis.KeepTTL)
			if effect.EngagementSecond != nil {
				field := strconv.FormatInt(*effect.EngagementSecond, 10)
				pipe.HIncrBy(ctx, heatmapKey(sess.VideoID), field, 1)
			}
			if effect.CountView {
				s.queueView(ctx, pipe, sess, out)
			}
			return nil
		})
		if err != nil {
			return err
		}

		updated = sess
		return nil
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("update session %s: %w", id, redis.TxFailedErr)
}

func (s *RedisAnalyticsStore) queueView(ctx context.Context, pipe redis.Pipeliner, sess *model.PlaybackSession, data []byte) {
	totals := totalsKey(sess.VideoID)
	pipe.HIncrBy(ctx, totals, totalsFieldViews, 1)
	pipe.HIncrByFloat(ctx, totals, totalsFieldWatch, sess.WatchSeconds)
	if sess.Completed() {
		pipe.HIncrBy(ctx, totals, totalsFieldCompleted, 1)
	}
	if s.recentLimit > 0 {
		recent := recentKey(sess.VideoID)
		pipe.LPush(ctx, recent, data)
		pipe.LTrim(ctx, recent, 0, s.recentLimit-1)
	}
}

// VideoAnalytics reads the totals, heatmap and recent sessions in one round trip.
func (s *RedisAnalyticsStore) VideoAnalytics(ctx context.Context, videoID string) (*model.VideoAnalytics, error) {
	pipe := s.client.Pipeline()
	totalsCmd := pipe.HGetAll(ctx, totalsKey(videoID))
	heatmapCmd := pipe.HGetAll(ctx, heatmapKey(videoID))
	recentCmd := pipe.LRange(ctx, recentKey(videoID), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis pipeline: %w", err)
	}

	a := &model.VideoAnalytics{
		VideoID:        videoID,
		RecentSessions: []model.PlaybackSession{},
	}

	totals := totalsCmd.Val()
	var err error
	if a.TotalViews, err = parseIntField(totals, totalsFieldViews); err != nil {
		return nil, err
	}
	if a.CompletedViews, err = parseIntField(totals, totalsFieldCompleted); err != nil {
		return nil, err
	}
	if v, ok := totals[totalsFieldWatch]; ok {
		if a.TotalWatchSeconds, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("parse %s: %w", totalsFieldWatch, err)
		}
	}

	if a.Engagement, err = parseHeatmap(heatmapCmd.Val()); err != nil {
		return nil, err
	}

	for _, raw := range recentCmd.Val() {
		sess, err := fromSessionData([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("deserialize recent session: %w", err)
		}
		a.RecentSessions = append(a.RecentSessions, *sess)
	}

	return a, nil
}

// Heatmap reads the engagement hash of a video.
func (s *RedisAnalyticsStore) Heatmap(ctx context.Context, videoID string) (model.Heatmap, error) {
	fields, err := s.client.HGetAll(ctx, heatmapKey(videoID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	return parseHeatmap(fields)
}

func parseIntField(fields map[string]string, name string) (int64, error) {
	v, ok := fields[name]
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return n, nil
}

func parseHeatmap(fields map[string]string) (model.Heatmap, error) {
	h := make(model.Heatmap, len(fields))
	for k, v := range fields {
		second, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse heatmap second %q: %w", k, err)
		}
		count, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse heatmap count %q: %w", v, err)
		}
		h[second] = count
	}
	return h, nil
}

func toSessionJSON(s *model.PlaybackSession) sessionJSON {
	v := sessionJSON{
		ID:                s.ID,
		VideoID:           s.VideoID,
		StartedAt:         s.StartedAt.UTC().Format(time.RFC3339Nano),
		LastProgressAt:    s.LastProgressAt.UTC().Format(time.RFC3339Nano),
		WatchSeconds:      s.WatchSeconds,
		CompletionPercent: s.CompletionPercent,
		SeekEvents:        s.SeekEvents,
		PauseEvents:       s.PauseEvents,
	}
	if s.EndedAt != nil {
		v.EndedAt = s.EndedAt.UTC().Format(time.RFC3339Nano)
	}
	return v
}

func fromSessionData(data []byte) (*model.PlaybackSession, error) {
	var v sessionJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	startedAt, err := time.Parse(time.RFC3339Nano, v.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	lastProgressAt, err := time.Parse(time.RFC3339Nano, v.LastProgressAt)
	if err != nil {
		return nil, fmt.Errorf("parse last_progress_at: %w", err)
	}

	s := &model.PlaybackSession{
		ID:                v.ID,
		VideoID:           v.VideoID,
		StartedAt:         startedAt,
		LastProgressAt:    lastProgressAt,
		WatchSeconds:      v.WatchSeconds,
		CompletionPercent: v.CompletionPercent,
		SeekEvents:        v.SeekEvents,
		PauseEvents:       v.PauseEvents,
	}
	if v.EndedAt != "" {
		endedAt, err := time.Parse(time.RFC3339Nano, v.EndedAt)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		s.EndedAt = &endedAt
	}
	return s, nil
}
