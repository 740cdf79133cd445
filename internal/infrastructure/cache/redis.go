// Package cache holds the in-process catalog snapshot and the Redis-backed
// realtime stats cache and playback analytics store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/videohub/internal/domain/model"
)

const (
	// realtimeCacheKey is the Redis key holding realtime stats.
	realtimeCacheKey = "videohub:realtime"
)

// realtimeJSON is the cached representation of RealtimeStats.
// Using explicit struct avoids coupling to domain model's JSON tags.
type realtimeJSON struct {
	Items []realtimeItemJSON `json:"items"`
	// FetchedAt is RFC3339Nano.
	FetchedAt string `json:"fetched_at"`
}

type realtimeItemJSON struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	Viewers int64  `json:"viewers"`
}

// RedisRealtimeCache implements RealtimeCache using Redis as the backing store.
type RedisRealtimeCache struct {
	client *redis.Client
	key    string
}

// NewRedisRealtimeCache creates a new Redis-backed realtime cache.
func NewRedisRealtimeCache(client *redis.Client) *RedisRealtimeCache {
	return &RedisRealtimeCache{
		client: client,
		key:    realtimeCacheKey,
	}
}

// Get retrieves realtime stats from Redis.
// Returns nil, nil on cache miss.
func (c *RedisRealtimeCache) Get(ctx context.Context) (*model.RealtimeStats, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	stats, err := c.deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize realtime stats: %w", err)
	}

	return stats, nil
}

// Set stores realtime stats in Redis with the specified TTL.
func (c *RedisRealtimeCache) Set(ctx context.Context, stats *model.RealtimeStats, ttl time.Duration) error {
	if stats == nil {
		return errors.New("nil realtime stats")
	}

	data, err := c.serialize(stats)
	if err != nil {
		return fmt.Errorf("serialize realtime stats: %w", err)
	}

	if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes the cached stats.
func (c *RedisRealtimeCache) Delete(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisRealtimeCache) serialize(stats *model.RealtimeStats) ([]byte, error) {
	v := realtimeJSON{
		Items:     make([]realtimeItemJSON, 0, len(stats.Items)),
		FetchedAt: stats.FetchedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, it := range stats.Items {
		v.Items = append(v.Items, realtimeItemJSON(it))
	}
	return json.Marshal(v)
}

func (c *RedisRealtimeCache) deserialize(data []byte) (*model.RealtimeStats, error) {
	var v realtimeJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	fetchedAt, err := time.Parse(time.RFC3339Nano, v.FetchedAt)
	if err != nil {
		return nil, fmt.Errorf("parse fetched_at: %w", err)
	}

	stats := &model.RealtimeStats{
		Items:     make([]model.RealtimeItem, 0, len(v.Items)),
		FetchedAt: fetchedAt,
	}
	for _, it := range v.Items {
		stats.Items = append(stats.Items, model.RealtimeItem(it))
	}
	return stats, nil
}
