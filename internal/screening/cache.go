package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/banking/compliance-engine/internal/domain"
)

const snapshotKeyPrefix = "compliance:watchlist:"

type cachedSnapshot struct {
	Entries   []domain.WatchlistEntry `json:"entries"`
	FetchedAt time.Time               `json:"fetched_at"`
}

// RedisSnapshotCache persists watchlist snapshots in Redis so adapters can
// serve a warm snapshot immediately after a restart.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotCache creates a Redis-backed snapshot cache.
func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

// Store persists a source's full entry set, replacing any prior value.
func (c *RedisSnapshotCache) Store(ctx context.Context, source string, entries []domain.WatchlistEntry) error {
	payload, err := json.Marshal(cachedSnapshot{Entries: entries, FetchedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", source, err)
	}
	return c.client.Set(ctx, snapshotKeyPrefix+source, payload, c.ttl).Err()
}

// Load returns the last persisted entry set and its fetch time.
func (c *RedisSnapshotCache) Load(ctx context.Context, source string) ([]domain.WatchlistEntry, time.Time, error) {
	payload, err := c.client.Get(ctx, snapshotKeyPrefix+source).Bytes()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load snapshot for %s: %w", source, err)
	}
	var snap cachedSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, time.Time{}, fmt.Errorf("unmarshal snapshot for %s: %w", source, err)
	}
	return snap.Entries, snap.FetchedAt, nil
}
