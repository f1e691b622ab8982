package charts

import (
	"context"
	"encoding/json"
	"time"

	"waveger/cache"
)

// RedisPayloadCache backs PayloadCache with the shared Redis client. It is
// nil-safe: with no Redis connection every read is a miss and writes are
// dropped.
type RedisPayloadCache struct {
	TTL time.Duration
}

// NewRedisPayloadCache creates a Redis-backed payload cache with the given TTL.
func NewRedisPayloadCache(ttl time.Duration) *RedisPayloadCache {
	return &RedisPayloadCache{TTL: ttl}
}

// GetChart returns the cached payload for (title, week), or nil on miss.
func (c *RedisPayloadCache) GetChart(ctx context.Context, title, week string) (json.RawMessage, error) {
	return cache.GetChartPayload(ctx, title, week)
}

// SetChart stores a payload under (title, week).
func (c *RedisPayloadCache) SetChart(ctx context.Context, title, week string, data json.RawMessage) error {
	return cache.SetChartPayload(ctx, title, week, data, c.TTL)
}
