package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// The Redis layer sits in front of Postgres: chart payloads expire after a
// TTL, while the Postgres rows behind them are permanent.

// ChartKey builds the Redis key for a chart snapshot.
func ChartKey(title, week string) string {
	return fmt.Sprintf("chart:%s:%s", title, week)
}

// GetChartPayload returns the cached payload for (title, week), or nil on miss.
func GetChartPayload(ctx context.Context, title, week string) (json.RawMessage, error) {
	if RedisClient == nil {
		return nil, nil
	}

	data, err := RedisClient.Get(ctx, ChartKey(title, week)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chart from cache: %w", err)
	}
	return data, nil
}

// SetChartPayload stores a chart payload with the given TTL.
func SetChartPayload(ctx context.Context, title, week string, data json.RawMessage, ttl time.Duration) error {
	if RedisClient == nil {
		return nil
	}

	if err := RedisClient.Set(ctx, ChartKey(title, week), []byte(data), ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache chart: %w", err)
	}
	return nil
}
