package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
)

// statsCacheKey holds the serialized discovery stats for the ops API.
const statsCacheKey = "golfdata:discovery_stats"

// DefaultStatsTTL keeps the dashboard snappy without hammering the
// aggregation query. Discovery stats tolerate being a little stale.
const DefaultStatsTTL = 30 * time.Second

// StatsProvider is the aggregate source the cache sits in front of.
type StatsProvider interface {
	GetDiscoveryStats(ctx context.Context) (*models.DiscoveryStats, error)
}

// StatsCache is a redis read-through cache over GetDiscoveryStats.
type StatsCache struct {
	redis    *RedisCache
	provider StatsProvider
	ttl      time.Duration
}

// NewStatsCache creates a stats cache. A zero ttl uses DefaultStatsTTL.
func NewStatsCache(redisCache *RedisCache, provider StatsProvider, ttl time.Duration) *StatsCache {
	if ttl == 0 {
		ttl = DefaultStatsTTL
	}
	return &StatsCache{redis: redisCache, provider: provider, ttl: ttl}
}

// Get returns the cached stats, falling back to the provider on a miss and
// repopulating the cache. A broken cache never fails the read.
func (c *StatsCache) Get(ctx context.Context) (*models.DiscoveryStats, error) {
	if cached, err := c.redis.Get(ctx, statsCacheKey); err == nil {
		var stats models.DiscoveryStats
		if jsonErr := json.Unmarshal([]byte(cached), &stats); jsonErr == nil {
			return &stats, nil
		}
		// Corrupt entry: drop it and fall through to the provider.
		_ = c.redis.Del(ctx, statsCacheKey)
	} else if ctx.Err() != nil {
		return nil, fmt.Errorf("stats cache read: %w", ctx.Err())
	}

	stats, err := c.provider.GetDiscoveryStats(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(stats); err == nil {
		_ = c.redis.Set(ctx, statsCacheKey, payload, c.ttl)
	}

	return stats, nil
}

// Invalidate drops the cached entry. Called after bulk mutations like
// ResetForRetry so operators see the effect immediately.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, statsCacheKey)
}
