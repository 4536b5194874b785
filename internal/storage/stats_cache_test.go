package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider serves canned stats and counts how often it is hit.
type countingProvider struct {
	stats *models.DiscoveryStats
	calls int
}

func (p *countingProvider) GetDiscoveryStats(ctx context.Context) (*models.DiscoveryStats, error) {
	p.calls++
	return p.stats, nil
}

func setupStatsCache(t *testing.T, ttl time.Duration) (*StatsCache, *countingProvider, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	provider := &countingProvider{
		stats: &models.DiscoveryStats{
			ByStatus:      map[models.ImportStatus]int{models.StatusPending: 3, models.StatusImported: 7},
			Total:         10,
			DiscoveredL7D: 2,
		},
	}

	return NewStatsCache(NewRedisCacheWithClient(client), provider, ttl), provider, mr
}

func TestStatsCacheReadThrough(t *testing.T) {
	cache, provider, _ := setupStatsCache(t, time.Minute)
	ctx := context.Background()

	first, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, first.Total)
	assert.Equal(t, 1, provider.calls)

	second, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, 1, provider.calls, "second read must come from the cache")
}

func TestStatsCacheExpiry(t *testing.T) {
	cache, provider, mr := setupStatsCache(t, time.Minute)
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls, "expired entry must fall through to the provider")
}

func TestStatsCacheInvalidate(t *testing.T) {
	cache, provider, _ := setupStatsCache(t, time.Minute)
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx))

	_, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestStatsCacheCorruptEntry(t *testing.T) {
	cache, provider, mr := setupStatsCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, mr.Set(statsCacheKey, "{not json"))

	stats, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 1, provider.calls)
}
