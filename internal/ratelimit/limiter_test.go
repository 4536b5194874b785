package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig returns a configuration with sub-second delays so tests stay fast.
func fastConfig() *Config {
	return &Config{
		RequestsPerMinute: 6000, // effectively unbounded token rate
		Burst:             100,
		MinDelay:          30 * time.Millisecond,
		MaxJitter:         0,
		BackoffMultiplier: 2.0,
		MaxBackoff:        500 * time.Millisecond,
	}
}

func TestNew(t *testing.T) {
	t.Run("applies defaults when not specified", func(t *testing.T) {
		l, err := New(&Config{})
		require.NoError(t, err)
		assert.Equal(t, DefaultMinDelay, l.cfg.MinDelay)
		assert.Equal(t, DefaultBurst, l.cfg.Burst)
		assert.Equal(t, DefaultBackoffMultiplier, l.cfg.BackoffMultiplier)
		assert.Equal(t, DefaultMaxBackoff, l.cfg.MaxBackoff)
	})

	t.Run("returns error for nil config", func(t *testing.T) {
		l, err := New(nil)
		assert.Error(t, err)
		assert.Nil(t, l)
	})

	t.Run("returns error for negative min delay", func(t *testing.T) {
		l, err := New(&Config{MinDelay: -time.Second})
		assert.Error(t, err)
		assert.Nil(t, l)
		assert.Contains(t, err.Error(), "min delay cannot be negative")
	})

	t.Run("returns error for multiplier below one", func(t *testing.T) {
		l, err := New(&Config{BackoffMultiplier: 0.5})
		assert.Error(t, err)
		assert.Nil(t, l)
	})
}

func TestAcquireEnforcesRateFloor(t *testing.T) {
	l, err := New(fastConfig())
	require.NoError(t, err)

	ctx := context.Background()
	var stamps []time.Time
	for i := 0; i < 5; i++ {
		_, err := l.Acquire(ctx, "test")
		require.NoError(t, err)
		stamps = append(stamps, time.Now())
	}

	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, l.cfg.MinDelay,
			"gap between request %d and %d fell below the floor", i-1, i)
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	cfg := fastConfig()
	cfg.MinDelay = 10 * time.Second
	l, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx, "first")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "second")
	assert.ErrorIs(t, err, ErrContextCancelled)
}

func TestBackoffMonotonicity(t *testing.T) {
	l, err := New(fastConfig())
	require.NoError(t, err)

	var prev time.Duration
	for i := 0; i < 10; i++ {
		backoff := l.ReportError()
		if prev < l.cfg.MaxBackoff {
			assert.Greater(t, backoff, prev, "backoff must strictly increase below the ceiling")
		}
		assert.LessOrEqual(t, backoff, l.cfg.MaxBackoff)
		prev = backoff
	}

	l.ReportSuccess()
	assert.Zero(t, l.CurrentPenalty())
	assert.Zero(t, l.ConsecutiveErrors())
}

func TestBackoffFoldsIntoNextAcquire(t *testing.T) {
	cfg := fastConfig()
	cfg.MinDelay = 20 * time.Millisecond
	cfg.MaxBackoff = 200 * time.Millisecond
	l, err := New(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = l.Acquire(ctx, "warm")
	require.NoError(t, err)

	penalty := l.ReportError()
	require.Greater(t, penalty, time.Duration(0))

	start := time.Now()
	_, err = l.Acquire(ctx, "penalized")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), penalty)
}

func TestEstimateFor(t *testing.T) {
	l, err := New(&Config{
		RequestsPerMinute: 10,
		Burst:             2,
		MinDelay:          3 * time.Second,
		MaxJitter:         2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        time.Minute,
	})
	require.NoError(t, err)

	t.Run("zero sessions", func(t *testing.T) {
		assert.Zero(t, l.EstimateFor(0))
	})

	t.Run("token rate dominates the floor", func(t *testing.T) {
		// 10 rpm means 6s per request, above the 3s floor.
		// 10 requests: 60s token-bound + 10s average jitter.
		assert.Equal(t, 70*time.Second, l.EstimateFor(10))
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, l.EstimateFor(25), l.EstimateFor(25))
	})
}

func TestBackoffProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("penalty never exceeds the ceiling", prop.ForAll(
		func(errorCount int) bool {
			l, err := New(fastConfig())
			if err != nil {
				return false
			}
			var last time.Duration
			for i := 0; i < errorCount; i++ {
				last = l.ReportError()
			}
			return last <= l.cfg.MaxBackoff
		},
		gen.IntRange(1, 64),
	))

	properties.Property("success resets the penalty regardless of history", prop.ForAll(
		func(errorCount int) bool {
			l, err := New(fastConfig())
			if err != nil {
				return false
			}
			for i := 0; i < errorCount; i++ {
				l.ReportError()
			}
			l.ReportSuccess()
			return l.CurrentPenalty() == 0 && l.ConsecutiveErrors() == 0
		},
		gen.IntRange(0, 32),
	))

	properties.TestingRun(t)
}
