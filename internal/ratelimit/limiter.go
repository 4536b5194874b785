// Package ratelimit paces requests to the session portal. The portal's rate
// limit policy is undocumented, so the defaults here are conservative and
// everything is configurable.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default limiter configuration values.
const (
	DefaultRequestsPerMinute = 10
	DefaultBurst             = 2
	DefaultMinDelay          = 3 * time.Second
	DefaultMaxJitter         = 2 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultMaxBackoff        = 5 * time.Minute
)

// ErrContextCancelled is returned when the context ends while waiting for a
// request slot.
var ErrContextCancelled = errors.New("context cancelled while waiting for request slot")

// Config holds limiter configuration.
type Config struct {
	// RequestsPerMinute is the sustained request rate. Default: 10.
	RequestsPerMinute int

	// Burst is the token bucket capacity. Default: 2.
	Burst int

	// MinDelay is a hard floor between consecutive requests, enforced even
	// when tokens are available. Default: 3s.
	MinDelay time.Duration

	// MaxJitter is the upper bound of the uniform random delay added to every
	// request. Default: 2s.
	MaxJitter time.Duration

	// BackoffMultiplier grows the error penalty: MinDelay * multiplier^errors.
	// Default: 2.0.
	BackoffMultiplier float64

	// MaxBackoff caps the error penalty. Default: 5m.
	MaxBackoff time.Duration
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.RequestsPerMinute < 0 {
		return errors.New("requests per minute cannot be negative")
	}
	if c.Burst < 0 {
		return errors.New("burst cannot be negative")
	}
	if c.MinDelay < 0 {
		return errors.New("min delay cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	if c.BackoffMultiplier != 0 && c.BackoffMultiplier < 1 {
		return errors.New("backoff multiplier must be at least 1")
	}
	if c.MaxBackoff < 0 {
		return errors.New("max backoff cannot be negative")
	}
	return nil
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.RequestsPerMinute == 0 {
		out.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if out.Burst == 0 {
		out.Burst = DefaultBurst
	}
	if out.MinDelay == 0 {
		out.MinDelay = DefaultMinDelay
	}
	if out.BackoffMultiplier == 0 {
		out.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if out.MaxBackoff == 0 {
		out.MaxBackoff = DefaultMaxBackoff
	}
	return out
}

// Limiter throttles portal requests with a token bucket, a hard minimum
// inter-request delay, uniform jitter, and an error-driven backoff penalty.
// A single instance is shared across one run; it is safe for concurrent use
// although the runner itself is strictly sequential.
type Limiter struct {
	cfg    Config
	bucket *rate.Limiter

	mu                sync.Mutex
	rng               *rand.Rand
	lastRequest       time.Time
	consecutiveErrors int
	penalty           time.Duration
}

// New creates a limiter with the given configuration.
func New(cfg *Config) (*Limiter, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	full := cfg.withDefaults()
	perSecond := rate.Limit(float64(full.RequestsPerMinute) / 60.0)

	return &Limiter{
		cfg:    full,
		bucket: rate.NewLimiter(perSecond, full.Burst),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Acquire blocks until a request may proceed and returns the actual wait
// time for observability. The wait is the longest of: token availability,
// the MinDelay floor since the previous request plus any error penalty, and
// a uniform jitter in [0, MaxJitter]. The tag only labels the wait for
// callers that want to log it.
func (l *Limiter) Acquire(ctx context.Context, tag string) (time.Duration, error) {
	start := time.Now()

	if err := l.bucket.Wait(ctx); err != nil {
		return time.Since(start), ErrContextCancelled
	}

	l.mu.Lock()
	var wait time.Duration
	floor := l.cfg.MinDelay + l.penalty
	if !l.lastRequest.IsZero() {
		if elapsed := time.Since(l.lastRequest); elapsed < floor {
			wait = floor - elapsed
		}
	} else if l.penalty > 0 {
		wait = l.penalty
	}
	if l.cfg.MaxJitter > 0 {
		wait += time.Duration(l.rng.Int63n(int64(l.cfg.MaxJitter) + 1))
	}
	l.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return time.Since(start), ErrContextCancelled
		}
	}

	l.mu.Lock()
	l.lastRequest = time.Now()
	l.mu.Unlock()

	return time.Since(start), nil
}

// ReportSuccess resets the accumulated error backoff.
func (l *Limiter) ReportSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecutiveErrors = 0
	l.penalty = 0
}

// ReportError increments the consecutive error counter and returns the new
// backoff penalty, which is folded into the next Acquire wait.
func (l *Limiter) ReportError() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.consecutiveErrors++
	backoff := float64(l.cfg.MinDelay) * math.Pow(l.cfg.BackoffMultiplier, float64(l.consecutiveErrors))
	if backoff > float64(l.cfg.MaxBackoff) {
		backoff = float64(l.cfg.MaxBackoff)
	}
	l.penalty = time.Duration(backoff)
	return l.penalty
}

// ConsecutiveErrors returns the current error streak. Useful for logging.
func (l *Limiter) ConsecutiveErrors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consecutiveErrors
}

// CurrentPenalty returns the active backoff penalty.
func (l *Limiter) CurrentPenalty() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.penalty
}

// EstimateFor projects the wall-clock time n requests will take under this
// configuration. Deterministic: jitter contributes its average. Used for
// operator-facing ETA display only.
func (l *Limiter) EstimateFor(n int) time.Duration {
	if n <= 0 {
		return 0
	}

	tokenBound := time.Duration(0)
	if l.cfg.RequestsPerMinute > 0 {
		perRequest := time.Minute / time.Duration(l.cfg.RequestsPerMinute)
		tokenBound = time.Duration(n) * perRequest
	}
	floorBound := time.Duration(n) * l.cfg.MinDelay

	estimate := tokenBound
	if floorBound > estimate {
		estimate = floorBound
	}
	return estimate + time.Duration(n)*l.cfg.MaxJitter/2
}
