// Package ratelimit limits how often one identity may call the assistant.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether the caller identified by key may proceed.
// Implementations: Local (per process) and redis.RateLimiter (shared).
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// LOCAL TOKEN BUCKET
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the local limiter.
type Config struct {
	// RequestsPerSecond is the sustained rate per key.
	RequestsPerSecond float64

	// BurstSize is the number of requests a fresh key may make at once.
	BurstSize int

	// IdleTTL drops buckets that have not been touched for this long.
	IdleTTL time.Duration
}

// DefaultConfig allows a chat user a short burst and one message per second.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 1,
		BurstSize:         5,
		IdleTTL:           10 * time.Minute,
	}
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Local keeps one token bucket per key in memory.
type Local struct {
	mu       sync.Mutex
	config   Config
	buckets  map[string]*bucket
	now      func() time.Time
	lastScan time.Time
}

// NewLocal creates a Local limiter.
func NewLocal(config Config) *Local {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = DefaultConfig().RequestsPerSecond
	}
	if config.BurstSize <= 0 {
		config.BurstSize = DefaultConfig().BurstSize
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultConfig().IdleTTL
	}
	return &Local{
		config:  config,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow takes one token from the key's bucket. It never blocks and never fails.
func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.config.BurstSize), lastRefill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.config.RequestsPerSecond
		if burst := float64(l.config.BurstSize); b.tokens > burst {
			b.tokens = burst
		}
		b.lastRefill = now
	}

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// evictIdle must be called with the lock held.
func (l *Local) evictIdle(now time.Time) {
	if now.Sub(l.lastScan) < l.config.IdleTTL {
		return
	}
	l.lastScan = now
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) >= l.config.IdleTTL {
			delete(l.buckets, key)
		}
	}
}

// Len returns the number of tracked keys.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
