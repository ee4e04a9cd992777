package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	f.ttls[key] = ttl
	return f.counts[key], nil
}

func (f *fakeCounter) Key(parts ...string) string {
	return joinKey("test:", parts...)
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	counter := newFakeCounter()
	now := time.Date(2024, 5, 1, 9, 0, 10, 0, time.UTC)
	l := newRateLimiter(counter, RateLimiterConfig{Limit: 2, Window: time.Minute})
	l.now = func() time.Time { return now }

	for _, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "R1")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}

	ok, _ := l.Allow(ctx, "R2")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "R1")
	assert.True(t, ok, "new window resets the count")

	for key, ttl := range counter.ttls {
		assert.Contains(t, key, "test:ratelimit:")
		assert.Equal(t, time.Minute, ttl)
	}
}

func TestRateLimiter_RedisDown(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("connection refused")

	open := newRateLimiter(counter, RateLimiterConfig{Limit: 1, FailOpen: true})
	ok, err := open.Allow(context.Background(), "R1")
	assert.NoError(t, err)
	assert.True(t, ok)

	closed := newRateLimiter(counter, RateLimiterConfig{Limit: 1})
	ok, err = closed.Allow(context.Background(), "R1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestConfig_Addr(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr())
	assert.Equal(t, "raizel:ratelimit:R1", joinKey(cfg.KeyPrefix, "ratelimit", "R1"))
}
