package redis

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// windowCounter is the subset of Client the limiter needs.
type windowCounter interface {
	IncrWindow(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Key(parts ...string) string
}

// RateLimiterConfig configures the fixed-window limiter.
type RateLimiterConfig struct {
	// Limit is the number of requests allowed per window and key.
	Limit int64

	// Window is the window length.
	Window time.Duration

	// FailOpen lets requests through when Redis errors.
	FailOpen bool

	Logger *slog.Logger
}

// DefaultRateLimiterConfig allows 30 assistant requests per minute.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Limit:    30,
		Window:   time.Minute,
		FailOpen: true,
	}
}

// RateLimiter is a fixed-window counter shared by every server instance.
// It implements ratelimit.Limiter.
type RateLimiter struct {
	counter windowCounter
	config  RateLimiterConfig
	now     func() time.Time
}

// NewRateLimiter creates a RateLimiter on top of a Client.
func NewRateLimiter(client *Client, config RateLimiterConfig) *RateLimiter {
	return newRateLimiter(client, config)
}

func newRateLimiter(counter windowCounter, config RateLimiterConfig) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.Limit <= 0 {
		config.Limit = defaults.Limit
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RateLimiter{counter: counter, config: config, now: time.Now}
}

// Allow counts one request for key in the current window.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := l.now().Truncate(l.config.Window).Unix()
	redisKey := l.counter.Key("ratelimit", key, strconv.FormatInt(window, 10))

	n, err := l.counter.IncrWindow(ctx, redisKey, l.config.Window)
	if err != nil {
		l.config.Logger.Warn("rate limit counter unavailable", "key", key, "error", err)
		if l.config.FailOpen {
			return true, nil
		}
		return false, err
	}
	return n <= l.config.Limit, nil
}
