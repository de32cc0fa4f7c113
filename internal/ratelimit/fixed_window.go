package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter bump and window expiry in one round trip.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FixedWindowLimiter caps requests per key (here: per user on the AI routes)
// inside a fixed time window. Counters live in Redis so every gateway
// replica sees the same count.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration

	redisClient *redis.Client
	redisPrefix string
}

// NewRedisFixedWindowLimiter creates a Redis-backed limiter allowing `limit`
// requests per key per window.
func NewRedisFixedWindowLimiter(addr, password, prefix string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "quickgen:ratelimit"
	}
	return &FixedWindowLimiter{
		limit:  limit,
		window: window,
		redisClient: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		redisPrefix: prefix,
	}, nil
}

// Allow reports whether the key is within quota for the current window.
// When Redis cannot be reached the limiter fails closed: the AI routes front
// paid provider APIs, so work is not admitted while it cannot be counted.
func (l *FixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	if windowMs <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.redisClient, []string{l.keyFor(key, windowMs)}, windowMs).Int64()
	if err != nil {
		slog.Warn("rate limit check failed, denying request", "key", key, "err", err)
		return false
	}
	return count <= int64(l.limit)
}

// keyFor buckets the key into the current window slot.
func (l *FixedWindowLimiter) keyFor(key string, windowMs int64) string {
	slot := time.Now().UTC().UnixMilli() / windowMs
	return fmt.Sprintf("%s:%s:%d", l.redisPrefix, key, slot)
}
