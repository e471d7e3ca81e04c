package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares the per-key window across server instances. A key
// holds a marker that expires after the interval; SET NX decides the race.
type RedisLimiter struct {
	client      *redis.Client
	prefix      string
	minInterval time.Duration
}

// NewRedis creates a limiter storing markers under prefix.
func NewRedis(client *redis.Client, prefix string, minInterval time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisLimiter{client: client, prefix: prefix, minInterval: minInterval}
}

// AllowContext reports whether key may act now. Redis errors allow the
// action so an outage never blocks sellers.
func (l *RedisLimiter) AllowContext(ctx context.Context, key string) bool {
	if l.minInterval <= 0 {
		return true
	}

	ok, err := l.client.SetNX(ctx, l.prefix+key, time.Now().UnixMilli(), l.minInterval).Result()
	if err != nil {
		return true
	}
	return ok
}

// Reset removes the marker for key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}

var _ RateLimiter = (*RedisLimiter)(nil)
