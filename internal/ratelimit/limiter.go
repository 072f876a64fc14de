// Package ratelimit implements a per-key fixed-window counter in Redis.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result describes one Allow decision.
type Result struct {
	Allowed    bool
	Count      int64
	Limit      int
	RetryAfter time.Duration
}

// Limiter allows at most limit hits per key within window.
type Limiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// New builds a limiter. A limit of zero or less disables it.
func New(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Enabled reports whether the limiter enforces anything.
func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil && l.limit > 0
}

// Allow counts a hit for key. The window starts with the first hit.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	redisKey := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, err
		}
	}

	res := Result{Allowed: count <= int64(l.limit), Count: count, Limit: l.limit}
	if res.Allowed {
		return res, nil
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, err
	}
	if ttl < 0 {
		// The key lost its expiry (INCR raced a failed EXPIRE); start a fresh window.
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, err
		}
		ttl = l.window
	}
	res.RetryAfter = ttl
	return res, nil
}
