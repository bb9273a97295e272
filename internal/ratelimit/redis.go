package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared across instances. The
// first INCR on a key opens the window by attaching a TTL; the reset
// time is derived from the remaining TTL.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (l *RedisLimiter) Consume(ctx context.Context, key string) (Result, error) {
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	ttl := pipe.TTL(ctx, key)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return Result{}, err
	}

	return l.buildResult(int(incr.Val()), ttl.Val(), true), nil
}

func (l *RedisLimiter) Peek(ctx context.Context, key string) (Result, error) {
	pipe := l.client.TxPipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.TTL(ctx, key)

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return Result{}, err
	}

	hits, _ := get.Int()

	return l.buildResult(hits, ttl.Val(), false), nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

func (l *RedisLimiter) buildResult(hits int, ttl time.Duration, consumed bool) Result {
	if ttl < 0 {
		ttl = l.window
	}

	threshold := l.limit
	if !consumed {
		// Peek reports whether the next request would still be admitted.
		threshold = l.limit - 1
	}

	result := Result{
		Allowed:   hits <= threshold,
		Limit:     l.limit,
		Remaining: maxInt(l.limit-hits, 0),
		ResetAt:   time.Now().Add(ttl),
	}
	if !result.Allowed {
		result.RetryAfterSeconds = retryAfterSeconds(ttl)
	}

	return result
}
