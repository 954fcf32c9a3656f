package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisLimiter is a fixed-window per-session request limiter shared by every
// server replica.
type RedisLimiter struct {
	client *redis.Client
	limit  int // Max requests per window
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (r *RedisLimiter) key(sessionID string) string {
	bucket := r.now().UnixNano() / int64(r.window)
	return fmt.Sprintf("ratelimit:%s:%d", sessionID, bucket)
}

func (r *RedisLimiter) Allow(ctx context.Context, sessionID string) (bool, error) {
	key := r.key(sessionID)
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, r.window)
		return nil
	})
	if err != nil {
		return false, eris.Wrap(err, "redis limiter: incr")
	}
	return incr.Val() <= int64(r.limit), nil
}

