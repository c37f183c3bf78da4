package middlewares

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is the fixed-window counter shared by every replica. The
// first hit in a window sets the expiry (EXPIRE NX, Redis 7+); later hits
// only increment.
type RedisLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(rdb redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, prefix: "devcamper:ratelimit:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	return l.decide(incr.Val(), ttl.Val())
}

func (l *RedisLimiter) decide(count int64, ttl time.Duration) (bool, time.Duration, error) {
	if count <= int64(l.limit) {
		return true, 0, nil
	}
	if ttl < 0 {
		ttl = l.window
	}
	return false, ttl, nil
}
