package ratelimit

import (
	"context"
	"time"

	redisadapter "github.com/Silicom-11/synaplink-engine/internal/adapters/redis"
)

// RateLimiter is a fixed-window counter in redis. It fails open when
// redis is unreachable: booking must keep working through a cache
// outage.
type RateLimiter struct {
	redis *redisadapter.Cache
}

func NewRateLimiter(redis *redisadapter.Cache) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}
	return incr.Val() <= int64(rate)
}
