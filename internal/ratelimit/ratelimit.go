package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the oracle's verdict for one scope/action window.
type Decision struct {
	Allowed           bool      `json:"allowed"`
	RetryAfterSeconds int       `json:"retry_after_seconds"`
	ResetAt           time.Time `json:"reset_at"`
}

// Checker is the rate-limit oracle consumed by the booking service. The
// algorithm behind it is not this package's contract; callers only act on the
// returned decision.
type Checker interface {
	Check(ctx context.Context, scopeKey, actionKey string, limit int, windowSeconds int) (Decision, error)
}

// RedisChecker implements Checker with a fixed window counter in Redis.
type RedisChecker struct {
	rdb *redis.Client
}

func NewRedisChecker(rdb *redis.Client) *RedisChecker {
	return &RedisChecker{rdb: rdb}
}

func (c *RedisChecker) Check(ctx context.Context, scopeKey, actionKey string, limit int, windowSeconds int) (Decision, error) {
	window := time.Duration(windowSeconds) * time.Second
	key := fmt.Sprintf("rl:%s:%s", actionKey, scopeKey)

	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	ttl, err := c.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	resetAt := time.Now().Add(ttl)

	if count > int64(limit) {
		return Decision{
			Allowed:           false,
			RetryAfterSeconds: int(ttl.Seconds()) + 1,
			ResetAt:           resetAt,
		}, nil
	}
	return Decision{Allowed: true, ResetAt: resetAt}, nil
}
