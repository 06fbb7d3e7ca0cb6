package claim

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"pipeline-crm/pkg/utils"
)

// RedisSessionLimiter caps concurrent call sessions per agent using an atomic
// redis counter. The TTL covers process crashes between claim and release;
// pick it comfortably above the claim grace so the limiter never expires a
// slot that is still legitimately held.
type RedisSessionLimiter struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisSessionLimiter(rdb *redis.Client, limit int, ttl time.Duration) *RedisSessionLimiter {
	if limit <= 0 {
		limit = 1
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisSessionLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func (l *RedisSessionLimiter) key(agentID string) string {
	return "call_sessions:" + agentID
}

func (l *RedisSessionLimiter) Acquire(ctx context.Context, agentID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, l.key(agentID), l.limit, l.ttl)
}

func (l *RedisSessionLimiter) Release(ctx context.Context, agentID string) error {
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, l.key(agentID))
}
