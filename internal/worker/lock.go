package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker gates a sweep so that only one replica runs it per interval. Losing
// the lock is never an error condition: the next tick retries, and the
// underlying transitions are compare-and-swap guarded anyway.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisLock is a SET NX advisory lock. The lock is not released on purpose:
// it expires with the TTL, which throttles the sweep to at most one run per
// TTL across all replicas.
type RedisLock struct {
	client     *redis.Client
	instanceID string
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{
		client:     client,
		instanceID: uuid.New().String(),
	}
}

func (l *RedisLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, l.instanceID, ttl).Result()
}
