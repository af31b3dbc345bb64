// Package lock keeps at most one generation attempt in flight per order.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease is a held guard. Release is safe to call more than once.
type Lease interface {
	Release(ctx context.Context) error
}

type Guard interface {
	// Acquire returns (nil, false, nil) when another attempt holds the key.
	Acquire(ctx context.Context, ownerID, orderID string) (Lease, bool, error)
}

// releaseScript deletes the key only if it still carries our token, so an
// expired lease cannot drop a newer holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisGuard struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{redis: rdb, ttl: ttl}
}

func key(ownerID, orderID string) string {
	return fmt.Sprintf("report-generation:%s:%s", ownerID, orderID)
}

func (g *RedisGuard) Acquire(ctx context.Context, ownerID, orderID string) (Lease, bool, error) {
	k := key(ownerID, orderID)
	token := uuid.NewString()

	ok, err := g.redis.SetNX(ctx, k, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", k, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{redis: g.redis, key: k, token: token}, true, nil
}

type redisLease struct {
	redis *redis.Client
	key   string
	token string
}

func (l *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.redis, []string{l.key}, l.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
