package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultLease bounds how long a crashed owner can hold a Redis lock.
	DefaultLease = 30 * time.Second

	// pollInterval is how often a blocked Acquire retries SET NX.
	pollInterval = 100 * time.Millisecond
)

// releaseScript deletes the lock key only when it still holds our token
// value, so an expired-and-reacquired lock is never released from under its
// new owner.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a lease-based Locker. The lease TTL guarantees eventual release
// when the owner process dies; blocking acquisition polls.
type Redis struct {
	rdb   *redis.Client
	lease time.Duration
	log   *slog.Logger
}

// NewRedis creates a lease-based Locker on top of rdb. A lease ≤ 0 uses
// DefaultLease; a nil logger falls back to slog.Default().
func NewRedis(rdb *redis.Client, lease time.Duration, log *slog.Logger) *Redis {
	if lease <= 0 {
		lease = DefaultLease
	}
	if log == nil {
		log = slog.Default()
	}
	return &Redis{rdb: rdb, lease: lease, log: log}
}

// TryAcquire attempts to take the lock without blocking.
func (r *Redis) TryAcquire(ctx context.Context, key string) (*Token, bool, error) {
	val := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, key, val, r.lease).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Token{Key: key, value: val}, true, nil
}

// Acquire polls TryAcquire until the lock is obtained, the timeout elapses,
// or ctx is done.
func (r *Redis) Acquire(ctx context.Context, key string, timeout time.Duration) (*Token, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		tok, ok, err := r.TryAcquire(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return tok, nil
		}
		select {
		case <-tick.C:
		case <-deadline.C:
			return nil, ErrAcquireTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release gives up the lock held by token. A lock that already expired (or
// was taken over) is left alone. Redis errors are logged, not returned, so
// cleanup paths never fail on release.
func (r *Redis) Release(ctx context.Context, token *Token) error {
	if token == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, r.rdb, []string{token.Key}, token.value).Err(); err != nil {
		r.log.Warn("failed to release redis lock", "key", token.Key, "err", err)
	}
	return nil
}
