package lock

import (
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func redisLocker(t *testing.T, lease time.Duration) *Redis {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(t.Context()).Err(); err != nil {
		t.Fatalf("cannot reach Redis at %s: %v", addr, err)
	}
	return NewRedis(rdb, lease, nil)
}

func TestRedisIntegration_TryAcquireRelease(t *testing.T) {
	l := redisLocker(t, 10*time.Second)
	ctx := t.Context()
	key := "test:lock:" + t.Name()

	tok, ok, err := l.TryAcquire(ctx, key)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	if _, ok, _ := l.TryAcquire(ctx, key); ok {
		t.Fatal("expected second acquire to fail while held")
	}

	if err := l.Release(ctx, tok); err != nil {
		t.Fatalf("Release: %v", err)
	}

	tok2, ok, _ := l.TryAcquire(ctx, key)
	if !ok {
		t.Fatal("expected acquire after release to succeed")
	}
	_ = l.Release(ctx, tok2)
}

func TestRedisIntegration_StaleReleaseIsNoop(t *testing.T) {
	l := redisLocker(t, 10*time.Second)
	ctx := t.Context()
	key := "test:lock:stale:" + t.Name()

	tok, _, _ := l.TryAcquire(ctx, key)
	_ = l.Release(ctx, tok)

	tok2, ok, _ := l.TryAcquire(ctx, key)
	if !ok {
		t.Fatal("expected reacquire to succeed")
	}
	// The first token is stale now; releasing it must not free tok2's lock.
	_ = l.Release(ctx, tok)
	if _, ok, _ := l.TryAcquire(ctx, key); ok {
		t.Fatal("stale release freed the new holder's lock")
	}
	_ = l.Release(ctx, tok2)
}

func TestRedisIntegration_LeaseExpiry(t *testing.T) {
	l := redisLocker(t, time.Second)
	ctx := t.Context()
	key := "test:lock:lease:" + t.Name()

	if _, ok, _ := l.TryAcquire(ctx, key); !ok {
		t.Fatal("expected acquire to succeed")
	}
	// Simulate owner death: never release, wait out the lease.
	tok, err := l.Acquire(ctx, key, 3*time.Second)
	if err != nil {
		t.Fatalf("Acquire after lease expiry: %v", err)
	}
	_ = l.Release(ctx, tok)
}
