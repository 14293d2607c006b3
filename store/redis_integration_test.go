package store

import (
	"os"
	"testing"
	"time"
)

func redisStore(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis integration test")
	}
	r := NewRedis(addr, "", 0)
	t.Cleanup(func() { _ = r.Close() })
	if err := r.Ping(t.Context()); err != nil {
		t.Fatalf("cannot reach Redis at %s: %v", addr, err)
	}
	return r
}

func TestRedisIntegration_GetSet(t *testing.T) {
	r := redisStore(t)
	ctx := t.Context()

	key := "test:store:getset:" + t.Name()
	t.Cleanup(func() { _ = r.Delete(ctx, key) })

	_, ok, err := r.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}

	if err := r.Set(ctx, key, []byte("v1"), 10*time.Second); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	val, ok, err := r.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if string(val) != "v1" {
		t.Fatalf("got %q, want %q", val, "v1")
	}
}

func TestRedisIntegration_TTLExpires(t *testing.T) {
	r := redisStore(t)
	ctx := t.Context()

	key := "test:store:ttl:" + t.Name()
	if err := r.Set(ctx, key, []byte("temp"), time.Second); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, ok, _ := r.Get(ctx, key); ok {
		t.Fatal("expected miss after TTL")
	}
}
