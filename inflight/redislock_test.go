package inflight

// RedisLock's coordination logic is backend-agnostic: it only needs a Locker
// and a Store. These tests run it over the in-process implementations; the
// Redis path itself is covered by the lock and store integration tests.

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/naksir/feedguard/lock"
	"github.com/naksir/feedguard/store"
)

func newTestRedisLock(t *testing.T) *RedisLock {
	t.Helper()
	st, err := store.NewMemory(1000)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(st.Close)
	return NewRedisLock(lock.NewMemory(), st)
}

func TestRedisLock_SingleFlight(t *testing.T) {
	c := newTestRedisLock(t)
	ctx := t.Context()

	const n = 8
	var execs atomic.Int32
	results := make([][]byte, n)
	errs := make([]error, n)

	var started sync.WaitGroup
	started.Add(1)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i == 0 {
				h, owner, err := c.Begin(ctx, "k")
				if err != nil || !owner {
					errs[i] = errors.New("first caller must own")
					started.Done()
					return
				}
				started.Done()
				time.Sleep(50 * time.Millisecond)
				execs.Add(1)
				errs[i] = c.Resolve(ctx, h, []byte(`{"v":1}`), nil)
				results[i] = []byte(`{"v":1}`)
				return
			}
			started.Wait()
			h, owner, err := c.Begin(ctx, "k")
			if err != nil {
				errs[i] = err
				return
			}
			if owner {
				errs[i] = errors.New("late caller became owner")
				return
			}
			results[i], errs[i] = c.Wait(ctx, h)
		}()
	}
	wg.Wait()

	if got := execs.Load(); got != 1 {
		t.Fatalf("computation executed %d times, want 1", got)
	}
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if string(results[i]) != `{"v":1}` {
			t.Fatalf("caller %d got %q", i, results[i])
		}
	}
}

func TestRedisLock_ErrorPublished(t *testing.T) {
	c := newTestRedisLock(t)
	ctx := t.Context()

	h, owner, _ := c.Begin(ctx, "k")
	if !owner {
		t.Fatal("expected ownership")
	}

	waiter := make(chan error, 1)
	go func() {
		h2, _, _ := c.Begin(ctx, "k")
		_, err := c.Wait(ctx, h2)
		waiter <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := c.Resolve(ctx, h, nil, errors.New("boom")); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	err := <-waiter
	if err == nil || err.Error() != "boom" {
		t.Fatalf("waiter got %v, want boom", err)
	}
}

func TestRedisLock_WaitTimeout(t *testing.T) {
	c := newTestRedisLock(t)

	// Owner never resolves within the waiter's budget.
	_, owner, _ := c.Begin(t.Context(), "k")
	if !owner {
		t.Fatal("expected ownership")
	}

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	h2, _, _ := c.Begin(ctx, "k")
	_, err := c.Wait(ctx, h2)
	if !errors.Is(err, ErrStillWorking) {
		t.Fatalf("got %v, want ErrStillWorking", err)
	}
}

func TestRedisLock_ResolveByNonOwner(t *testing.T) {
	c := newTestRedisLock(t)
	ctx := t.Context()

	_, _, _ = c.Begin(ctx, "k")
	h2, owner, _ := c.Begin(ctx, "k")
	if owner {
		t.Fatal("second caller must not own")
	}
	if err := c.Resolve(ctx, h2, []byte("x"), nil); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("got %v, want ErrNotOwner", err)
	}
}
