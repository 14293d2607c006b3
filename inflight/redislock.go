package inflight

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/naksir/feedguard/lock"
	"github.com/naksir/feedguard/store"
)

const (
	lockPrefix   = "naksir:lock:"
	resultPrefix = "naksir:result:"

	// resultTTL is how long a published outcome stays readable for late
	// waiters. It is a hand-off buffer, not a cache.
	resultTTL = 60 * time.Second

	// defaultWait bounds Wait when the caller's context has no deadline.
	defaultWait = 20 * time.Second
)

// envelope is the published outcome written to the shared store.
type envelope struct {
	OK    bool            `json:"ok"`
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

// RedisLock is a cross-process Coordinator built from a lease lock and a
// shared store. The owner holds the lease for the duration of the
// computation; waiters block on the lock and then read the published
// outcome. If the owner process dies the lease expires and the next Begin
// caller is promoted to owner.
type RedisLock struct {
	locker lock.Locker
	st     store.Store
}

// NewRedisLock creates a cross-process Coordinator. locker should be a
// lease-based lock (lock.Redis) and st the store shared by all processes.
func NewRedisLock(locker lock.Locker, st store.Store) *RedisLock {
	return &RedisLock{locker: locker, st: st}
}

// Begin tries to take the per-key lease. The winner is the owner.
func (r *RedisLock) Begin(ctx context.Context, key string) (*Handle, bool, error) {
	tok, ok, err := r.locker.TryAcquire(ctx, lockPrefix+key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return &Handle{Key: key}, false, nil
	}
	return &Handle{Key: key, owner: true, token: tok}, true, nil
}

// Resolve publishes the outcome to the shared store and releases the lease.
// The lease is released on every path so waiters are never stuck behind a
// finished owner.
func (r *RedisLock) Resolve(ctx context.Context, h *Handle, val []byte, opErr error) error {
	if !h.owner {
		return ErrNotOwner
	}
	defer func() { _ = r.locker.Release(ctx, h.token) }()

	env := envelope{OK: opErr == nil, Value: val}
	if opErr != nil {
		env.Error = opErr.Error()
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.st.Set(ctx, resultPrefix+h.Key, raw, resultTTL)
}

// Wait blocks on the lease until the owner releases it, then reads the
// published outcome. A missing outcome (owner died before publishing, or the
// hand-off window lapsed) is reported as ErrStillWorking.
func (r *RedisLock) Wait(ctx context.Context, h *Handle) ([]byte, error) {
	timeout := defaultWait
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}

	tok, err := r.locker.Acquire(ctx, lockPrefix+h.Key, timeout)
	if err != nil {
		if errors.Is(err, lock.ErrAcquireTimeout) {
			return nil, ErrStillWorking
		}
		return nil, err
	}
	_ = r.locker.Release(ctx, tok)

	raw, ok, err := r.st.Get(ctx, resultPrefix+h.Key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStillWorking
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrStillWorking
	}
	if !env.OK {
		return nil, errors.New(env.Error)
	}
	return env.Value, nil
}
