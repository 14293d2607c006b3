// Package inflight provides single-flight coordination: for N concurrent
// callers of the same key, one becomes the owner and executes the expensive
// operation; the rest block until the owner publishes the outcome and then
// all observe that same outcome.
//
// Two implementations are provided. Memory coordinates goroutines inside one
// process with a wakeable channel per key. RedisLock coordinates across
// processes with a lease lock plus a published result envelope in a shared
// store; the lease bounds how long a crashed owner can block waiters.
package inflight

import (
	"context"
	"errors"

	"github.com/naksir/feedguard/lock"
)

// ErrStillWorking is returned by Wait when no outcome was published within
// the caller's wait budget. The computation itself is unaffected; the caller
// is expected to retry later.
var ErrStillWorking = errors.New("inflight: computation still in progress")

// ErrNotOwner is returned by Resolve when called on a non-owner handle.
var ErrNotOwner = errors.New("inflight: only the owner may resolve")

// Handle represents one caller's participation in an in-flight computation.
type Handle struct {
	// Key is the coordination key the handle was issued for.
	Key string

	owner bool
	c     *call       // Memory
	token *lock.Token // RedisLock owner
}

// Owner reports whether this handle owns the computation.
func (h *Handle) Owner() bool { return h.owner }

// Coordinator is the single-flight contract.
type Coordinator interface {
	// Begin registers the caller for key. The first concurrent caller gets
	// isOwner = true and must eventually call Resolve; later callers get
	// the same computation's handle with isOwner = false. Ownership
	// determination and waiter registration are atomic per key.
	Begin(ctx context.Context, key string) (h *Handle, isOwner bool, err error)

	// Resolve publishes the owner's outcome (value or error), wakes all
	// waiters, and retires the in-flight record. Owner-only.
	Resolve(ctx context.Context, h *Handle, val []byte, opErr error) error

	// Wait blocks until the owner resolves, then returns the published
	// outcome. ctx bounds the wait; an expired wait returns
	// ErrStillWorking without affecting the owner.
	Wait(ctx context.Context, h *Handle) ([]byte, error)
}
