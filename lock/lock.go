// Package lock provides a string-keyed mutual-exclusion primitive with two
// implementations: an in-process waiter registry and a Redis lease lock. The
// lease variant guarantees eventual release even when the owning process
// crashes, at the cost of polling for blocking acquisition.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrAcquireTimeout is returned by Acquire when the lock could not be
// obtained within the requested timeout.
var ErrAcquireTimeout = errors.New("lock: acquire timed out")

// Token is proof of lock ownership. Release only releases the lock when the
// token still matches the current holder, so releasing a lock the caller no
// longer holds is a no-op rather than an error.
type Token struct {
	// Key is the lock key this token was issued for.
	Key string

	value string
}

// Locker is the mutual-exclusion contract shared by both implementations.
type Locker interface {
	// TryAcquire attempts to take the lock without blocking. The boolean
	// reports whether the lock was obtained; the token is nil otherwise.
	TryAcquire(ctx context.Context, key string) (*Token, bool, error)

	// Acquire blocks until the lock is obtained, the timeout elapses
	// (ErrAcquireTimeout), or ctx is done.
	Acquire(ctx context.Context, key string, timeout time.Duration) (*Token, error)

	// Release gives up the lock held by token. Releasing a lock the caller
	// does not hold is a no-op.
	Release(ctx context.Context, token *Token) error
}
