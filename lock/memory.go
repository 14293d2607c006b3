package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Locker. Blocking acquisition parks the caller on a
// per-key waiter channel; Release hands the lock to one parked waiter.
type Memory struct {
	mu      sync.Mutex
	held    map[string]string // key -> token value of current holder
	waiters map[string][]chan struct{}
}

// NewMemory creates an in-process Locker.
func NewMemory() *Memory {
	return &Memory{
		held:    make(map[string]string),
		waiters: make(map[string][]chan struct{}),
	}
}

// TryAcquire attempts to take the lock without blocking.
func (m *Memory) TryAcquire(_ context.Context, key string) (*Token, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.held[key]; taken {
		return nil, false, nil
	}
	val := uuid.NewString()
	m.held[key] = val
	return &Token{Key: key, value: val}, true, nil
}

// Acquire blocks until the lock is obtained, the timeout elapses, or ctx is
// done.
func (m *Memory) Acquire(ctx context.Context, key string, timeout time.Duration) (*Token, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		m.mu.Lock()
		if _, taken := m.held[key]; !taken {
			val := uuid.NewString()
			m.held[key] = val
			m.mu.Unlock()
			return &Token{Key: key, value: val}, nil
		}
		wake := make(chan struct{}, 1)
		m.waiters[key] = append(m.waiters[key], wake)
		m.mu.Unlock()

		select {
		case <-wake:
			// Lock was released; loop and race for it again.
		case <-deadline.C:
			m.dropWaiter(key, wake)
			return nil, ErrAcquireTimeout
		case <-ctx.Done():
			m.dropWaiter(key, wake)
			return nil, ctx.Err()
		}
	}
}

// Release gives up the lock held by token. A stale or foreign token is a
// no-op.
func (m *Memory) Release(_ context.Context, token *Token) error {
	if token == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[token.Key] != token.value {
		return nil
	}
	delete(m.held, token.Key)
	if ws := m.waiters[token.Key]; len(ws) > 0 {
		// Wake everyone; they race for the lock and losers park again.
		for _, w := range ws {
			select {
			case w <- struct{}{}:
			default:
			}
		}
		delete(m.waiters, token.Key)
	}
	return nil
}

func (m *Memory) dropWaiter(key string, wake chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := m.waiters[key]
	for i, w := range ws {
		if w == wake {
			m.waiters[key] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(m.waiters[key]) == 0 {
		delete(m.waiters, key)
	}
}
