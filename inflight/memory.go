package inflight

import (
	"bytes"
	"context"
	"sync"
)

// call holds the outcome of one computation cycle for a key.
type call struct {
	done chan struct{}
	val  []byte
	err  error
}

// Memory is an in-process Coordinator.
type Memory struct {
	mu    sync.Mutex
	calls map[string]*call
}

// NewMemory creates an in-process Coordinator.
func NewMemory() *Memory {
	return &Memory{calls: make(map[string]*call)}
}

// Begin registers the caller for key. Lookup and registration happen under
// one lock so a caller can never miss both ownership and the waiter list.
func (m *Memory) Begin(_ context.Context, key string) (*Handle, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.calls[key]; ok {
		return &Handle{Key: key, c: c}, false, nil
	}
	c := &call{done: make(chan struct{})}
	m.calls[key] = c
	return &Handle{Key: key, owner: true, c: c}, true, nil
}

// Resolve publishes the outcome and wakes all waiters.
func (m *Memory) Resolve(_ context.Context, h *Handle, val []byte, opErr error) error {
	if !h.owner {
		return ErrNotOwner
	}
	h.c.val = bytes.Clone(val)
	h.c.err = opErr

	m.mu.Lock()
	delete(m.calls, h.Key)
	m.mu.Unlock()

	close(h.c.done)
	return nil
}

// Wait blocks until the owner resolves or ctx expires.
func (m *Memory) Wait(ctx context.Context, h *Handle) ([]byte, error) {
	select {
	case <-h.c.done:
		if h.c.err != nil {
			return nil, h.c.err
		}
		return bytes.Clone(h.c.val), nil
	case <-ctx.Done():
		return nil, ErrStillWorking
	}
}
