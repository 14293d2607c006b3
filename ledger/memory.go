package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is the shared state behind Memory ledger handles. Multiple
// handles over one store behave like multiple processes over one database,
// which is exactly how the tests exercise cross-process exclusivity.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]*Record
}

// NewMemoryStore creates an empty shared store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*Record)}
}

// Memory is a Ledger handle over a shared MemoryStore.
type Memory struct {
	store *MemoryStore
}

// NewMemory creates a handle over store.
func NewMemory(store *MemoryStore) *Memory {
	return &Memory{store: store}
}

// TryMarkGenerating claims ownership for key. The map insert plays the role
// of the unique constraint.
func (m *Memory) TryMarkGenerating(_ context.Context, key string) (bool, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if row, ok := s.rows[key]; ok {
		if row.Status != StatusFailed {
			return false, nil
		}
		// Reclaim a failed generation.
		row.Status = StatusGenerating
		row.Error = ""
		row.UpdatedAt = now
		return true, nil
	}
	s.rows[key] = &Record{
		CacheKey:  key,
		Status:    StatusGenerating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return true, nil
}

// Get returns a copy of the record for key, or nil when absent.
func (m *Memory) Get(_ context.Context, key string) (*Record, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecord(s.rows[key]), nil
}

// WaitForReady polls until the record reaches a terminal status or maxWait
// elapses.
func (m *Memory) WaitForReady(ctx context.Context, key string, maxWait time.Duration) (*Record, error) {
	return pollForReady(ctx, m, key, maxWait)
}

// SaveOK records a successful result, creating the row when needed.
func (m *Memory) SaveOK(_ context.Context, key string, payload json.RawMessage) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.rows[key]
	if row == nil {
		row = &Record{CacheKey: key, CreatedAt: time.Now()}
		s.rows[key] = row
	}
	row.Status = StatusReady
	row.Payload = bytes.Clone(payload)
	row.Error = ""
	row.UpdatedAt = time.Now()
	return nil
}

// SaveFailed records a failure, creating the row when needed.
func (m *Memory) SaveFailed(_ context.Context, key string, msg string) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.rows[key]
	if row == nil {
		row = &Record{CacheKey: key, CreatedAt: time.Now()}
		s.rows[key] = row
	}
	row.Status = StatusFailed
	row.Payload = nil
	row.Error = msg
	row.UpdatedAt = time.Now()
	return nil
}

func cloneRecord(r *Record) *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Payload = bytes.Clone(r.Payload)
	return &c
}

// pollForReady is the shared polling loop behind every backend's
// WaitForReady: re-read at PollInterval until terminal, vanished, or out of
// budget, then report the last observed state.
func pollForReady(ctx context.Context, l Ledger, key string, maxWait time.Duration) (*Record, error) {
	if maxWait <= 0 {
		maxWait = DefaultWait
	}
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()
	tick := time.NewTicker(PollInterval)
	defer tick.Stop()

	var last *Record
	for {
		row, err := l.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, nil
		}
		if row.Status == StatusReady || row.Status == StatusFailed {
			return row, nil
		}
		last = row

		select {
		case <-tick.C:
		case <-deadline.C:
			return last, nil
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}
