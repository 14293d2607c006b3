package store

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Memory is an in-process store backed by ristretto. It is only suitable for
// single-process deployments; TTLs are enforced at read time.
type Memory struct {
	rc *ristretto.Cache[string, []byte]
}

// NewMemory creates a Memory store. maxCost controls the maximum cost the
// cache can hold (each entry has a cost of 1).
func NewMemory(maxCost int64) (*Memory, error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{rc: rc}, nil
}

// Get retrieves a value by key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.rc.Get(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

// Set stores a value under key with the given TTL. A TTL ≤ 0 is a no-op.
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.rc.SetWithTTL(key, bytes.Clone(val), 1, ttl)
	m.rc.Wait()
	return nil
}

// Delete removes the entry for key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.rc.Del(key)
	return nil
}

// Close releases the resources held by the underlying cache.
func (m *Memory) Close() {
	m.rc.Close()
}
