// Package store provides the cache store contract with two interchangeable
// backends: an in-process implementation backed by ristretto and a networked
// Redis implementation. A JSON codec layer adds typed access with
// self-healing on corrupt payloads.
package store

import (
	"context"
	"time"
)

// Store is the key/value contract shared by every backend. Values are opaque
// bytes; expiry is the backend's responsibility.
type Store interface {
	// Get retrieves a value by key. The boolean indicates a hit. Entries
	// past their TTL behave as a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key with the given TTL. A TTL ≤ 0 is a
	// no-op: non-cacheable results are never stored.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// Delete removes the entry for key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}
