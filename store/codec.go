package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Codec layers JSON encoding over a Store. A stored payload that no longer
// decodes is purged and reported as a miss, so one corrupt entry cannot wedge
// a key forever.
type Codec struct {
	s   Store
	log *slog.Logger
}

// NewCodec wraps s. A nil logger falls back to slog.Default().
func NewCodec(s Store, log *slog.Logger) *Codec {
	if log == nil {
		log = slog.Default()
	}
	return &Codec{s: s, log: log}
}

// Get decodes the entry for key into v. The boolean indicates a usable hit.
// An undecodable payload is deleted and treated as a miss.
func (c *Codec) Get(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := c.s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.log.Warn("purging undecodable cache entry", "key", key, "err", err)
		_ = c.s.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// GetRaw returns the entry for key after validating that it is well-formed
// JSON, purging it otherwise.
func (c *Codec) GetRaw(ctx context.Context, key string) (json.RawMessage, bool, error) {
	raw, ok, err := c.s.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if !json.Valid(raw) {
		c.log.Warn("purging undecodable cache entry", "key", key)
		_ = c.s.Delete(ctx, key)
		return nil, false, nil
	}
	return json.RawMessage(raw), true, nil
}

// Set encodes v and stores it under key. A TTL ≤ 0 is a no-op.
func (c *Codec) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.s.Set(ctx, key, raw, ttl)
}

// Delete removes the entry for key.
func (c *Codec) Delete(ctx context.Context, key string) error {
	return c.s.Delete(ctx, key)
}

// Store returns the wrapped raw store.
func (c *Codec) Store() Store {
	return c.s
}
