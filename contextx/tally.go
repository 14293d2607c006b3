package contextx

import (
	"context"
	"sync/atomic"
	"time"
)

// Tally accumulates per-request cache and upstream activity. A middleware
// installs one with [WithTally]; the cache and upstream layers add to it via
// the package-level Add functions, which are no-ops when no Tally is present.
// All fields are safe for concurrent use.
type Tally struct {
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	upstreamCalls atomic.Int64
	upstreamNanos atomic.Int64
	cacheNanos    atomic.Int64
}

// CacheHits returns the number of fresh cache hits recorded.
func (t *Tally) CacheHits() int64 { return t.cacheHits.Load() }

// CacheMisses returns the number of cache misses recorded.
func (t *Tally) CacheMisses() int64 { return t.cacheMisses.Load() }

// UpstreamCalls returns the number of upstream HTTP calls recorded.
func (t *Tally) UpstreamCalls() int64 { return t.upstreamCalls.Load() }

// UpstreamTime returns the accumulated time spent waiting on the upstream.
func (t *Tally) UpstreamTime() time.Duration { return time.Duration(t.upstreamNanos.Load()) }

// CacheTime returns the accumulated time spent serving from cache.
func (t *Tally) CacheTime() time.Duration { return time.Duration(t.cacheNanos.Load()) }

// WithTally returns a derived context carrying a fresh Tally, plus the Tally
// itself for the caller to read after the request completes.
func WithTally(ctx context.Context) (context.Context, *Tally) {
	t := &Tally{}
	return context.WithValue(ctx, tallyKey, t), t
}

// TallyFromContext extracts the Tally stored in ctx.
// The boolean return value indicates whether a Tally was present.
func TallyFromContext(ctx context.Context) (*Tally, bool) {
	t, ok := ctx.Value(tallyKey).(*Tally)
	return t, ok
}

// AddCacheHit records a fresh cache hit on the context's Tally, if any.
func AddCacheHit(ctx context.Context) {
	if t, ok := TallyFromContext(ctx); ok {
		t.cacheHits.Add(1)
	}
}

// AddCacheMiss records a cache miss on the context's Tally, if any.
func AddCacheMiss(ctx context.Context) {
	if t, ok := TallyFromContext(ctx); ok {
		t.cacheMisses.Add(1)
	}
}

// AddUpstreamCall records an upstream HTTP call and its duration on the
// context's Tally, if any.
func AddUpstreamCall(ctx context.Context, d time.Duration) {
	if t, ok := TallyFromContext(ctx); ok {
		t.upstreamCalls.Add(1)
		t.upstreamNanos.Add(int64(d))
	}
}

// AddCacheTime records time spent serving from cache on the context's Tally,
// if any.
func AddCacheTime(ctx context.Context, d time.Duration) {
	if t, ok := TallyFromContext(ctx); ok {
		t.cacheNanos.Add(int64(d))
	}
}
