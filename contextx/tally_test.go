package contextx

import (
	"testing"
	"time"
)

func TestTallyRoundTrip(t *testing.T) {
	ctx, tally := WithTally(t.Context())

	AddCacheHit(ctx)
	AddCacheHit(ctx)
	AddCacheMiss(ctx)
	AddUpstreamCall(ctx, 250*time.Millisecond)
	AddCacheTime(ctx, 10*time.Millisecond)

	if got := tally.CacheHits(); got != 2 {
		t.Fatalf("CacheHits() = %d, want 2", got)
	}
	if got := tally.CacheMisses(); got != 1 {
		t.Fatalf("CacheMisses() = %d, want 1", got)
	}
	if got := tally.UpstreamCalls(); got != 1 {
		t.Fatalf("UpstreamCalls() = %d, want 1", got)
	}
	if got := tally.UpstreamTime(); got != 250*time.Millisecond {
		t.Fatalf("UpstreamTime() = %v, want 250ms", got)
	}
	if got := tally.CacheTime(); got != 10*time.Millisecond {
		t.Fatalf("CacheTime() = %v, want 10ms", got)
	}
}

func TestAddWithoutTallyIsNoop(t *testing.T) {
	// Must not panic when no Tally was installed.
	AddCacheHit(t.Context())
	AddCacheMiss(t.Context())
	AddUpstreamCall(t.Context(), time.Second)
	AddCacheTime(t.Context(), time.Second)

	if _, ok := TallyFromContext(t.Context()); ok {
		t.Fatal("expected no tally on a bare context")
	}
}
