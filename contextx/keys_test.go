package contextx

import "testing"

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(t.Context(), "7f3c2d1e")
	if got := RequestIDFromContext(ctx); got != "7f3c2d1e" {
		t.Fatalf("got %q, want %q", got, "7f3c2d1e")
	}
}

func TestRequestIDOverwrite(t *testing.T) {
	ctx := WithRequestID(t.Context(), "first")
	ctx = WithRequestID(ctx, "second")
	if got := RequestIDFromContext(ctx); got != "second" {
		t.Fatalf("got %q, want %q", got, "second")
	}
}

func TestRequestIDMissing(t *testing.T) {
	if got := RequestIDFromContext(t.Context()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
