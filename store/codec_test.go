package store

import (
	"testing"
	"time"
)

func TestCodec_RoundTrip(t *testing.T) {
	m := mustNewMemory(t)
	c := NewCodec(m, nil)
	ctx := t.Context()

	in := map[string]any{"response": []any{"a", "b"}}
	if err := c.Set(ctx, "k", in, time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	var out map[string]any
	ok, err := c.Get(ctx, "k", &out)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if len(out["response"].([]any)) != 2 {
		t.Fatalf("unexpected payload: %v", out)
	}
}

func TestCodec_CorruptEntryPurged(t *testing.T) {
	m := mustNewMemory(t)
	c := NewCodec(m, nil)
	ctx := t.Context()

	// Plant garbage directly in the raw store.
	if err := m.Set(ctx, "bad", []byte("{not json"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	var out map[string]any
	ok, err := c.Get(ctx, "bad", &out)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Fatal("corrupt entry must read as a miss")
	}

	// The key must be gone from the raw store afterwards.
	if _, ok, _ := m.Get(ctx, "bad"); ok {
		t.Fatal("corrupt entry was not purged")
	}
}

func TestCodec_GetRawValidates(t *testing.T) {
	m := mustNewMemory(t)
	c := NewCodec(m, nil)
	ctx := t.Context()

	if err := m.Set(ctx, "bad", []byte("\xff\xfe"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if _, ok, _ := c.GetRaw(ctx, "bad"); ok {
		t.Fatal("invalid JSON must read as a miss")
	}
	if _, ok, _ := m.Get(ctx, "bad"); ok {
		t.Fatal("invalid JSON entry was not purged")
	}

	if err := m.Set(ctx, "good", []byte(`{"a":1}`), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	raw, ok, err := c.GetRaw(ctx, "good")
	if err != nil || !ok {
		t.Fatalf("GetRaw: ok=%v err=%v", ok, err)
	}
	if string(raw) != `{"a":1}` {
		t.Fatalf("got %q", raw)
	}
}

func TestCodec_ZeroTTLNotStored(t *testing.T) {
	m := mustNewMemory(t)
	c := NewCodec(m, nil)
	ctx := t.Context()

	if err := c.Set(ctx, "k", map[string]any{"a": 1}, 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	var out map[string]any
	if ok, _ := c.Get(ctx, "k", &out); ok {
		t.Fatal("ttl<=0 must not cache")
	}
}
