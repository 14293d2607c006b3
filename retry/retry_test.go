package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errThrottled = errors.New("throttled")

func isThrottled(err error) bool { return errors.Is(err, errThrottled) }

func TestDo_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	v, err := Do(t.Context(), Config{MaxAttempts: 3, Retryable: isThrottled}, func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != "ok" || calls != 1 {
		t.Fatalf("got %q after %d calls", v, calls)
	}
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	cfg := Config{
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Retryable:   isThrottled,
	}
	calls := 0
	v, err := Do(t.Context(), cfg, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errThrottled
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != 42 || calls != 3 {
		t.Fatalf("got %d after %d calls", v, calls)
	}
}

func TestDo_AttemptsBounded(t *testing.T) {
	cfg := Config{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Retryable:   isThrottled,
	}
	calls := 0
	_, err := Do(t.Context(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, errThrottled
	})
	if !errors.Is(err, errThrottled) {
		t.Fatalf("got %v, want errThrottled", err)
	}
	if calls != 3 {
		t.Fatalf("fn called %d times, want 3", calls)
	}
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	hard := errors.New("bad request")
	calls := 0
	_, err := Do(t.Context(), Config{MaxAttempts: 5, Retryable: isThrottled}, func(context.Context) (int, error) {
		calls++
		return 0, hard
	})
	if !errors.Is(err, hard) {
		t.Fatalf("got %v, want %v", err, hard)
	}
	if calls != 1 {
		t.Fatalf("fn called %d times, want 1", calls)
	}
}

func TestDo_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	cfg := Config{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    time.Second,
		Retryable:   isThrottled,
	}
	_, err := Do(ctx, cfg, func(context.Context) (int, error) {
		return 0, errThrottled
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second, // capped
		10 * time.Second, // stays capped
	}
	for i, w := range want {
		if got := backoff(cfg, i); got != w {
			t.Fatalf("attempt %d: got %v, want %v", i, got, w)
		}
	}
}

func TestBackoff_NeverExceedsCap(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: 10 * time.Second, Jitter: 0.2}
	for i := range 12 {
		if got := backoff(cfg, i); got > 12*time.Second {
			t.Fatalf("attempt %d: %v exceeds cap plus jitter", i, got)
		}
	}
}
