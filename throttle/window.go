// Package throttle tracks upstream rate-limit events in a sliding time
// window. The circuit state is derived from the window on every read, never
// stored: once enough events age out, calls resume without an explicit reset.
package throttle

import (
	"sync"
	"time"
)

// Window is a sliding-window event counter. All methods are safe for
// concurrent use.
type Window struct {
	mu sync.Mutex

	size      time.Duration
	threshold int
	events    []time.Time
	nowFunc   func() time.Time // for testing; defaults to time.Now
}

// NewWindow creates a Window of the given size. The circuit opens once
// threshold events have been recorded within the window.
func NewWindow(size time.Duration, threshold int) *Window {
	return &Window{
		size:      size,
		threshold: threshold,
		nowFunc:   time.Now,
	}
}

// Record appends a rate-limit event at the current time.
func (w *Window) Record() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune()
	w.events = append(w.events, w.now())
}

// Count returns the number of events currently inside the window.
func (w *Window) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune()
	return len(w.events)
}

// Open reports whether the circuit is open, i.e. the window holds at least
// the threshold number of events.
func (w *Window) Open() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune()
	return len(w.events) >= w.threshold
}

// prune drops events older than the window size. Must be called with w.mu
// held.
func (w *Window) prune() {
	cutoff := w.now().Add(-w.size)
	i := 0
	for i < len(w.events) && !w.events[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.events = append(w.events[:0], w.events[i:]...)
	}
}

func (w *Window) now() time.Time {
	if w.nowFunc != nil {
		return w.nowFunc()
	}
	return time.Now()
}
