package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is how long the watcher waits for a burst of
// filesystem events to settle before reloading.
const DefaultDebounceDuration = 200 * time.Millisecond

// Debouncer collapses rapid triggers into one call. Each Trigger restarts
// the quiet period; only the most recent callback runs.
type Debouncer struct {
	duration time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewDebouncer returns a debouncer with the given quiet period. A
// non-positive duration selects DefaultDebounceDuration.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{duration: d}
}

// Trigger schedules fn after the quiet period, replacing any callback
// still waiting.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		// A Stop that lost the race with the timer firing leaves a stale
		// callback behind; the generation check drops it.
		current := gen == d.gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel drops the pending callback, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Pending reports whether a callback is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Duration returns the quiet period.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}
