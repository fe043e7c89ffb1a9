package app

import (
	"sync/atomic"
	"time"
)

// DefaultDebounceWindow is the minimum spacing between two presence detections.
const DefaultDebounceWindow = 2 * time.Second

// Debouncer suppresses triggers that arrive within the window of the last
// accepted one. Allow must only be called from a single goroutine; the
// window may be changed concurrently.
type Debouncer struct {
	window atomic.Int64
	last   time.Time
	fired  bool
}

// NewDebouncer creates a debouncer whose first trigger is always accepted.
func NewDebouncer(window time.Duration) *Debouncer {
	d := &Debouncer{}
	d.SetWindow(window)
	return d
}

// Allow reports whether a trigger at now starts a new detection, and if so
// records now as the last accepted trigger.
func (d *Debouncer) Allow(now time.Time) bool {
	if d.fired && now.Sub(d.last) < d.Window() {
		return false
	}
	d.last = now
	d.fired = true
	return true
}

// Window returns the suppression window.
func (d *Debouncer) Window() time.Duration {
	return time.Duration(d.window.Load())
}

// SetWindow changes the suppression window. Negative values are treated as zero.
func (d *Debouncer) SetWindow(w time.Duration) {
	if w < 0 {
		w = 0
	}
	d.window.Store(int64(w))
}

// Last returns the last accepted trigger time and whether one exists.
func (d *Debouncer) Last() (time.Time, bool) {
	return d.last, d.fired
}
