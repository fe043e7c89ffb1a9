package domain

import "sync"

// AngleState is a read-only snapshot of the pointer position.
type AngleState struct {
	Current int `json:"current"`
	Target  int `json:"target"`
}

// Settled reports whether the current angle has reached the target.
func (s AngleState) Settled() bool {
	return s.Current == s.Target
}

// AngleTracker holds the target requested by the caller and the current
// angle approaching it. Safe for concurrent use.
type AngleTracker struct {
	mu    sync.RWMutex
	state AngleState
}

// NewAngleTracker creates a tracker at rest at angle 0.
func NewAngleTracker() *AngleTracker {
	return &AngleTracker{}
}

// SetTarget records a new target; the current angle is left untouched.
func (t *AngleTracker) SetTarget(angle int) {
	t.mu.Lock()
	t.state.Target = angle
	t.mu.Unlock()
}

// Snapshot returns the current state.
func (t *AngleTracker) Snapshot() AngleState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Step moves the current angle up to speed degrees toward the target and
// reports whether it moved. A non-positive speed jumps straight to the target.
func (t *AngleTracker) Step(speed int) (AngleState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.state
	if s.Current == s.Target {
		return *s, false
	}
	delta := s.Target - s.Current
	switch {
	case speed <= 0:
		s.Current = s.Target
	case delta > 0:
		s.Current += min(speed, delta)
	default:
		s.Current -= min(speed, -delta)
	}
	return *s, true
}
