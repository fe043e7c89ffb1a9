package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/servolink/internal/domain"
	"github.com/bft-labs/servolink/pkg/log"
)

// ShutdownTimeout is the maximum time to wait for the workers to drain.
const ShutdownTimeout = 10 * time.Second

// State represents the lifecycle state of the bridge.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	// StateDegraded means a worker exited while the bridge was running,
	// e.g. its serial port could not be opened.
	StateDegraded
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateDegraded:
		return "Degraded"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateDegraded, StateStopping, StateCrashed},
	StateDegraded: {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// WorkerStatus describes a worker registered with the lifecycle.
type WorkerStatus struct {
	Name    string
	Running bool
	Err     error
}

// Lifecycle manages the bridge state machine and tracks its workers.
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	workers      map[string]*WorkerStatus
	wg           sync.WaitGroup
	logger       log.Logger
	eventEmitter EventEmitter
}

// NewLifecycle creates a lifecycle in StateStopped.
func NewLifecycle(logger log.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        StateStopped,
		workers:      make(map[string]*WorkerStatus),
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to newState if the transition table allows it.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state
	if !allowed(oldState, newState) {
		l.mu.Unlock()
		if oldState == StateStopped || oldState == StateCrashed {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}
	l.state = newState
	l.mu.Unlock()

	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)
	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanStart returns true if Start() can be called.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateStopped || l.state == StateCrashed
}

// CanStop returns true if Stop() can be called.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch l.state {
	case StateStarting, StateRunning, StateDegraded:
		return true
	}
	return false
}

// Go runs fn as a tracked worker. When fn returns an error other than
// context cancellation while the bridge is running, the bridge is marked
// degraded; the other workers keep running.
func (l *Lifecycle) Go(ctx context.Context, name string, fn func(context.Context) error) {
	status := &WorkerStatus{Name: name, Running: true}
	l.mu.Lock()
	l.workers[name] = status
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		err := fn(ctx)

		// A worker left over from an earlier run only updates its own
		// entry, never the one registered by its replacement.
		l.mu.Lock()
		status.Running = false
		status.Err = err
		current := l.workers[name] == status
		state := l.state
		l.mu.Unlock()

		if !current {
			l.logger.Info("stale worker exited", log.String("worker", name), log.Err(err))
			return
		}

		if err == nil || ctx.Err() != nil {
			l.logger.Info("worker exited", log.String("worker", name))
			return
		}
		l.logger.Error("worker failed", log.String("worker", name), log.Err(err))
		if state == StateRunning {
			_ = l.TransitionTo(StateDegraded, name+": "+err.Error())
		}
	}()
}

// Workers returns a snapshot of all registered workers.
func (l *Lifecycle) Workers() []WorkerStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]WorkerStatus, 0, len(l.workers))
	for _, w := range l.workers {
		out = append(out, *w)
	}
	return out
}

// Worker returns the status of the named worker.
func (l *Lifecycle) Worker(name string) (WorkerStatus, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.workers[name]
	if !ok {
		return WorkerStatus{}, false
	}
	return *w, true
}

// WaitWithTimeout waits for all workers to finish.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, workers still running",
			log.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
