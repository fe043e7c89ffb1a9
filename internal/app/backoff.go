package app

import (
	"context"
	"math/rand"
	"time"

	"github.com/bft-labs/servolink/internal/timeutil"
)

// Default reconnect backoff values.
const (
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 10 * time.Second
)

// backoff implements exponential backoff with jitter between port reopen attempts.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	clock   timeutil.Clock
	jitter  func() float64
}

func newBackoff(initial, max time.Duration, clock timeutil.Clock) *backoff {
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if max < initial {
		max = initial
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
		clock:   clock,
		jitter:  rand.Float64,
	}
}

// Wait blocks for the current delay (±20% jitter) and doubles it.
// Returns ctx.Err() if the context is done first.
func (b *backoff) Wait(ctx context.Context) error {
	j := float64(b.current) * 0.2 * (b.jitter()*2 - 1)
	d := time.Duration(float64(b.current) + j)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.clock.After(d):
		return nil
	}
}

// Reset restores the initial delay after a successful open.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the delay the next Wait will use, before jitter.
func (b *backoff) Current() time.Duration {
	return b.current
}
