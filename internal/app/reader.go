package app

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/servolink/internal/ports"
	"github.com/bft-labs/servolink/internal/timeutil"
	"github.com/bft-labs/servolink/pkg/command"
	"github.com/bft-labs/servolink/pkg/frame"
	"github.com/bft-labs/servolink/pkg/log"
	"github.com/bft-labs/servolink/pkg/queue"
)

// DefaultTrigger is the sensor token that signals presence.
const DefaultTrigger = "1"

const readBufferSize = 256

// ReaderConfig configures the sensor reader.
type ReaderConfig struct {
	Port PortConfig

	// Trigger is the line content that counts as a presence detection.
	Trigger string

	// DebounceWindow is the minimum spacing between two accepted triggers.
	DebounceWindow time.Duration

	// StopPacket is enqueued for every accepted trigger.
	StopPacket frame.Packet
}

func (c ReaderConfig) withDefaults() ReaderConfig {
	if c.Trigger == "" {
		c.Trigger = DefaultTrigger
	}
	if c.StopPacket == (frame.Packet{}) {
		c.StopPacket = command.StopPacket
	}
	return c
}

// Reader polls the read port for sensor data and enqueues a stop command
// when presence is detected, at most once per debounce window.
type Reader struct {
	cfg       ReaderConfig
	trigger   []byte
	opener    ports.PortOpener
	queue     *queue.Queue
	logger    log.Logger
	events    ReaderEvents
	clock     timeutil.Clock
	debouncer *Debouncer
}

// NewReader creates a reader. events and clock may be nil.
func NewReader(cfg ReaderConfig, opener ports.PortOpener, q *queue.Queue, logger log.Logger, events ReaderEvents, clock timeutil.Clock) *Reader {
	cfg = cfg.withDefaults()
	if events == nil {
		events = nopEvents{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Reader{
		cfg:       cfg,
		trigger:   []byte(cfg.Trigger),
		opener:    opener,
		queue:     q,
		logger:    logger,
		events:    events,
		clock:     clock,
		debouncer: NewDebouncer(cfg.DebounceWindow),
	}
}

// SetDebounceWindow changes the debounce window of a running reader.
func (r *Reader) SetDebounceWindow(d time.Duration) {
	r.debouncer.SetWindow(d)
	r.logger.Info("debounce window updated", log.Duration("window", d))
}

// DebounceWindow returns the current debounce window.
func (r *Reader) DebounceWindow() time.Duration {
	return r.debouncer.Window()
}

// Run opens the read port and polls it until ctx is done. A read that
// returns no data is a timeout tick, not an error.
func (r *Reader) Run(ctx context.Context) error {
	h := newPortHandle("reader", r.cfg.Port, r.opener, r.logger, r.clock)
	port, err := h.open(ctx)
	if err != nil {
		return err
	}
	defer h.close()

	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("serial read failed",
				log.String("port", r.cfg.Port.Path),
				log.Err(err),
			)
			if !r.cfg.Port.Reconnect {
				return fmt.Errorf("read %s: %w", r.cfg.Port.Path, err)
			}
			if port, err = h.reopen(ctx); err != nil {
				return err
			}
			continue
		}
		if n == 0 {
			continue
		}
		r.handle(buf[:n])
	}
}

// handle processes one chunk of sensor data. Each line is checked on its
// own so that a trigger is recognized as soon as it arrives. Triggers sent
// without a separator ("11") arrive as one line and fire once.
func (r *Reader) handle(data []byte) {
	r.logger.Debug("sensor data received", log.Hex("data", data))

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		if !r.isTrigger(line) {
			r.logger.Debug("sensor data ignored", log.String("line", string(line)))
			continue
		}
		r.onTrigger()
	}
}

// isTrigger reports whether line is one or more back-to-back copies of the
// trigger. A run of triggers counts as a single detection.
func (r *Reader) isTrigger(line []byte) bool {
	n := len(r.trigger)
	if len(line) < n || len(line)%n != 0 {
		return false
	}
	for i := 0; i < len(line); i += n {
		if !bytes.Equal(line[i:i+n], r.trigger) {
			return false
		}
	}
	return true
}

func (r *Reader) onTrigger() {
	now := r.clock.Now()
	last, _ := r.debouncer.Last()
	if !r.debouncer.Allow(now) {
		since := now.Sub(last)
		r.logger.Debug("trigger suppressed",
			log.Duration("since_last", since),
			log.Duration("window", r.debouncer.Window()),
		)
		r.events.OnTriggerSuppressed(now, since)
		return
	}

	r.logger.Info("presence detected, sending stop",
		log.Stringer("packet", r.cfg.StopPacket),
	)
	if err := r.queue.Enqueue(r.cfg.StopPacket); err != nil {
		r.logger.Warn("stop command dropped", log.Err(err))
	}
	r.events.OnPresenceDetected(now)
}
