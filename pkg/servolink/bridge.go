package servolink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/servolink/internal/app"
	"github.com/bft-labs/servolink/internal/domain"
	"github.com/bft-labs/servolink/pkg/command"
	"github.com/bft-labs/servolink/pkg/frame"
	"github.com/bft-labs/servolink/pkg/log"
	"github.com/bft-labs/servolink/pkg/queue"
)

// Bridge connects a caller to the actuator and presence sensor serial
// ports. Angle commands from the caller and stop commands from the sensor
// share one transmit queue and reach the actuator in the order they were
// queued. Use New() to create a Bridge, then Start() to open the ports.
type Bridge struct {
	config    Config
	opts      options
	logger    log.Logger
	lifecycle *app.Lifecycle
	angles    *domain.AngleTracker
	bus       *eventBus
	emitter   *emitter
	plugins   []Plugin

	mu           sync.RWMutex
	queue        *queue.Queue
	reader       *app.Reader
	writerCancel context.CancelFunc
	readerCancel context.CancelFunc
	auxCancel    context.CancelFunc

	// sendMu keeps the queue order and the recorded target in step.
	sendMu sync.Mutex
}

// New creates a Bridge in StateStopped.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Bridge, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	bus := newEventBus()
	em := &emitter{
		handler: o.eventHandler,
		bus:     bus,
		now:     o.clock.Now,
	}

	return &Bridge{
		config:    cfg,
		opts:      o,
		logger:    o.logger,
		lifecycle: app.NewLifecycle(o.logger, em),
		angles:    domain.NewAngleTracker(),
		bus:       bus,
		emitter:   em,
		plugins:   o.plugins,
	}, nil
}

// Start opens both serial ports in background workers and returns
// immediately. A port that cannot be opened ends only its own worker and
// moves the bridge to StateDegraded.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	q := queue.New()
	writer := app.NewWriter(b.config.portConfig(b.config.WritePort), b.opts.opener, q, b.logger, b.emitter, b.opts.clock)
	reader := app.NewReader(app.ReaderConfig{
		Port:           b.config.portConfig(b.config.ReadPort),
		Trigger:        b.config.Trigger,
		DebounceWindow: b.config.DebounceWindow,
		StopPacket:     b.config.StopPacket,
	}, b.opts.opener, q, b.logger, b.emitter, b.opts.clock)

	writerCtx, writerCancel := context.WithCancel(ctx)
	readerCtx, readerCancel := context.WithCancel(ctx)
	auxCtx, auxCancel := context.WithCancel(ctx)

	b.queue = q
	b.reader = reader
	b.writerCancel, b.readerCancel, b.auxCancel = writerCancel, readerCancel, auxCancel

	pluginCfg := PluginConfig{
		Bridge:     b,
		ConfigPath: b.config.ConfigPath,
		Logger:     b.logger,
	}
	for i, p := range b.plugins {
		if err := p.Initialize(auxCtx, pluginCfg); err != nil {
			b.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			for j := i - 1; j >= 0; j-- {
				_ = b.plugins[j].Shutdown(context.Background())
			}
			writerCancel()
			readerCancel()
			auxCancel()
			_ = q.Close()
			b.queue, b.reader = nil, nil
			_ = b.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		b.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	if err := b.lifecycle.TransitionTo(app.StateRunning, "workers starting"); err != nil {
		return err
	}

	b.lifecycle.Go(writerCtx, "writer", writer.Run)
	b.lifecycle.Go(readerCtx, "reader", reader.Run)
	b.lifecycle.Go(auxCtx, "animator", b.animate)

	b.logger.Info("bridge started",
		log.String("write_port", b.config.WritePort),
		log.String("read_port", b.config.ReadPort),
		log.Stringer("mode", b.config.Serial),
	)
	return nil
}

// Stop closes the transmit queue, lets the writer drain what was queued
// before the call, and stops the reader. If the queue does not drain
// within the shutdown timeout the writer is cancelled and
// ErrShutdownTimeout is returned.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	if !b.lifecycle.CanStop() {
		b.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		b.mu.Unlock()
		return err
	}

	q := b.queue
	writerCancel, readerCancel, auxCancel := b.writerCancel, b.readerCancel, b.auxCancel
	b.mu.Unlock()

	if err := q.Close(); err != nil && !errors.Is(err, queue.ErrClosed) {
		b.logger.Warn("queue close failed", log.Err(err))
	}
	readerCancel()
	auxCancel()

	err := b.lifecycle.WaitWithTimeout(b.opts.shutdownTimeout)
	writerCancel()
	if err != nil {
		b.logger.Warn("writer did not drain, cancelled",
			log.Int("pending", q.Len()))
		_ = b.lifecycle.WaitWithTimeout(time.Second)
	}

	for i := len(b.plugins) - 1; i >= 0; i-- {
		p := b.plugins[i]
		if shutdownErr := p.Shutdown(context.Background()); shutdownErr != nil {
			b.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(shutdownErr))
		} else {
			b.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}

	b.mu.Lock()
	b.queue, b.reader = nil, nil
	b.mu.Unlock()

	if err != nil {
		_ = b.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = b.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state.
func (b *Bridge) Status() State {
	return convertState(b.lifecycle.State())
}

// SetAngle validates angle, queues a set-angle command and records it as
// the new target. It never blocks on I/O. An out-of-range angle returns
// ErrAngleOutOfRange and leaves the target unchanged.
func (b *Bridge) SetAngle(angle int) error {
	p, err := command.BuildSetAngle(angle)
	if err != nil {
		b.logger.Warn("angle rejected", log.Int("angle", angle), log.Err(err))
		return err
	}

	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	if err := b.enqueue(p); err != nil {
		return err
	}
	b.angles.SetTarget(angle)
	b.emitter.OnAngleChanged(b.angles.Snapshot())
	return nil
}

// SendStop queues the configured stop packet.
func (b *Bridge) SendStop() error {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()
	return b.enqueue(b.config.StopPacket)
}

func (b *Bridge) enqueue(p frame.Packet) error {
	b.mu.RLock()
	q := b.queue
	b.mu.RUnlock()

	if q == nil {
		return domain.ErrNotRunning
	}
	if err := q.Enqueue(p); err != nil {
		b.logger.Warn("command dropped", log.Stringer("packet", p), log.Err(err))
		return err
	}
	b.logger.Debug("command queued", log.Stringer("packet", p))
	return nil
}

// Angles returns the current and target angle.
func (b *Bridge) Angles() AngleState {
	return b.angles.Snapshot()
}

// QueueLen returns the number of items waiting for the writer.
func (b *Bridge) QueueLen() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.queue == nil {
		return 0
	}
	return b.queue.Len()
}

// SetDebounceWindow changes the presence debounce window, including on a
// running bridge.
func (b *Bridge) SetDebounceWindow(d time.Duration) {
	if d < 0 {
		d = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config.DebounceWindow = d
	if b.reader != nil {
		b.reader.SetDebounceWindow(d)
	}
}

// DebounceWindow returns the configured debounce window.
func (b *Bridge) DebounceWindow() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DebounceWindow
}

// Subscribe registers a subscriber for bridge events and returns its id.
// Events are dropped for a subscriber whose channel is full.
func (b *Bridge) Subscribe() (string, <-chan Event) {
	return b.bus.subscribe()
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bridge) Unsubscribe(id string) {
	b.bus.unsubscribe(id)
}

// animate moves the current angle toward the target until ctx is done.
func (b *Bridge) animate(ctx context.Context) error {
	ticker := time.NewTicker(b.config.AnimateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if s, moved := b.angles.Step(b.config.AnimateStep); moved {
				b.emitter.OnAngleChanged(s)
			}
		}
	}
}
