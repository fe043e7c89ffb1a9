package servolink

import (
	"time"

	serialAdapter "github.com/bft-labs/servolink/internal/adapters/serial"
	"github.com/bft-labs/servolink/internal/app"
	"github.com/bft-labs/servolink/internal/ports"
	"github.com/bft-labs/servolink/internal/timeutil"
	"github.com/bft-labs/servolink/pkg/log"
)

// Re-exported boundary types so callers can supply their own implementations.
type (
	// Logger is the structured logging interface from pkg/log.
	Logger = log.Logger

	// SerialPort is an open serial device.
	SerialPort = ports.SerialPort

	// PortOpener opens serial devices by path.
	PortOpener = ports.PortOpener

	// PortOpenerFunc adapts a function to PortOpener.
	PortOpenerFunc = ports.PortOpenerFunc

	// PortOptions holds serial line settings.
	PortOptions = ports.PortOptions

	// Clock supplies the time used for debouncing and reconnect backoff.
	Clock = timeutil.Clock
)

// DefaultPortOptions returns 115200 8N1 with a one second read timeout.
func DefaultPortOptions() PortOptions {
	return ports.DefaultPortOptions()
}

// Option configures optional behavior of a Bridge.
type Option func(*options)

type options struct {
	logger          log.Logger
	eventHandler    EventHandler
	opener          ports.PortOpener
	clock           timeutil.Clock
	plugins         []Plugin
	shutdownTimeout time.Duration
}

func defaultOptions() options {
	return options{
		logger:          log.NoopLogger{},
		opener:          serialAdapter.NewOpener(),
		clock:           timeutil.RealClock{},
		shutdownTimeout: app.ShutdownTimeout,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for bridge events.
// Events are called synchronously from the worker goroutines, so handlers
// should return quickly.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPortOpener replaces the go.bug.st/serial opener, e.g. with a mock.
func WithPortOpener(opener PortOpener) Option {
	return func(o *options) {
		o.opener = opener
	}
}

// WithClock replaces the wall clock used for debouncing and backoff.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithShutdownTimeout bounds how long Stop waits for the queue to drain
// before the writer is cancelled.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithPlugin registers a plugin to be initialized when the bridge starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
