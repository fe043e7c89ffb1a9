package ports

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Serial defaults: 115200 baud, 8N1, one second read timeout.
const (
	DefaultBaudRate    = 115200
	DefaultDataBits    = 8
	DefaultStopBits    = 1
	DefaultParity      = "N"
	DefaultReadTimeout = time.Second
)

// SerialPort is an open serial handle.
// Read returns 0, nil when the read timeout expires without data.
type SerialPort interface {
	io.ReadWriteCloser
}

// PortOpener acquires serial ports.
type PortOpener interface {
	Open(path string, opts PortOptions) (SerialPort, error)
}

// PortOpenerFunc adapts a function to PortOpener.
type PortOpenerFunc func(path string, opts PortOptions) (SerialPort, error)

// Open calls f(path, opts).
func (f PortOpenerFunc) Open(path string, opts PortOptions) (SerialPort, error) {
	return f(path, opts)
}

// PortOptions describes the line settings used when opening a port.
type PortOptions struct {
	BaudRate    int           `toml:"baud_rate" json:"baud_rate"`
	DataBits    int           `toml:"data_bits" json:"data_bits"`
	StopBits    int           `toml:"stop_bits" json:"stop_bits"`
	Parity      string        `toml:"parity" json:"parity"`
	ReadTimeout time.Duration `toml:"-" json:"read_timeout"`
}

// DefaultPortOptions returns 115200 8N1 with a one second read timeout.
func DefaultPortOptions() PortOptions {
	return PortOptions{
		BaudRate:    DefaultBaudRate,
		DataBits:    DefaultDataBits,
		StopBits:    DefaultStopBits,
		Parity:      DefaultParity,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Normalize validates the options and fills unset values with defaults.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = DefaultDataBits
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = DefaultStopBits
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	return opts, nil
}

// String formats the line settings as e.g. "115200 8N1".
func (o PortOptions) String() string {
	return fmt.Sprintf("%d %d%s%d", o.BaudRate, o.DataBits, o.Parity, o.StopBits)
}
