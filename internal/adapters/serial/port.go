// Package serial adapts go.bug.st/serial to the ports interfaces.
package serial

import (
	"fmt"

	bugst "go.bug.st/serial"

	"github.com/bft-labs/servolink/internal/ports"
)

// Opener opens real serial devices.
type Opener struct{}

// NewOpener returns an Opener backed by go.bug.st/serial.
func NewOpener() *Opener {
	return &Opener{}
}

// Open opens path with the normalized options and applies the read timeout.
func (Opener) Open(path string, opts ports.PortOptions) (ports.SerialPort, error) {
	norm, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	mode, err := Mode(norm)
	if err != nil {
		return nil, err
	}

	port, err := bugst.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(norm.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}
	return port, nil
}

// Mode converts port options into the go.bug.st/serial mode structure.
func Mode(opts ports.PortOptions) (*bugst.Mode, error) {
	mode := &bugst.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
	}

	switch opts.StopBits {
	case 1:
		mode.StopBits = bugst.OneStopBit
	case 2:
		mode.StopBits = bugst.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", opts.StopBits)
	}

	switch opts.Parity {
	case "N":
		mode.Parity = bugst.NoParity
	case "E":
		mode.Parity = bugst.EvenParity
	case "O":
		mode.Parity = bugst.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", opts.Parity)
	}

	return mode, nil
}

// ListPorts returns the serial device paths present on the system.
func ListPorts() ([]string, error) {
	return bugst.GetPortsList()
}

var _ ports.PortOpener = Opener{}
