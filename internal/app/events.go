package app

import (
	"time"

	"github.com/bft-labs/servolink/pkg/frame"
)

// WriterEvents receives notifications from the writer worker.
type WriterEvents interface {
	OnPacketWritten(p frame.Packet)
	OnWriteError(p frame.Packet, err error)
}

// ReaderEvents receives notifications from the reader worker.
type ReaderEvents interface {
	OnPresenceDetected(at time.Time)
	OnTriggerSuppressed(at time.Time, sinceLast time.Duration)
}

type nopEvents struct{}

func (nopEvents) OnPacketWritten(frame.Packet)                 {}
func (nopEvents) OnWriteError(frame.Packet, error)             {}
func (nopEvents) OnPresenceDetected(time.Time)                 {}
func (nopEvents) OnTriggerSuppressed(time.Time, time.Duration) {}
