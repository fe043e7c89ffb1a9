package command

import (
	"errors"
	"fmt"

	"github.com/bft-labs/servolink/pkg/frame"
)

// MaxMagnitude is the largest angle magnitude the 16-bit field can carry.
const MaxMagnitude = 0xFFFF

var (
	// ErrAngleOutOfRange is returned when |angle| does not fit the magnitude field.
	ErrAngleOutOfRange = errors.New("command: angle out of range")

	// ErrNotAngle is returned when decoding an angle from a non angle-set packet.
	ErrNotAngle = errors.New("command: not an angle-set packet")
)

// StopPacket is the literal stop command understood by the device firmware.
// Its trailer is fixed by the firmware and is not the CRC-8 of the first
// four bytes, so StopPacket.Valid() is false.
var StopPacket = frame.Packet{frame.OpStop, 0x00, 0x00, 0x00, 0x9E}

// Kind distinguishes command classes.
type Kind int

const (
	KindSetAngle Kind = iota
	KindStop
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSetAngle:
		return "SetAngle"
	case KindStop:
		return "Stop"
	default:
		return "Unknown"
	}
}

// Command is a logical instruction for the actuator.
// Use SetAngle or Stop to construct one.
type Command struct {
	Kind      Kind
	Direction byte
	Magnitude uint16
}

// SetAngle builds a set-angle command. Non-negative angles use
// frame.DirPositive. Returns ErrAngleOutOfRange if |angle| > MaxMagnitude.
func SetAngle(angle int) (Command, error) {
	if angle > MaxMagnitude || angle < -MaxMagnitude {
		return Command{}, fmt.Errorf("%w: %d exceeds ±%d", ErrAngleOutOfRange, angle, MaxMagnitude)
	}
	c := Command{Kind: KindSetAngle, Direction: frame.DirPositive}
	if angle < 0 {
		c.Direction = frame.DirNegative
		angle = -angle
	}
	c.Magnitude = uint16(angle)
	return c, nil
}

// Stop returns the stop command.
func Stop() Command {
	return Command{Kind: KindStop}
}

// Packet renders the command for the wire.
func (c Command) Packet() frame.Packet {
	if c.Kind == KindStop {
		return StopPacket
	}
	return frame.Encode(frame.OpSetAngle, c.Direction, c.Magnitude)
}

// Angle returns the signed angle carried by a set-angle command.
func (c Command) Angle() int {
	if c.Direction == frame.DirNegative {
		return -int(c.Magnitude)
	}
	return int(c.Magnitude)
}

// BuildSetAngle returns the packet for a set-angle command.
func BuildSetAngle(angle int) (frame.Packet, error) {
	c, err := SetAngle(angle)
	if err != nil {
		return frame.Packet{}, err
	}
	return c.Packet(), nil
}

// BuildStop returns StopPacket.
func BuildStop() frame.Packet {
	return StopPacket
}

// DecodeAngle reconstructs the signed angle from a set-angle packet.
func DecodeAngle(p frame.Packet) (int, error) {
	if p.Opcode() != frame.OpSetAngle {
		return 0, fmt.Errorf("%w: opcode %02X", ErrNotAngle, p.Opcode())
	}
	c := Command{Kind: KindSetAngle, Direction: p.Flag(), Magnitude: p.Magnitude()}
	return c.Angle(), nil
}
