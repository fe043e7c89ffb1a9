package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Size is the length of an encoded packet in bytes.
const Size = 5

// Opcodes identify the command class carried by a packet.
const (
	OpSetAngle byte = 0xA0
	OpStop     byte = 0xA1
)

// Direction flags for set-angle packets.
const (
	DirNegative byte = 0x00
	DirPositive byte = 0x01
)

var (
	// ErrPacketLength is returned when decoding input that is not Size bytes long.
	ErrPacketLength = errors.New("frame: invalid packet length")

	// ErrChecksum is returned when the trailer does not match the payload.
	ErrChecksum = errors.New("frame: checksum mismatch")
)

// Packet is an encoded command: opcode, flag, magnitude high byte,
// magnitude low byte and checksum. It is a value type; copies never alias.
type Packet [Size]byte

// Encode lays out opcode, flag and a big-endian magnitude and appends the
// CRC-8 of those four bytes.
func Encode(opcode, flag byte, magnitude uint16) Packet {
	var p Packet
	p[0] = opcode
	p[1] = flag
	binary.BigEndian.PutUint16(p[2:4], magnitude)
	p[4] = Checksum(p[:4])
	return p
}

// Decode copies b into a Packet after checking its length and checksum.
func Decode(b []byte) (Packet, error) {
	var p Packet
	if len(b) != Size {
		return p, fmt.Errorf("%w: got %d bytes, want %d", ErrPacketLength, len(b), Size)
	}
	copy(p[:], b)
	if !p.Valid() {
		return p, fmt.Errorf("%w: trailer %02X, computed %02X", ErrChecksum, p[4], Checksum(p[:4]))
	}
	return p, nil
}

// Opcode returns the command class byte.
func (p Packet) Opcode() byte { return p[0] }

// Flag returns the direction or flag byte.
func (p Packet) Flag() byte { return p[1] }

// Magnitude returns the 16-bit magnitude field.
func (p Packet) Magnitude() uint16 { return binary.BigEndian.Uint16(p[2:4]) }

// Checksum returns the trailer byte as carried on the wire.
func (p Packet) Checksum() byte { return p[4] }

// Valid reports whether the trailer matches the CRC-8 of the payload.
func (p Packet) Valid() bool { return Validate(p[:]) }

// Bytes returns a copy of the packet suitable for a single port write.
func (p Packet) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, p[:])
	return b
}

// String formats the packet as space separated upper-case hex, e.g. "A0 01 00 5A 15".
func (p Packet) String() string {
	var sb strings.Builder
	for i, b := range p {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
