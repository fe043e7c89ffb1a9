// Package frame provides the servo packet codec.
//
// A packet is five bytes long: an opcode, a direction or flag byte, a
// big-endian 16-bit magnitude and a CRC-8 trailer computed over the first
// four bytes. The package has no I/O dependencies and can be imported by
// device-side tooling on its own.
//
// # Usage
//
//	p := frame.Encode(frame.OpSetAngle, frame.DirPositive, 90)
//	port.Write(p.Bytes())
//
//	if !frame.Validate(buf) {
//	    return frame.ErrChecksum
//	}
//
// # Checksum
//
// The trailer is a bit-serial CRC-8 with polynomial 0x07, initial value
// 0x00, no reflection and no final xor. Receivers must use exactly this
// algorithm to interoperate.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package frame
