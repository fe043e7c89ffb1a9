package frame

// Polynomial is the CRC-8 generator polynomial (x^8 + x^2 + x + 1).
const Polynomial = 0x07

// Checksum computes the CRC-8 of data using Polynomial, a zero initial
// value, no reflection and no final xor.
func Checksum(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ Polynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Validate reports whether the last byte of b is the checksum of the
// bytes before it. Empty input is never valid.
func Validate(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	n := len(b) - 1
	return Checksum(b[:n]) == b[n]
}
