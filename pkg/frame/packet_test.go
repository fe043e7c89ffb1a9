package frame

import (
	"errors"
	"testing"
)

func TestChecksum_KnownVectors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{"empty", nil, 0x00},
		{"set angle zero", []byte{0xA0, 0x01, 0x00, 0x00}, 0x94},
		{"set angle 90", []byte{0xA0, 0x01, 0x00, 0x5A}, 0x15},
		{"set angle -90", []byte{0xA0, 0x00, 0x00, 0x5A}, 0x7E},
		{"set angle 360", []byte{0xA0, 0x01, 0x01, 0x68}, 0x9E},
		{"set angle max", []byte{0xA0, 0x01, 0xFF, 0xFF}, 0xB0},
		{"set angle min", []byte{0xA0, 0x00, 0xFF, 0xFF}, 0xDB},
		{"stop body", []byte{0xA1, 0x00, 0x00, 0x00}, 0xE9},
		{"check string", []byte("123456789"), 0xF4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum(% X) = %02X, want %02X", tt.data, got, tt.want)
			}
		})
	}
}

func TestChecksum_Deterministic(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x7F}
	first := Checksum(data)
	for i := 0; i < 10; i++ {
		if got := Checksum(data); got != first {
			t.Fatalf("Checksum changed between calls: %02X != %02X", got, first)
		}
	}
}

func TestEncode_Layout(t *testing.T) {
	p := Encode(OpSetAngle, DirPositive, 0x1234)

	want := Packet{0xA0, 0x01, 0x12, 0x34, Checksum([]byte{0xA0, 0x01, 0x12, 0x34})}
	if p != want {
		t.Fatalf("Encode = %s, want %s", p, want)
	}
	if p.Opcode() != OpSetAngle {
		t.Errorf("Opcode = %02X, want %02X", p.Opcode(), OpSetAngle)
	}
	if p.Flag() != DirPositive {
		t.Errorf("Flag = %02X, want %02X", p.Flag(), DirPositive)
	}
	if p.Magnitude() != 0x1234 {
		t.Errorf("Magnitude = %04X, want 1234", p.Magnitude())
	}
}

func TestEncode_AlwaysValidates(t *testing.T) {
	for _, op := range []byte{OpSetAngle, OpStop, 0x00, 0xFF} {
		for _, flag := range []byte{DirNegative, DirPositive, 0x80} {
			for m := 0; m <= 0xFFFF; m += 257 {
				p := Encode(op, flag, uint16(m))
				if !Validate(p[:]) {
					t.Fatalf("Validate(Encode(%02X, %02X, %d)) = false", op, flag, m)
				}
				if !p.Valid() {
					t.Fatalf("Encode(%02X, %02X, %d).Valid() = false", op, flag, m)
				}
			}
		}
	}
}

func TestValidate_RejectsCorruption(t *testing.T) {
	p := Encode(OpSetAngle, DirPositive, 90)
	for i := 0; i < Size; i++ {
		b := p.Bytes()
		b[i] ^= 0x01
		if Validate(b) {
			t.Errorf("Validate accepted packet with bit flipped in byte %d: % X", i, b)
		}
	}
	if Validate(nil) {
		t.Error("Validate(nil) = true, want false")
	}
}

func TestDecode(t *testing.T) {
	good := Encode(OpSetAngle, DirNegative, 45)

	got, err := Decode(good.Bytes())
	if err != nil {
		t.Fatalf("Decode(valid) error = %v", err)
	}
	if got != good {
		t.Errorf("Decode = %s, want %s", got, good)
	}

	if _, err := Decode(good[:4]); !errors.Is(err, ErrPacketLength) {
		t.Errorf("Decode(short) error = %v, want ErrPacketLength", err)
	}

	bad := good.Bytes()
	bad[4]++
	if _, err := Decode(bad); !errors.Is(err, ErrChecksum) {
		t.Errorf("Decode(bad trailer) error = %v, want ErrChecksum", err)
	}
}

func TestPacket_BytesIsCopy(t *testing.T) {
	p := Encode(OpSetAngle, DirPositive, 1)
	b := p.Bytes()
	b[0] = 0x00
	if p.Opcode() != OpSetAngle {
		t.Error("mutating Bytes() changed the packet")
	}
}

func TestPacket_String(t *testing.T) {
	p := Encode(OpSetAngle, DirPositive, 90)
	if got, want := p.String(), "A0 01 00 5A 15"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
