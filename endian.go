package scene

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MagicSize is the length of the header signature.
const MagicSize = 12

// Endianness is the byte order of every multi-byte field in a scene file.
type Endianness uint8

const (
	// LittleEndian is used by PC builds.
	LittleEndian Endianness = iota
	// BigEndian is used by console builds.
	BigEndian
)

var (
	magicBig    = [MagicSize]byte{0x45, 0x01, 0x76, 0x29, 0x3F, 0x8C, 0xCC, 0xCD, 0x00, 0x00, 0x00, 0x00}
	magicLittle = [MagicSize]byte{0x29, 0x76, 0x01, 0x45, 0xCD, 0xCC, 0x8C, 0x3F, 0x00, 0x00, 0x00, 0x00}
)

// ResolveMagic maps a header signature to its byte order.
func ResolveMagic(magic []byte) (Endianness, error) {
	switch {
	case bytes.Equal(magic, magicBig[:]):
		return BigEndian, nil
	case bytes.Equal(magic, magicLittle[:]):
		return LittleEndian, nil
	}
	return 0, &FormatError{Kind: KindUnknownMagic, Offset: 0, Magic: bytes.Clone(magic)}
}

// ParseEndianness parses "big" or "little".
func ParseEndianness(s string) (Endianness, error) {
	switch s {
	case "big":
		return BigEndian, nil
	case "little":
		return LittleEndian, nil
	}
	return 0, fmt.Errorf("scene: unknown endianness %q", s)
}

// Magic returns the header signature selecting e.
func (e Endianness) Magic() []byte {
	if e == BigEndian {
		return magicBig[:]
	}
	return magicLittle[:]
}

// Order is a byte order able to both read and append fixed-width integers.
type Order interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// ByteOrder returns the encoding/binary order for e.
func (e Endianness) ByteOrder() Order {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (e Endianness) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}
