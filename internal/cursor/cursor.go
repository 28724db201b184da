// Package cursor provides a forward reader over an in-memory byte slice with
// one-record lookahead and explicit seeking.
//
// Multi-byte values are read in the byte order the cursor was created with.
// Reads past the end of the slice return ErrShort and leave the position
// unchanged.
package cursor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

// ErrShort is returned when fewer bytes remain than a read requires.
var ErrShort = errors.New("cursor: short read")

// ErrSeek is returned when a seek target falls outside the slice.
var ErrSeek = errors.New("cursor: seek out of range")

// Cursor reads values from data starting at a movable offset.
type Cursor struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

// New returns a cursor positioned at the start of data.
func New(data []byte, order binary.ByteOrder) *Cursor {
	return &Cursor{data: data, order: order}
}

// Offset returns the current absolute position.
func (c *Cursor) Offset() int {
	return c.pos
}

// Order returns the byte order used for multi-byte reads.
func (c *Cursor) Order() binary.ByteOrder {
	return c.order
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

// Seek moves the cursor to an absolute offset.
func (c *Cursor) Seek(off int) error {
	if off < 0 || off > len(c.data) {
		return ErrSeek
	}
	c.pos = off
	return nil
}

// Skip advances the cursor n bytes.
func (c *Cursor) Skip(n int) error {
	if n < 0 || n > c.Remaining() {
		return ErrShort
	}
	c.pos += n
	return nil
}

// Peek returns the next n bytes without consuming them.
// The returned slice aliases the cursor's data.
func (c *Cursor) Peek(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, ErrShort
	}
	return c.data[c.pos : c.pos+n], nil
}

// Next consumes and returns the next n bytes.
// The returned slice aliases the cursor's data.
func (c *Cursor) Next(n int) ([]byte, error) {
	b, err := c.Peek(n)
	if err != nil {
		return nil, err
	}
	c.pos += n
	return b, nil
}

// Section returns a reader over the next n bytes without consuming them.
func (c *Cursor) Section(n int) (*bytes.Reader, error) {
	b, err := c.Peek(n)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// PeekUint16 returns the next 2-byte value without consuming it.
func (c *Cursor) PeekUint16() (uint16, error) {
	b, err := c.Peek(2)
	if err != nil {
		return 0, err
	}
	return c.order.Uint16(b), nil
}

// Uint reads an unsigned integer of width bytes (1 to 4).
func (c *Cursor) Uint(width int) (uint32, error) {
	b, err := c.Next(width)
	if err != nil {
		return 0, err
	}
	return Unsigned(b, c.order), nil
}

// Int reads a two's complement signed integer of width bytes (1 to 4).
func (c *Cursor) Int(width int) (int32, error) {
	v, err := c.Uint(width)
	if err != nil {
		return 0, err
	}
	return SignExtend(v, width), nil
}

// Uint8 reads a single unsigned byte.
func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.Next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads a 2-byte unsigned integer.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.Next(2)
	if err != nil {
		return 0, err
	}
	return c.order.Uint16(b), nil
}

// Float32 reads an IEEE-754 single precision float.
func (c *Cursor) Float32() (float32, error) {
	b, err := c.Next(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(c.order.Uint32(b)), nil
}

// Unsigned decodes an unsigned integer of len(b) bytes (1 to 4) in order.
func Unsigned(b []byte, order binary.ByteOrder) uint32 {
	var v uint32
	if order == binary.BigEndian {
		for _, x := range b {
			v = v<<8 | uint32(x)
		}
		return v
	}
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v
}

// SignExtend interprets the low width bytes of v as a two's complement value.
func SignExtend(v uint32, width int) int32 {
	shift := 32 - 8*uint(width)
	return int32(v<<shift) >> shift //nolint:gosec // deliberate reinterpretation
}
