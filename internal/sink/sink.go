// Package sink provides seekable output targets for writers that must
// back-patch a fixed-size prefix after the body has been written.
package sink

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

// ErrOverflow indicates a counter exceeded its maximum value.
var ErrOverflow = errors.New("sink: counter overflow")

// ErrInvalidSeek is returned for seeks to a negative position.
var ErrInvalidSeek = errors.New("sink: invalid seek")

// Buffer is an in-memory io.WriteSeeker. Writes past the current end grow
// the buffer; writes before the end overwrite in place.
type Buffer struct {
	buf []byte
	pos int
}

// NewBuffer returns a Buffer with capacity for n bytes.
func NewBuffer(n int) *Buffer {
	return &Buffer{buf: make([]byte, 0, n)}
}

// Write implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			grown := make([]byte, len(b.buf), max(end, 2*cap(b.buf)))
			copy(grown, b.buf)
			b.buf = grown
		}
		b.buf = b.buf[:end]
	}
	copy(b.buf[b.pos:], p)
	b.pos = end
	return len(p), nil
}

// Seek implements io.Seeker.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, ErrInvalidSeek
	}
	if abs < 0 {
		return 0, ErrInvalidSeek
	}
	if abs > int64(len(b.buf)) {
		b.buf = append(b.buf, make([]byte, int(abs)-len(b.buf))...)
	}
	b.pos = int(abs)
	return abs, nil
}

// Bytes returns the buffer contents. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Writer buffers small writes to an underlying io.WriteSeeker and flushes
// before every seek so positions stay consistent.
type Writer struct {
	ws io.WriteSeeker
	bw *bufio.Writer
}

// NewWriter wraps ws.
func NewWriter(ws io.WriteSeeker) *Writer {
	return &Writer{ws: ws, bw: bufio.NewWriterSize(ws, 64*1024)}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	return w.bw.Write(p)
}

// Seek flushes pending writes and seeks the underlying writer.
func (w *Writer) Seek(offset int64, whence int) (int64, error) {
	if err := w.bw.Flush(); err != nil {
		return 0, err
	}
	return w.ws.Seek(offset, whence)
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// CountingWriter wraps a writer and counts bytes written.
type CountingWriter struct {
	W io.Writer
	N uint64
}

// Write implements io.Writer.
func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	if n > 0 {
		//nolint:gosec // n is guaranteed non-negative by io.Writer contract
		if cw.N > ^uint64(0)-uint64(n) {
			return n, ErrOverflow
		}
		cw.N += uint64(n) //nolint:gosec // overflow checked above
	}
	return n, err
}

// AppendUnsigned appends the low width bytes (1 to 4) of v in order.
func AppendUnsigned(b []byte, v uint32, width int, order binary.ByteOrder) []byte {
	if order == binary.BigEndian {
		for i := width - 1; i >= 0; i-- {
			b = append(b, byte(v>>(8*uint(i))))
		}
		return b
	}
	for i := range width {
		b = append(b, byte(v>>(8*uint(i))))
	}
	return b
}
