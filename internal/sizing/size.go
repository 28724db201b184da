// Package sizing provides width checks and safe size arithmetic for
// fixed-width binary fields.
package sizing

import (
	"io"
	"math"
)

// MaxUnsigned returns the largest value representable in width bytes.
func MaxUnsigned(width int) uint64 {
	return 1<<(8*uint(width)) - 1
}

// FitsUnsigned reports whether v fits an unsigned field of width bytes.
func FitsUnsigned(v int64, width int) bool {
	return v >= 0 && uint64(v) <= MaxUnsigned(width)
}

// FitsSigned reports whether v fits a two's complement field of width bytes.
func FitsSigned(v int64, width int) bool {
	limit := int64(1) << (8*uint(width) - 1)
	return v >= -limit && v < limit
}

// MulInt multiplies two non-negative ints, returning (result, false) on overflow.
func MulInt(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > math.MaxInt/a {
		return 0, false
	}
	return a * b, true
}

// ReadAllWithLimit reads up to maxSize bytes from r.
// Returns overflowErr if more than maxSize bytes are available.
func ReadAllWithLimit(r io.Reader, maxSize uint64, overflowErr error) ([]byte, error) {
	if maxSize > uint64(math.MaxInt-1) {
		return nil, overflowErr
	}
	limit := int64(maxSize) + 1 //nolint:gosec // checked above
	lr := &io.LimitedReader{R: r, N: limit}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > maxSize { //nolint:gosec // len is always non-negative
		return nil, overflowErr
	}
	return data, nil
}
