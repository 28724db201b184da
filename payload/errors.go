package payload

import "errors"

var (
	// ErrNotFound is returned when a reference has no stored payload.
	ErrNotFound = errors.New("payload: not found")

	// ErrDigestMismatch is returned when stored bytes do not hash to their digest.
	ErrDigestMismatch = errors.New("payload: digest mismatch")

	// ErrSizeMismatch is returned when a payload is shorter or longer than declared.
	ErrSizeMismatch = errors.New("payload: size mismatch")

	// ErrInvalidIndex is returned when an archive index cannot be parsed or
	// describes ranges outside the data.
	ErrInvalidIndex = errors.New("payload: invalid archive index")

	// ErrClosed is returned when diverting into a finished archive writer.
	ErrClosed = errors.New("payload: archive writer finished")

	// ErrUnknownCompression is returned for an unsupported compression name or value.
	ErrUnknownCompression = errors.New("payload: unknown compression")
)
