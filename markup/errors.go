package markup

import "errors"

var (
	// ErrInvalidName is returned when a tag cannot be written as an XML name
	// that reads back to the same tag.
	ErrInvalidName = errors.New("markup: invalid name")

	// ErrSyntax is returned when XML input does not describe a document.
	ErrSyntax = errors.New("markup: syntax error")

	// ErrUnknownType is returned for a type attribute naming no layout.
	ErrUnknownType = errors.New("markup: unknown type")
)
