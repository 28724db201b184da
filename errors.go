package scene

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// Kind classifies a FormatError.
type Kind uint8

const (
	// KindUnknownMagic means the header signature is not a known magic.
	KindUnknownMagic Kind = iota + 1
	// KindUnknownTypeCode means a record carries an undefined type code.
	KindUnknownTypeCode
	// KindUnknownStringReference means a string index or value is missing from the string table.
	KindUnknownStringReference
	// KindTruncatedStream means fewer bytes are available than a field declares.
	KindTruncatedStream
	// KindBlobHookFailure means an external payload could not be stored or restored.
	KindBlobHookFailure
	// KindLevelMismatch means record levels do not describe a valid tree.
	KindLevelMismatch
	// KindInvalidValue means an element value does not fit its layout.
	KindInvalidValue
)

// Sentinel errors, one per Kind. A *FormatError matches its kind's sentinel
// with errors.Is.
var (
	ErrUnknownMagic           = errors.New("scene: unknown magic")
	ErrUnknownTypeCode        = errors.New("scene: unknown type code")
	ErrUnknownStringReference = errors.New("scene: unknown string reference")
	ErrTruncatedStream        = errors.New("scene: truncated stream")
	ErrBlobHookFailure        = errors.New("scene: blob hook failure")
	ErrLevelMismatch          = errors.New("scene: level mismatch")
	ErrInvalidValue           = errors.New("scene: invalid value")
)

func (k Kind) sentinel() error {
	switch k {
	case KindUnknownMagic:
		return ErrUnknownMagic
	case KindUnknownTypeCode:
		return ErrUnknownTypeCode
	case KindUnknownStringReference:
		return ErrUnknownStringReference
	case KindTruncatedStream:
		return ErrTruncatedStream
	case KindBlobHookFailure:
		return ErrBlobHookFailure
	case KindLevelMismatch:
		return ErrLevelMismatch
	case KindInvalidValue:
		return ErrInvalidValue
	default:
		return nil
	}
}

// FormatError describes a structural failure while decoding or encoding.
//
// Offset is the byte position in the scene stream where the failure was
// detected, or -1 when it does not apply.
type FormatError struct {
	Kind   Kind
	Offset int64
	Code   TypeCode // set for KindUnknownTypeCode and value errors
	Ref    string   // offending string, tag or payload reference
	Magic  []byte   // offending header bytes for KindUnknownMagic
	Detail string
	Err    error // underlying cause, if any
}

func (e *FormatError) Error() string {
	msg := "scene: format error"
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	switch e.Kind {
	case KindUnknownMagic:
		msg += " " + hex.EncodeToString(e.Magic)
	case KindUnknownTypeCode:
		msg += fmt.Sprintf(" %#x", uint16(e.Code))
	}
	if e.Ref != "" {
		msg += fmt.Sprintf(" %q", e.Ref)
	}
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %#x", e.Offset)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind's sentinel and the underlying cause.
func (e *FormatError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func formatErr(kind Kind, offset int, detail string, args ...any) *FormatError {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &FormatError{Kind: kind, Offset: int64(offset), Detail: detail}
}
