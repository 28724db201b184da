package scene

import "io"

// Hook diverts large binary fields to and from an external store.
//
// Only divertible layouts (see Layout.Divertible) consult the hook.
type Hook interface {
	// Divert is called during decode with a reader over the field's raw
	// bytes (size bytes, excluding the count). Returning ok=true records
	// External{Ref: ref, Size: size} on elem and skips the inline decode;
	// ok=false decodes the field inline.
	Divert(parent, elem *Element, payload io.Reader, size int64) (ref string, ok bool, err error)

	// Restore is called during encode. A non-nil reader of size bytes
	// replaces the element's inline value; the encoder always closes it.
	// A nil reader falls back to the inline value.
	Restore(parent, elem *Element) (rc io.ReadCloser, size int64, err error)
}

// HookFuncs adapts a pair of functions to a Hook. Either may be nil.
type HookFuncs struct {
	DivertFunc  func(parent, elem *Element, payload io.Reader, size int64) (string, bool, error)
	RestoreFunc func(parent, elem *Element) (io.ReadCloser, int64, error)
}

// Divert implements Hook.
func (h HookFuncs) Divert(parent, elem *Element, payload io.Reader, size int64) (string, bool, error) {
	if h.DivertFunc == nil {
		return "", false, nil
	}
	return h.DivertFunc(parent, elem, payload, size)
}

// Restore implements Hook.
func (h HookFuncs) Restore(parent, elem *Element) (io.ReadCloser, int64, error) {
	if h.RestoreFunc == nil {
		return nil, 0, nil
	}
	return h.RestoreFunc(parent, elem)
}
