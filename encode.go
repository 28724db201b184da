package scene

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/meigma/scenekit/internal/sink"
	"github.com/meigma/scenekit/internal/sizing"
)

// Encode serializes doc into a new byte slice.
func Encode(doc *Document, opts ...Option) ([]byte, error) {
	cfg := newConfig(opts)
	buf := sink.NewBuffer(64 * 1024)
	if err := encode(buf, doc, &cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo serializes doc to ws starting at its current position.
//
// The header is written twice: as a zero placeholder before the body and
// again, with the final sizes, after seeking back once the body is complete.
func EncodeTo(ws io.WriteSeeker, doc *Document, opts ...Option) error {
	cfg := newConfig(opts)
	w := sink.NewWriter(ws)
	if err := encode(w, doc, &cfg); err != nil {
		return err
	}
	return w.Flush()
}

func encode(ws io.WriteSeeker, doc *Document, cfg *config) error {
	if doc == nil {
		return errors.New("scene: nil document")
	}
	endianness := doc.Endianness
	if cfg.endianness != nil {
		endianness = *cfg.endianness
	}

	base, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := ws.Write(make([]byte, HeaderSize)); err != nil {
		return err
	}

	var table *StringTable
	if doc.Strings != nil && !cfg.rebuildStrings {
		table = NewStringTable(doc.Strings)
	} else {
		table = BuildStringTable(doc)
	}
	tableSize, err := table.WriteTo(ws)
	if err != nil {
		return err
	}

	tree := &sink.CountingWriter{W: ws}
	e := &encoder{
		cfg:     cfg,
		order:   endianness.ByteOrder(),
		table:   table,
		w:       tree,
		base:    HeaderSize + tableSize,
		scratch: make([]byte, 0, 256),
	}
	if err := e.writeRoot(doc.Root); err != nil {
		return err
	}
	if doc.Root != nil {
		if err := e.writeChildren(doc.Root, 1); err != nil {
			return err
		}
	}
	if _, err := ws.Write(doc.Trailing); err != nil {
		return err
	}

	if tableSize > math.MaxUint32 || tree.N > math.MaxUint32 {
		return formatErr(KindInvalidValue, -1, "body exceeds the 32-bit size fields")
	}
	header := Header{
		Endianness:      endianness,
		StringTableSize: uint32(tableSize), //nolint:gosec // checked above
		TreeSize:        uint32(tree.N),    //nolint:gosec // checked above
	}

	end, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := ws.Seek(base, io.SeekStart); err != nil {
		return err
	}
	if _, err := ws.Write(header.Bytes()); err != nil {
		return err
	}
	if _, err := ws.Seek(end, io.SeekStart); err != nil {
		return err
	}

	cfg.log().Debug("encoded scene",
		"endianness", endianness.String(),
		"strings", table.Len(),
		"string_table_size", header.StringTableSize,
		"tree_size", header.TreeSize,
		"elements", e.elements)
	return nil
}

// encoder holds the state of a single Encode call.
type encoder struct {
	cfg      *config
	order    Order
	table    *StringTable
	w        *sink.CountingWriter
	base     int64
	scratch  []byte
	elements int
}

// offset returns the stream position of the next tree byte.
func (e *encoder) offset() int {
	return int(e.base) + int(e.w.N) //nolint:gosec // tree size is bounded by memory
}

func (e *encoder) writeRoot(root *Element) error {
	tag := NodeTag{Code: CodeEmpty}
	if root != nil {
		// The root code is written verbatim, including zero, so decoded
		// documents keep their original root record.
		tag.Code = root.Code
		if root.Tag != "" && root.Tag != RootTag {
			idx, err := e.index(root.Tag)
			if err != nil {
				return err
			}
			tag.NameIndex = idx
		}
	}
	if !tag.valid() {
		return &FormatError{Kind: KindUnknownTypeCode, Offset: int64(e.offset()), Code: tag.Code, Ref: RootTag}
	}
	_, err := e.w.Write(tag.AppendTo(e.scratch[:0], e.order))
	return err
}

func (e *encoder) writeChildren(parent *Element, level int) error {
	for _, c := range parent.Children {
		if err := e.writeElement(parent, c, level); err != nil {
			return err
		}
		if err := e.writeChildren(c, level+1); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeElement(parent, elem *Element, level int) error {
	off := e.offset()
	if level > MaxLevel {
		return &FormatError{Kind: KindInvalidValue, Offset: int64(off), Ref: elem.Tag,
			Detail: fmt.Sprintf("nesting level %d exceeds %d", level, MaxLevel)}
	}
	layout, ok := elem.Layout()
	if !ok {
		return &FormatError{Kind: KindUnknownTypeCode, Offset: int64(off), Code: elem.Code, Ref: elem.Attr(TypeAttr)}
	}
	idx, err := e.index(elem.Tag)
	if err != nil {
		return err
	}
	b := NodeTag{Level: level, Code: layout.Code, NameIndex: idx}.AppendTo(e.scratch[:0], e.order)

	if layout.Divertible {
		restored, err := e.restore(parent, elem, layout, b)
		if err != nil || restored {
			e.elements++
			return err
		}
	}

	b, err = e.appendValue(b, elem, layout)
	if err != nil {
		return err
	}
	e.scratch = b[:0]
	if _, err := e.w.Write(b); err != nil {
		return err
	}
	e.elements++
	return nil
}

// restore asks the hook for an external payload and streams it after the
// tag record b. It reports whether the payload replaced the inline value.
func (e *encoder) restore(parent, elem *Element, layout Layout, b []byte) (bool, error) {
	ref := ""
	if elem.External != nil {
		ref = elem.External.Ref
	}
	hookErr := func(detail string, err error) error {
		return &FormatError{Kind: KindBlobHookFailure, Offset: int64(e.offset()), Ref: ref, Detail: detail, Err: err}
	}
	if e.cfg.hook == nil {
		if elem.External != nil {
			return false, hookErr("no hook to restore external payload", nil)
		}
		return false, nil
	}

	rc, size, err := e.cfg.hook.Restore(parent, elem)
	if err != nil {
		return false, hookErr("", err)
	}
	if rc == nil {
		if elem.External != nil {
			return false, hookErr("hook returned no payload", nil)
		}
		return false, nil
	}
	defer rc.Close()

	if size < 0 || size%int64(layout.ElemSize) != 0 {
		return false, hookErr(fmt.Sprintf("payload size %d is not a multiple of %d", size, layout.ElemSize), nil)
	}
	count := size / int64(layout.ElemSize)
	if !sizing.FitsUnsigned(count, layout.CountSize) {
		return false, &FormatError{Kind: KindInvalidValue, Offset: int64(e.offset()), Code: layout.Code, Ref: ref,
			Detail: fmt.Sprintf("%d items exceed the %d-byte count", count, layout.CountSize)}
	}
	b = sink.AppendUnsigned(b, uint32(count), layout.CountSize, e.order) //nolint:gosec // checked above
	if _, err := e.w.Write(b); err != nil {
		return false, err
	}
	n, err := io.CopyN(e.w, rc, size)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, hookErr(fmt.Sprintf("payload ended after %d of %d bytes", n, size), nil)
		}
		return false, hookErr("", err)
	}
	e.cfg.log().Debug("restored payload", "tag", elem.Tag, "parent", parent.Tag, "ref", ref, "size", size)
	return true, nil
}

//nolint:gocyclo // one case per shape
func (e *encoder) appendValue(b []byte, elem *Element, layout Layout) ([]byte, error) {
	var err error
	switch layout.Shape {
	case ShapeEmpty:
		if elem.Value != nil {
			return nil, e.mismatch(elem, layout)
		}
	case ShapeText:
		var s Text
		if elem.Value != nil {
			v, ok := elem.Value.(Text)
			if !ok {
				return nil, e.mismatch(elem, layout)
			}
			s = v
		}
		b, err = e.appendStr(b, string(s))
	case ShapeTextList:
		var list TextList
		if elem.Value != nil {
			v, ok := elem.Value.(TextList)
			if !ok {
				return nil, e.mismatch(elem, layout)
			}
			list = v
		}
		if b, err = e.appendCount(b, elem, layout, len(list)); err != nil {
			return nil, err
		}
		for _, s := range list {
			if b, err = e.appendStr(b, s); err != nil {
				return nil, err
			}
		}
	case ShapeTextPair:
		v, ok := elem.Value.(TextPair)
		if !ok {
			return nil, e.mismatch(elem, layout)
		}
		if b, err = e.appendStr(b, v.Label); err != nil {
			return nil, err
		}
		b, err = e.appendStr(b, v.Content)
	case ShapeLabeledByte:
		v, ok := elem.Value.(LabeledByte)
		if !ok {
			return nil, e.mismatch(elem, layout)
		}
		if b, err = e.appendStr(b, v.Label); err != nil {
			return nil, err
		}
		b = append(b, v.Value)
	case ShapeFloat:
		v, ok := elem.Value.(Float)
		if !ok {
			return nil, e.mismatch(elem, layout)
		}
		b = e.order.AppendUint32(b, math.Float32bits(float32(v)))
	case ShapeFloatList:
		var list FloatList
		if elem.Value != nil {
			v, ok := elem.Value.(FloatList)
			if !ok {
				return nil, e.mismatch(elem, layout)
			}
			list = v
		}
		b, err = e.appendFloats(b, elem, layout, list)
	case ShapeLabeledFloats:
		v, ok := elem.Value.(LabeledFloats)
		if !ok {
			return nil, e.mismatch(elem, layout)
		}
		if b, err = e.appendStr(b, v.Label); err != nil {
			return nil, err
		}
		b, err = e.appendFloats(b, elem, layout, v.Values)
	case ShapeInt:
		v, ok := elem.Value.(Int)
		if !ok {
			return nil, e.mismatch(elem, layout)
		}
		b, err = e.appendInt(b, elem, layout, int64(v))
	case ShapeIntList:
		var list IntList
		if elem.Value != nil {
			v, ok := elem.Value.(IntList)
			if !ok {
				return nil, e.mismatch(elem, layout)
			}
			list = v
		}
		if b, err = e.appendCount(b, elem, layout, len(list)); err != nil {
			return nil, err
		}
		for _, v := range list {
			if b, err = e.appendInt(b, elem, layout, v); err != nil {
				return nil, err
			}
		}
	case ShapeByteList:
		if elem.External != nil {
			return nil, &FormatError{Kind: KindBlobHookFailure, Offset: int64(e.offset()), Ref: elem.External.Ref,
				Detail: "external payload on a layout that cannot be diverted"}
		}
		var list ByteList
		if elem.Value != nil {
			v, ok := elem.Value.(ByteList)
			if !ok {
				return nil, e.mismatch(elem, layout)
			}
			list = v
		}
		if b, err = e.appendCount(b, elem, layout, len(list)); err != nil {
			return nil, err
		}
		b = append(b, list...)
	default:
		return nil, &FormatError{Kind: KindUnknownTypeCode, Offset: int64(e.offset()), Code: layout.Code, Ref: elem.Tag}
	}
	return b, err
}

func (e *encoder) appendStr(b []byte, s string) ([]byte, error) {
	idx, err := e.index(s)
	if err != nil {
		return nil, err
	}
	return e.order.AppendUint16(b, idx), nil
}

func (e *encoder) appendCount(b []byte, elem *Element, layout Layout, n int) ([]byte, error) {
	if !sizing.FitsUnsigned(int64(n), layout.CountSize) {
		return nil, &FormatError{Kind: KindInvalidValue, Offset: int64(e.offset()), Code: layout.Code, Ref: elem.Tag,
			Detail: fmt.Sprintf("%d items exceed the %d-byte count", n, layout.CountSize)}
	}
	return sink.AppendUnsigned(b, uint32(n), layout.CountSize, e.order), nil //nolint:gosec // checked above
}

func (e *encoder) appendFloats(b []byte, elem *Element, layout Layout, values []float32) ([]byte, error) {
	b, err := e.appendCount(b, elem, layout, len(values))
	if err != nil {
		return nil, err
	}
	for _, f := range values {
		b = e.order.AppendUint32(b, math.Float32bits(f))
	}
	return b, nil
}

func (e *encoder) appendInt(b []byte, elem *Element, layout Layout, v int64) ([]byte, error) {
	fits := sizing.FitsUnsigned(v, layout.ElemSize)
	if layout.Signed {
		fits = sizing.FitsSigned(v, layout.ElemSize)
	}
	if !fits {
		return nil, &FormatError{Kind: KindInvalidValue, Offset: int64(e.offset()), Code: layout.Code, Ref: elem.Tag,
			Detail: fmt.Sprintf("%d does not fit layout %s", v, layout.Name)}
	}
	return sink.AppendUnsigned(b, uint32(v), layout.ElemSize, e.order), nil //nolint:gosec // range checked above
}

func (e *encoder) index(s string) (uint16, error) {
	i, ok := e.table.Index(s)
	if !ok {
		return 0, &FormatError{Kind: KindUnknownStringReference, Offset: int64(e.offset()), Ref: s,
			Detail: "string missing from table"}
	}
	return uint16(i), nil //nolint:gosec // Index bounds i to 16 bits
}

func (e *encoder) mismatch(elem *Element, layout Layout) error {
	return &FormatError{Kind: KindInvalidValue, Offset: int64(e.offset()), Code: layout.Code, Ref: elem.Tag,
		Detail: fmt.Sprintf("value %T does not match layout %s (%s)", elem.Value, layout.Name, layout.Shape)}
}
