package scene

import (
	"bytes"
	"errors"
	"io"

	"github.com/meigma/scenekit/internal/cursor"
	"github.com/meigma/scenekit/internal/sizing"
)

// Decode parses a scene file held in memory.
//
// In ModeBestEffort an unknown type code yields the partially built document
// together with the *FormatError describing where decoding stopped.
func Decode(data []byte, opts ...Option) (*Document, error) {
	cfg := newConfig(opts)

	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	end := h.bodyEnd()
	if end > int64(len(data)) {
		return nil, formatErr(KindTruncatedStream, len(data),
			"header declares %d bytes, stream has %d", end, len(data))
	}
	tableEnd := HeaderSize + int(h.StringTableSize)
	table, err := ReadStringTable(data[HeaderSize:tableEnd])
	if err != nil {
		return nil, err
	}

	d := &decoder{
		cfg:   &cfg,
		cur:   cursor.New(data[:end], h.Endianness.ByteOrder()),
		table: table,
		end:   int(end),
	}
	if err := d.cur.Seek(tableEnd); err != nil {
		return nil, d.short(err)
	}

	doc := &Document{
		Endianness: h.Endianness,
		Strings:    table.Strings(),
	}
	if int(end) < len(data) {
		doc.Trailing = bytes.Clone(data[end:])
	}

	root, err := d.readRoot()
	if err != nil {
		return nil, err
	}
	doc.Root = root

	err = d.walk(root, 1)
	if err == nil && d.cur.Offset() < d.end {
		level, _ := d.peekLevel()
		err = formatErr(KindLevelMismatch, d.cur.Offset(), "record at level %d outside the root", level)
	}
	if err != nil {
		var fe *FormatError
		if cfg.mode == ModeBestEffort && errors.As(err, &fe) && fe.Kind == KindUnknownTypeCode {
			cfg.log().Warn("returning partial scene tree", "error", err, "elements", d.elements)
			return doc, err
		}
		return nil, err
	}

	cfg.log().Debug("decoded scene",
		"endianness", h.Endianness.String(),
		"strings", table.Len(),
		"tree_size", h.TreeSize,
		"elements", d.elements,
		"trailing", len(doc.Trailing))
	return doc, nil
}

// DecodeReader reads r to EOF and decodes the result.
func DecodeReader(r io.Reader, opts ...Option) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data, opts...)
}

// decoder holds the state of a single Decode call.
type decoder struct {
	cfg      *config
	cur      *cursor.Cursor
	table    *StringTable
	end      int
	elements int
}

func (d *decoder) readRoot() (*Element, error) {
	start := d.cur.Offset()
	raw, err := d.cur.Next(TagSize)
	if err != nil {
		return nil, d.short(err)
	}
	tag := DecodeNodeTag(raw, d.cur.Order())
	if tag.Level != 0 {
		return nil, formatErr(KindLevelMismatch, start, "root record has level %d", tag.Level)
	}
	root := &Element{Tag: RootTag, Code: tag.Code}
	if tag.NameIndex != 0 {
		name, err := d.lookup(int(tag.NameIndex), start+2)
		if err != nil {
			return nil, err
		}
		root.Tag = name
	}
	return root, nil
}

// walk reads consecutive records at level into parent. It returns when the
// end of the tree is reached or the next record belongs to a shallower level.
func (d *decoder) walk(parent *Element, level int) error {
	for d.cur.Offset() < d.end {
		start := d.cur.Offset()
		next, err := d.peekLevel()
		if err != nil {
			return err
		}
		if next < level {
			return nil
		}
		if next > level {
			return formatErr(KindLevelMismatch, start, "record at level %d follows level %d", next, level-1)
		}

		raw, err := d.cur.Next(TagSize)
		if err != nil {
			return d.short(err)
		}
		tag := DecodeNodeTag(raw, d.cur.Order())
		name, err := d.lookup(int(tag.NameIndex), start+2)
		if err != nil {
			return err
		}
		layout, ok := LayoutByCode(tag.Code)
		if !ok {
			return &FormatError{Kind: KindUnknownTypeCode, Offset: int64(start), Code: tag.Code, Ref: name}
		}

		elem := &Element{Tag: name, Code: tag.Code}
		if layout.Shape != ShapeEmpty {
			elem.SetAttr(TypeAttr, layout.Name)
		}
		if err := d.readValue(parent, elem, layout); err != nil {
			return err
		}
		parent.Children = append(parent.Children, elem)
		d.elements++

		if d.cur.Offset() >= d.end {
			return nil
		}
		if next, err = d.peekLevel(); err != nil {
			return err
		}
		if next > level {
			if err := d.walk(elem, level+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *decoder) peekLevel() (int, error) {
	w, err := d.cur.PeekUint16()
	if err != nil {
		return 0, d.short(err)
	}
	level, _ := splitWord(w)
	return level, nil
}

//nolint:gocyclo // one case per shape
func (d *decoder) readValue(parent, elem *Element, layout Layout) error {
	switch layout.Shape {
	case ShapeEmpty:
		return nil
	case ShapeText:
		s, err := d.str()
		if err != nil {
			return err
		}
		elem.Value = Text(s)
	case ShapeTextList:
		n, err := d.count(layout.CountSize, 2)
		if err != nil {
			return err
		}
		list := make(TextList, n)
		for i := range list {
			if list[i], err = d.str(); err != nil {
				return err
			}
		}
		elem.Value = list
	case ShapeTextPair:
		label, err := d.str()
		if err != nil {
			return err
		}
		content, err := d.str()
		if err != nil {
			return err
		}
		elem.Value = TextPair{Label: label, Content: content}
	case ShapeLabeledByte:
		label, err := d.str()
		if err != nil {
			return err
		}
		v, err := d.cur.Uint8()
		if err != nil {
			return d.short(err)
		}
		elem.Value = LabeledByte{Label: label, Value: v}
	case ShapeFloat:
		f, err := d.cur.Float32()
		if err != nil {
			return d.short(err)
		}
		elem.Value = Float(f)
	case ShapeFloatList:
		values, err := d.floats(layout.CountSize)
		if err != nil {
			return err
		}
		elem.Value = FloatList(values)
	case ShapeLabeledFloats:
		label, err := d.str()
		if err != nil {
			return err
		}
		values, err := d.floats(layout.CountSize)
		if err != nil {
			return err
		}
		elem.Value = LabeledFloats{Label: label, Values: values}
	case ShapeInt:
		v, err := d.int(layout)
		if err != nil {
			return err
		}
		elem.Value = Int(v)
	case ShapeIntList:
		n, err := d.count(layout.CountSize, layout.ElemSize)
		if err != nil {
			return err
		}
		list := make(IntList, n)
		for i := range list {
			if list[i], err = d.int(layout); err != nil {
				return err
			}
		}
		elem.Value = list
	case ShapeByteList:
		n, err := d.count(layout.CountSize, 1)
		if err != nil {
			return err
		}
		if layout.Divertible && d.cfg.hook != nil {
			diverted, err := d.divert(parent, elem, n)
			if err != nil || diverted {
				return err
			}
		}
		b, err := d.cur.Next(n)
		if err != nil {
			return d.short(err)
		}
		elem.Value = ByteList(bytes.Clone(b))
	default:
		return &FormatError{Kind: KindUnknownTypeCode, Offset: int64(d.cur.Offset()), Code: layout.Code}
	}
	return nil
}

// divert offers the next n bytes to the hook. On success the cursor is moved
// past the payload no matter how much of it the hook consumed.
func (d *decoder) divert(parent, elem *Element, n int) (bool, error) {
	start := d.cur.Offset()
	section, err := d.cur.Section(n)
	if err != nil {
		return false, d.short(err)
	}
	ref, ok, err := d.cfg.hook.Divert(parent, elem, section, int64(n))
	if err != nil {
		return false, &FormatError{Kind: KindBlobHookFailure, Offset: int64(start), Ref: elem.Tag, Err: err}
	}
	if !ok {
		return false, nil
	}
	elem.External = &External{Ref: ref, Size: int64(n)}
	if err := d.cur.Skip(n); err != nil {
		return false, d.short(err)
	}
	d.cfg.log().Debug("diverted payload", "tag", elem.Tag, "parent", parent.Tag, "ref", ref, "size", n)
	return true, nil
}

// count reads a list count and checks that count*elemSize bytes remain.
func (d *decoder) count(width, elemSize int) (int, error) {
	start := d.cur.Offset()
	v, err := d.cur.Uint(width)
	if err != nil {
		return 0, d.short(err)
	}
	need, ok := sizing.MulInt(int(v), elemSize)
	if !ok || need > d.cur.Remaining() {
		return 0, formatErr(KindTruncatedStream, start,
			"list of %d items needs %d bytes, %d remain", v, need, d.cur.Remaining())
	}
	return int(v), nil
}

func (d *decoder) floats(countSize int) ([]float32, error) {
	n, err := d.count(countSize, 4)
	if err != nil {
		return nil, err
	}
	values := make([]float32, n)
	for i := range values {
		if values[i], err = d.cur.Float32(); err != nil {
			return nil, d.short(err)
		}
	}
	return values, nil
}

func (d *decoder) int(layout Layout) (int64, error) {
	if layout.Signed {
		v, err := d.cur.Int(layout.ElemSize)
		if err != nil {
			return 0, d.short(err)
		}
		return int64(v), nil
	}
	v, err := d.cur.Uint(layout.ElemSize)
	if err != nil {
		return 0, d.short(err)
	}
	return int64(v), nil
}

func (d *decoder) str() (string, error) {
	start := d.cur.Offset()
	i, err := d.cur.Uint16()
	if err != nil {
		return "", d.short(err)
	}
	return d.lookup(int(i), start)
}

func (d *decoder) lookup(i, offset int) (string, error) {
	s, ok := d.table.String(i)
	if !ok {
		return "", formatErr(KindUnknownStringReference, offset,
			"index %d outside string table of %d entries", i, d.table.Len())
	}
	return s, nil
}

func (d *decoder) short(err error) error {
	return &FormatError{Kind: KindTruncatedStream, Offset: int64(d.cur.Offset()), Err: err}
}
