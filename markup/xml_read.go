package markup

import (
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	scene "github.com/meigma/scenekit"
)

// frame is an open XML element while reading.
type frame struct {
	elem   *scene.Element
	layout scene.Layout
	line   int

	root        bool
	entry       bool
	hasChildren bool
	text        strings.Builder
	items       []string

	label    *string
	value    *string
	filepath *string
	size     string
}

// ReadXML parses a document written by WriteXML or by the legacy XML tools.
// The returned document has no string table; Encode builds one.
func ReadXML(r io.Reader) (*scene.Document, error) {
	dec := xml.NewDecoder(r)
	var (
		doc   *scene.Document
		stack []*frame
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
		}
		line, _ := dec.InputPos()

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 {
				if doc != nil {
					return nil, fmt.Errorf("%w: line %d: second root element", ErrSyntax, line)
				}
				f, err := readRoot(t)
				if err != nil {
					return nil, err
				}
				doc = &scene.Document{Root: f.elem}
				if doc.Endianness, err = rootEndianness(t); err != nil {
					return nil, err
				}
				if doc.Trailing, err = rootTrailing(t); err != nil {
					return nil, err
				}
				stack = append(stack, f)
				continue
			}

			top := stack[len(stack)-1]
			if top.entry {
				return nil, fmt.Errorf("%w: line %d: element inside %s", ErrSyntax, line, scene.EntryTag)
			}
			if !top.root && isList(top.layout.Shape) && t.Name.Local == scene.EntryTag {
				stack = append(stack, &frame{entry: true, line: line})
				continue
			}
			f, err := newFrame(t, line)
			if err != nil {
				return nil, err
			}
			top.elem.Children = append(top.elem.Children, f.elem)
			top.hasChildren = true
			stack = append(stack, f)

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch {
			case f.entry:
				parent := stack[len(stack)-1]
				parent.items = append(parent.items, f.text.String())
			case !f.root:
				if err := f.finish(); err != nil {
					return nil, err
				}
			}
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: no root element", ErrSyntax)
	}
	return doc, nil
}

func readRoot(t xml.StartElement) (*frame, error) {
	root := &scene.Element{Tag: UnescapeName(t.Name.Local), Code: scene.CodeEmpty}
	for _, a := range t.Attr {
		switch k := attrName(a.Name); k {
		case attrEndianness, attrTrailing:
		case attrCode:
			code, err := strconv.ParseUint(a.Value, 0, 16)
			if err != nil {
				return nil, fmt.Errorf("%w: root code %q: %w", ErrSyntax, a.Value, err)
			}
			root.Code = scene.TypeCode(code)
		default:
			root.SetAttr(k, a.Value)
		}
	}
	return &frame{elem: root, root: true}, nil
}

func rootEndianness(t xml.StartElement) (scene.Endianness, error) {
	for _, a := range t.Attr {
		if attrName(a.Name) == attrEndianness {
			e, err := scene.ParseEndianness(a.Value)
			if err != nil {
				return 0, fmt.Errorf("%w: %w", ErrSyntax, err)
			}
			return e, nil
		}
	}
	return scene.LittleEndian, nil
}

func rootTrailing(t xml.StartElement) ([]byte, error) {
	for _, a := range t.Attr {
		if attrName(a.Name) == attrTrailing {
			b, err := hex.DecodeString(a.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: trailing bytes: %w", ErrSyntax, err)
			}
			return b, nil
		}
	}
	return nil, nil
}

func newFrame(t xml.StartElement, line int) (*frame, error) {
	f := &frame{
		elem: &scene.Element{Tag: UnescapeName(t.Name.Local), Code: scene.CodeEmpty},
		line: line,
	}
	f.layout, _ = scene.LayoutByCode(scene.CodeEmpty)

	var typeID *string
	for _, a := range t.Attr {
		switch k := attrName(a.Name); k {
		case scene.TypeAttr:
			name := a.Value
			if alias, ok := typeAliases[name]; ok {
				name = alias
			}
			l, ok := scene.LayoutByName(name)
			if !ok {
				return nil, fmt.Errorf("%w %q on element %q at line %d", ErrUnknownType, a.Value, f.elem.Tag, line)
			}
			f.layout = l
		case attrTypeID:
			typeID = &a.Value
		case attrLabel:
			f.label = &a.Value
		case attrValue:
			f.value = &a.Value
		case attrFilepath:
			f.filepath = &a.Value
		case attrSize:
			f.size = a.Value
		default:
			f.elem.SetAttr(k, a.Value)
		}
	}

	if typeID != nil {
		if l, ok := resolveTypeID(*typeID, f.layout); ok {
			f.layout = l
		} else {
			f.elem.SetAttr(attrTypeID, *typeID)
		}
	}
	f.elem.Code = f.layout.Code
	if f.layout.Shape != scene.ShapeEmpty {
		f.elem.SetAttr(scene.TypeAttr, f.layout.Name)
	}
	return f, nil
}

// typeAliases maps legacy type names to layout names.
var typeAliases = map[string]string{
	"uint16_uint16_list_alt": "uint16_uint16_list",
}

// resolveTypeID returns the layout named by a numeric type_id attribute.
// Legacy XML shares one type name between several codes and records the
// code in type_id. The id is honoured only when its layout reads the same
// content as the named one.
func resolveTypeID(id string, named scene.Layout) (scene.Layout, bool) {
	code, err := strconv.ParseUint(strings.TrimSpace(id), 0, 16)
	if err != nil {
		return scene.Layout{}, false
	}
	l, ok := scene.LayoutByCode(scene.TypeCode(code))
	if !ok {
		return scene.Layout{}, false
	}
	if l.Shape == named.Shape || (isEntryList(l.Shape) && isEntryList(named.Shape)) {
		return l, true
	}
	return scene.Layout{}, false
}

// isEntryList reports whether s is a list of plain entries, without a label.
func isEntryList(s scene.Shape) bool {
	switch s {
	case scene.ShapeTextList, scene.ShapeIntList, scene.ShapeByteList:
		return true
	}
	return false
}

func attrName(n xml.Name) string {
	if n.Space != "" {
		return n.Space + ":" + n.Local
	}
	return n.Local
}

// finish converts the collected text and entries into the element's value.
func (f *frame) finish() error {
	e := f.elem
	if f.filepath != nil {
		if f.layout.Shape != scene.ShapeByteList {
			return f.invalid("filepath on layout %s", f.layout.Name)
		}
		var size int64
		if f.size != "" {
			n, err := strconv.ParseInt(f.size, 10, 64)
			if err != nil || n < 0 {
				return f.invalid("size %q", f.size)
			}
			size = n
		}
		e.External = &scene.External{Ref: *f.filepath, Size: size}
		return nil
	}

	text := f.text.String()
	switch {
	case f.value != nil:
		text = *f.value
	case f.hasChildren:
		text = strings.TrimSpace(text)
	}
	label := ""
	if f.label != nil {
		label = *f.label
	}

	switch f.layout.Shape {
	case scene.ShapeEmpty:
	case scene.ShapeText:
		e.Value = scene.Text(text)
	case scene.ShapeTextList:
		e.Value = append(make(scene.TextList, 0, len(f.items)), f.items...)
	case scene.ShapeTextPair:
		e.Value = scene.TextPair{Label: label, Content: text}
	case scene.ShapeLabeledByte:
		v, err := parseByte(text)
		if err != nil {
			return f.invalid("%q: %v", text, err)
		}
		e.Value = scene.LabeledByte{Label: label, Value: v}
	case scene.ShapeFloat:
		v, err := parseFloat(text)
		if err != nil {
			return f.invalid("%q: %v", text, err)
		}
		e.Value = scene.Float(v)
	case scene.ShapeFloatList:
		values, err := f.floats()
		if err != nil {
			return err
		}
		e.Value = scene.FloatList(values)
	case scene.ShapeLabeledFloats:
		if f.label == nil {
			label = strings.TrimSpace(text)
		}
		values, err := f.floats()
		if err != nil {
			return err
		}
		e.Value = scene.LabeledFloats{Label: label, Values: values}
	case scene.ShapeInt:
		v, err := parseInt(text)
		if err != nil {
			return f.invalid("%q: %v", text, err)
		}
		e.Value = scene.Int(v)
	case scene.ShapeIntList:
		list := make(scene.IntList, len(f.items))
		for i, item := range f.items {
			v, err := parseInt(item)
			if err != nil {
				return f.invalid("entry %d %q: %v", i, item, err)
			}
			list[i] = v
		}
		e.Value = list
	case scene.ShapeByteList:
		list := make(scene.ByteList, len(f.items))
		for i, item := range f.items {
			v, err := parseByte(item)
			if err != nil {
				return f.invalid("entry %d %q: %v", i, item, err)
			}
			list[i] = v
		}
		e.Value = list
	}
	return nil
}

func (f *frame) floats() ([]float32, error) {
	values := make([]float32, len(f.items))
	for i, item := range f.items {
		v, err := parseFloat(item)
		if err != nil {
			return nil, f.invalid("entry %d %q: %v", i, item, err)
		}
		values[i] = v
	}
	return values, nil
}

func (f *frame) invalid(format string, args ...any) error {
	return fmt.Errorf("%w: element %q at line %d: %s", scene.ErrInvalidValue, f.elem.Tag, f.line, fmt.Sprintf(format, args...))
}
