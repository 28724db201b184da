package markup

import (
	"bufio"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	scene "github.com/meigma/scenekit"
)

// Attribute names with a fixed meaning. Element attributes of the same name
// are not written.
const (
	attrEndianness = "endianness"
	attrCode       = "code"
	attrTrailing   = "trailing"
	attrLabel      = "label"
	attrFilepath   = "filepath"
	attrSize       = "size"
	attrValue      = "value"
	attrTypeID     = "type_id"
)

var reservedAttrs = map[string]bool{
	scene.TypeAttr: true,
	attrLabel:      true,
	attrFilepath:   true,
	attrSize:       true,
	attrValue:      true,
}

// WriteXML writes doc as indented XML.
func WriteXML(w io.Writer, doc *scene.Document, opts ...Option) error {
	if doc == nil || doc.Root == nil {
		return errors.New("markup: nil document")
	}
	o := newOptions(opts)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(bw)
	enc.Indent("", o.indent)

	if err := writeRoot(enc, doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}

func writeRoot(enc *xml.Encoder, doc *scene.Document) error {
	tag := doc.Root.Tag
	if tag == "" {
		tag = scene.RootTag
	}
	name, err := EscapeName(tag)
	if err != nil {
		return err
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	start.Attr = append(start.Attr, attr(attrEndianness, doc.Endianness.String()))
	if code := doc.Root.Code; code != scene.CodeEmpty {
		start.Attr = append(start.Attr, attr(attrCode, fmt.Sprintf("%#x", uint16(code))))
	}
	if len(doc.Trailing) > 0 {
		start.Attr = append(start.Attr, attr(attrTrailing, hex.EncodeToString(doc.Trailing)))
	}
	for _, k := range slices.Sorted(maps.Keys(doc.Root.Attrs)) {
		if k != attrEndianness && k != attrCode && k != attrTrailing && !reservedAttrs[k] {
			start.Attr = append(start.Attr, attr(k, doc.Root.Attrs[k]))
		}
	}

	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, c := range doc.Root.Children {
		if err := writeElement(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func writeElement(enc *xml.Encoder, e *scene.Element) error {
	name, err := EscapeName(e.Tag)
	if err != nil {
		return err
	}
	layout, ok := e.Layout()
	if !ok {
		return fmt.Errorf("%w %#x on element %q", scene.ErrUnknownTypeCode, uint16(e.Code), e.Tag)
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	if layout.Shape != scene.ShapeEmpty {
		start.Attr = append(start.Attr, attr(scene.TypeAttr, layout.Name))
	}

	var (
		text    string
		hasText bool
		items   []string
	)
	switch v := e.Value.(type) {
	case nil:
	case scene.Text:
		text, hasText = string(v), true
	case scene.TextList:
		items = v
	case scene.TextPair:
		start.Attr = append(start.Attr, attr(attrLabel, v.Label))
		text, hasText = v.Content, true
	case scene.LabeledByte:
		start.Attr = append(start.Attr, attr(attrLabel, v.Label))
		text, hasText = strconv.FormatUint(uint64(v.Value), 10), true
	case scene.Float:
		text, hasText = formatFloat(float32(v)), true
	case scene.FloatList:
		items = formatFloats(v)
	case scene.LabeledFloats:
		start.Attr = append(start.Attr, attr(attrLabel, v.Label))
		items = formatFloats(v.Values)
	case scene.Int:
		text, hasText = strconv.FormatInt(int64(v), 10), true
	case scene.IntList:
		items = make([]string, len(v))
		for i, n := range v {
			items[i] = strconv.FormatInt(n, 10)
		}
	case scene.ByteList:
		items = make([]string, len(v))
		for i, n := range v {
			items[i] = strconv.FormatUint(uint64(n), 10)
		}
	default:
		return fmt.Errorf("%w: element %q has unsupported value %T", scene.ErrInvalidValue, e.Tag, v)
	}

	if e.External != nil {
		if layout.Shape != scene.ShapeByteList {
			return fmt.Errorf("%w: element %q has an external payload but layout %s", scene.ErrInvalidValue, e.Tag, layout.Name)
		}
		start.Attr = append(start.Attr,
			attr(attrFilepath, e.External.Ref),
			attr(attrSize, strconv.FormatInt(e.External.Size, 10)),
		)
		items = nil
	}

	// Character data next to child elements picks up indentation, so the
	// text moves to an attribute.
	if hasText && len(e.Children) > 0 {
		start.Attr = append(start.Attr, attr(attrValue, text))
		hasText = false
	}
	if isList(layout.Shape) {
		for _, c := range e.Children {
			if c.Tag == scene.EntryTag {
				return fmt.Errorf("%w: %q child of list element %q", ErrInvalidName, c.Tag, e.Tag)
			}
		}
	}

	for _, k := range slices.Sorted(maps.Keys(e.Attrs)) {
		if !reservedAttrs[k] {
			start.Attr = append(start.Attr, attr(k, e.Attrs[k]))
		}
	}

	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if hasText {
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	entry := xml.StartElement{Name: xml.Name{Local: scene.EntryTag}}
	for _, item := range items {
		if err := enc.EncodeToken(entry); err != nil {
			return err
		}
		if err := enc.EncodeToken(xml.CharData(item)); err != nil {
			return err
		}
		if err := enc.EncodeToken(entry.End()); err != nil {
			return err
		}
	}
	for _, c := range e.Children {
		if err := writeElement(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func formatFloats(values []float32) []string {
	out := make([]string, len(values))
	for i, f := range values {
		out[i] = formatFloat(f)
	}
	return out
}

func isList(s scene.Shape) bool {
	switch s {
	case scene.ShapeTextList, scene.ShapeFloatList, scene.ShapeLabeledFloats, scene.ShapeIntList, scene.ShapeByteList:
		return true
	}
	return false
}
