package scene

// Value is the typed payload of an Element. The set of implementations is
// closed; a nil Value means the element carries no payload.
type Value interface {
	shape() Shape
}

// Text is a single string table reference.
type Text string

// TextList is a counted list of string table references.
type TextList []string

// TextPair is a label and a content string.
type TextPair struct {
	Label   string
	Content string
}

// LabeledByte is a label string followed by one unsigned byte.
type LabeledByte struct {
	Label string
	Value uint8
}

// Float is a single IEEE-754 float.
type Float float32

// FloatList is a counted list of floats.
type FloatList []float32

// LabeledFloats is a label string followed by a counted list of floats.
type LabeledFloats struct {
	Label  string
	Values []float32
}

// Int is a scalar integer; its width and signedness come from the layout.
type Int int64

// IntList is a counted list of integers of layout-defined width.
type IntList []int64

// ByteList is a counted list of unsigned bytes.
type ByteList []byte

func (Text) shape() Shape          { return ShapeText }
func (TextList) shape() Shape      { return ShapeTextList }
func (TextPair) shape() Shape      { return ShapeTextPair }
func (LabeledByte) shape() Shape   { return ShapeLabeledByte }
func (Float) shape() Shape         { return ShapeFloat }
func (FloatList) shape() Shape     { return ShapeFloatList }
func (LabeledFloats) shape() Shape { return ShapeLabeledFloats }
func (Int) shape() Shape           { return ShapeInt }
func (IntList) shape() Shape       { return ShapeIntList }
func (ByteList) shape() Shape      { return ShapeByteList }

// valueStrings returns the string table references carried by v in wire order.
func valueStrings(v Value) []string {
	switch v := v.(type) {
	case Text:
		return []string{string(v)}
	case TextList:
		return v
	case TextPair:
		return []string{v.Label, v.Content}
	case LabeledByte:
		return []string{v.Label}
	case LabeledFloats:
		return []string{v.Label}
	}
	return nil
}
