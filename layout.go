package scene

import (
	"fmt"
	"slices"
)

// TypeCode selects the field layout of a record.
type TypeCode uint16

// Shape is the Value kind a layout decodes to.
type Shape uint8

// Shapes, one per Value implementation plus ShapeEmpty.
const (
	ShapeEmpty Shape = iota
	ShapeText
	ShapeTextList
	ShapeTextPair
	ShapeLabeledByte
	ShapeFloat
	ShapeFloatList
	ShapeLabeledFloats
	ShapeInt
	ShapeIntList
	ShapeByteList
)

var shapeNames = [...]string{
	ShapeEmpty:         "empty",
	ShapeText:          "text",
	ShapeTextList:      "text list",
	ShapeTextPair:      "text pair",
	ShapeLabeledByte:   "labeled byte",
	ShapeFloat:         "float",
	ShapeFloatList:     "float list",
	ShapeLabeledFloats: "labeled floats",
	ShapeInt:           "int",
	ShapeIntList:       "int list",
	ShapeByteList:      "byte list",
}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

// Layout describes how the bytes after a tag record decode into a Value.
//
// CountSize is the width of the leading element count for list shapes and
// zero for scalars. ElemSize is the width of each numeric element (or of the
// scalar). String references are always 2-byte indexes.
type Layout struct {
	Code       TypeCode
	Name       string
	Shape      Shape
	CountSize  int
	ElemSize   int
	Signed     bool
	Divertible bool
}

// Type codes of the known layouts.
const (
	CodeEmpty             TypeCode = 0x01
	CodeReferenceString   TypeCode = 0x05
	CodeStringList        TypeCode = 0x0A
	CodeString            TypeCode = 0x0B
	CodeStringPair        TypeCode = 0x0F
	CodeFloatList         TypeCode = 0x12
	CodeFloat             TypeCode = 0x13
	CodeStringFloatList   TypeCode = 0x16
	CodeInt8List          TypeCode = 0x1A
	CodeInt8              TypeCode = 0x1B
	CodeStringUint8       TypeCode = 0x1F
	CodeUint8List         TypeCode = 0x23
	CodeStringListWide    TypeCode = 0x4A
	CodeFloatListWide     TypeCode = 0x52
	CodeUint16Uint8List   TypeCode = 0x5A
	CodeUint16Uint8Bin    TypeCode = 0x63
	CodeUint24Uint8Bin    TypeCode = 0xA3
	CodeUint16List        TypeCode = 0x11A
	CodeUint16            TypeCode = 0x11B
	CodeUint16Uint16List  TypeCode = 0x15A
	CodeInt24List         TypeCode = 0x21A
	CodeInt24             TypeCode = 0x21B
	CodeUint32            TypeCode = 0x31B
)

var layouts = []Layout{
	{Code: CodeEmpty, Name: "empty", Shape: ShapeEmpty},
	{Code: CodeReferenceString, Name: "reference_string", Shape: ShapeText},
	{Code: CodeString, Name: "string", Shape: ShapeText},
	{Code: CodeStringList, Name: "string_list", Shape: ShapeTextList, CountSize: 1},
	{Code: CodeStringListWide, Name: "string_list_u16", Shape: ShapeTextList, CountSize: 2},
	{Code: CodeStringPair, Name: "string_pair", Shape: ShapeTextPair},
	{Code: CodeStringUint8, Name: "string_uint8", Shape: ShapeLabeledByte, ElemSize: 1},
	{Code: CodeFloatList, Name: "float_list", Shape: ShapeFloatList, CountSize: 1, ElemSize: 4},
	{Code: CodeFloatListWide, Name: "float_u16_list", Shape: ShapeFloatList, CountSize: 2, ElemSize: 4},
	{Code: CodeFloat, Name: "float", Shape: ShapeFloat, ElemSize: 4},
	{Code: CodeInt8List, Name: "int8_list", Shape: ShapeIntList, CountSize: 1, ElemSize: 1, Signed: true},
	{Code: CodeInt8, Name: "int8", Shape: ShapeInt, ElemSize: 1, Signed: true},
	{Code: CodeUint8List, Name: "uint8_list", Shape: ShapeByteList, CountSize: 1, ElemSize: 1},
	{Code: CodeUint16Uint16List, Name: "uint16_uint16_list", Shape: ShapeIntList, CountSize: 2, ElemSize: 2},
	{Code: CodeUint16Uint8List, Name: "uint16_uint8_list", Shape: ShapeByteList, CountSize: 2, ElemSize: 1},
	{Code: CodeUint16Uint8Bin, Name: "uint16_uint8_bin", Shape: ShapeByteList, CountSize: 2, ElemSize: 1, Divertible: true},
	{Code: CodeUint16List, Name: "uint16_list", Shape: ShapeIntList, CountSize: 1, ElemSize: 2},
	{Code: CodeUint16, Name: "uint16", Shape: ShapeInt, ElemSize: 2},
	{Code: CodeInt24List, Name: "int24_list", Shape: ShapeIntList, CountSize: 1, ElemSize: 3, Signed: true},
	{Code: CodeInt24, Name: "int24", Shape: ShapeInt, ElemSize: 3},
	{Code: CodeUint32, Name: "uint32", Shape: ShapeInt, ElemSize: 4},
	{Code: CodeStringFloatList, Name: "string_float32_list", Shape: ShapeLabeledFloats, CountSize: 1, ElemSize: 4},
	{Code: CodeUint24Uint8Bin, Name: "uint24_uint8_bin", Shape: ShapeByteList, CountSize: 3, ElemSize: 1},
}

var (
	layoutsByCode = make(map[TypeCode]Layout, len(layouts))
	layoutsByName = make(map[string]Layout, len(layouts))
)

func init() {
	for _, l := range layouts {
		layoutsByCode[l.Code] = l
		layoutsByName[l.Name] = l
	}
}

// LayoutByCode returns the layout for a type code.
func LayoutByCode(code TypeCode) (Layout, bool) {
	l, ok := layoutsByCode[code]
	return l, ok
}

// LayoutByName returns the layout with the given name.
func LayoutByName(name string) (Layout, bool) {
	l, ok := layoutsByName[name]
	return l, ok
}

// Layouts returns all known layouts ordered by type code.
func Layouts() []Layout {
	out := slices.Clone(layouts)
	slices.SortFunc(out, func(a, b Layout) int { return int(a.Code) - int(b.Code) })
	return out
}
