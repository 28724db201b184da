package scene

import "encoding/binary"

// TagSize is the wire size of a NodeTag.
const TagSize = 4

const (
	// MaxLevel is the deepest nesting level a tag word can express.
	MaxLevel = 1<<6 - 1
	// MaxTypeCode is the largest type code a tag word can express.
	MaxTypeCode = 1<<10 - 1
)

// NodeTag is the 4-byte record framing every element: a tag word packing
// level (bits 15..10) and type code (bits 9..0), then a string table index.
type NodeTag struct {
	Level     int
	Code      TypeCode
	NameIndex uint16
}

// Word returns the packed level/type word.
func (t NodeTag) Word() uint16 {
	return uint16(t.Level)<<10 | uint16(t.Code)
}

// AppendTo appends the tag in the given byte order.
func (t NodeTag) AppendTo(b []byte, order binary.AppendByteOrder) []byte {
	b = order.AppendUint16(b, t.Word())
	return order.AppendUint16(b, t.NameIndex)
}

// splitWord unpacks a tag word into level and type code.
func splitWord(w uint16) (int, TypeCode) {
	return int(w >> 10), TypeCode(w & MaxTypeCode)
}

// DecodeNodeTag parses a 4-byte tag record.
func DecodeNodeTag(b []byte, order binary.ByteOrder) NodeTag {
	level, code := splitWord(order.Uint16(b))
	return NodeTag{Level: level, Code: code, NameIndex: order.Uint16(b[2:])}
}

func (t NodeTag) valid() bool {
	return t.Level >= 0 && t.Level <= MaxLevel && t.Code <= MaxTypeCode
}
