package scene

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

// rawScene assembles scene bytes by hand, independent of the encoder.
type rawScene struct {
	e       Endianness
	strings []string
	tree    []byte
	tail    []byte
}

func newRawScene(e Endianness, strs ...string) *rawScene {
	r := &rawScene{e: e, strings: strs}
	return r.tag(0, CodeEmpty, 0)
}

func (r *rawScene) order() Order {
	return r.e.ByteOrder()
}

// tag appends a tag record.
func (r *rawScene) tag(level int, code TypeCode, name uint16) *rawScene {
	r.tree = NodeTag{Level: level, Code: code, NameIndex: name}.AppendTo(r.tree, r.order())
	return r
}

// raw appends payload bytes verbatim.
func (r *rawScene) raw(b ...byte) *rawScene {
	r.tree = append(r.tree, b...)
	return r
}

func (r *rawScene) u16(v uint16) *rawScene {
	r.tree = r.order().AppendUint16(r.tree, v)
	return r
}

func (r *rawScene) u32(v uint32) *rawScene {
	r.tree = r.order().AppendUint32(r.tree, v)
	return r
}

func (r *rawScene) trailing(b []byte) *rawScene {
	r.tail = b
	return r
}

// tableBytes returns the NUL joined string table.
func (r *rawScene) tableBytes() []byte {
	return []byte(strings.Join(r.strings, "\x00"))
}

func (r *rawScene) bytes() []byte {
	table := r.tableBytes()
	h := Header{
		Endianness:      r.e,
		StringTableSize: uint32(len(table)),
		TreeSize:        uint32(len(r.tree)),
	}
	var buf bytes.Buffer
	buf.Write(h.Bytes())
	buf.Write(table)
	buf.Write(r.tree)
	buf.Write(r.tail)
	return buf.Bytes()
}

// treeStart returns the offset of the root tag record.
func (r *rawScene) treeStart() int {
	return HeaderSize + len(r.tableBytes())
}

func mustDecode(tb testing.TB, data []byte, opts ...Option) *Document {
	tb.Helper()
	doc, err := Decode(data, opts...)
	if err != nil {
		tb.Fatalf("Decode failed: %v", err)
	}
	return doc
}

func mustEncode(tb testing.TB, doc *Document, opts ...Option) []byte {
	tb.Helper()
	out, err := Encode(doc, opts...)
	if err != nil {
		tb.Fatalf("Encode failed: %v", err)
	}
	return out
}

var _ binary.ByteOrder = Order(nil)
