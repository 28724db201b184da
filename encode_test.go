package scene

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument(e Endianness) *Document {
	doc := NewDocument(e)
	mesh := NewElement("Mesh", CodeEmpty, nil)
	mesh.Append(
		NewElement("Name", CodeString, Text("hull")),
		NewElement("Position", CodeFloatList, FloatList{1, 2, 3}),
		NewElement("Tags", CodeStringListWide, TextList{"static", "hull"}),
		NewElement("Indices", CodeUint16Uint16List, IntList{0, 1, 2, 65535}),
	)
	doc.Root.Append(mesh, NewElement("Scale", CodeFloat, Float(0.5)))
	return doc
}

func TestEncodeHeaderAccounting(t *testing.T) {
	t.Parallel()

	for _, e := range []Endianness{LittleEndian, BigEndian} {
		t.Run(e.String(), func(t *testing.T) {
			t.Parallel()

			data := mustEncode(t, sampleDocument(e))
			h, err := DecodeHeader(data)
			require.NoError(t, err)
			assert.Equal(t, e, h.Endianness)
			assert.Equal(t, make([]byte, 40), data[20:HeaderSize])
			assert.Len(t, data, HeaderSize+int(h.StringTableSize)+int(h.TreeSize))

			table := data[HeaderSize : HeaderSize+int(h.StringTableSize)]
			assert.Equal(t, "\x00Mesh\x00Name\x00hull\x00Position\x00Tags\x00static\x00Indices\x00Scale\x00", string(table))

			// The tree starts with the root record.
			root := DecodeNodeTag(data[HeaderSize+int(h.StringTableSize):], e.ByteOrder())
			assert.Equal(t, NodeTag{Level: 0, Code: CodeEmpty, NameIndex: 0}, root)
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	t.Parallel()

	a := mustEncode(t, sampleDocument(BigEndian))
	b := mustEncode(t, sampleDocument(BigEndian))
	assert.Equal(t, a, b)

	doc := mustDecode(t, a)
	assert.Equal(t, a, mustEncode(t, doc))
	assert.Equal(t, a, mustEncode(t, doc, WithRebuiltStrings()))
}

func TestEncodeReusesDecodedStrings(t *testing.T) {
	t.Parallel()

	data := newRawScene(LittleEndian, "", "unused", "leaf", "").tag(1, CodeEmpty, 2).bytes()
	doc := mustDecode(t, data)
	assert.Equal(t, data, mustEncode(t, doc))

	rebuilt := mustDecode(t, mustEncode(t, doc, WithRebuiltStrings()))
	assert.Equal(t, []string{"", "leaf", ""}, rebuilt.Strings)
	assert.Equal(t, "leaf", rebuilt.Root.Children[0].Tag)
}

func TestEncodeMissingString(t *testing.T) {
	t.Parallel()

	doc := NewDocument(LittleEndian)
	doc.Strings = []string{"", "leaf", ""}
	doc.Root.Append(NewElement("leaf", CodeString, Text("absent")))

	_, err := Encode(doc)
	require.ErrorIs(t, err, ErrUnknownStringReference)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "absent", fe.Ref)
}

func TestEncodeUnknownTypeCode(t *testing.T) {
	t.Parallel()

	doc := NewDocument(BigEndian)
	doc.Root.Append(&Element{Tag: "bogus", Code: 0x999})

	_, err := Encode(doc)
	require.ErrorIs(t, err, ErrUnknownTypeCode)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, TypeCode(0x999), fe.Code)
	assert.Contains(t, err.Error(), "0x999")

	unknownName := NewDocument(BigEndian)
	unknownName.Root.Append(&Element{Tag: "bogus", Attrs: map[string]string{TypeAttr: "float128"}})
	_, err = Encode(unknownName)
	assert.ErrorIs(t, err, ErrUnknownTypeCode)
}

func TestEncodeInvalidValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		elem *Element
	}{
		{"wrong shape", NewElement("x", CodeInt8, Text("five"))},
		{"int8 overflow", NewElement("x", CodeInt8, Int(128))},
		{"int8 underflow", NewElement("x", CodeInt8, Int(-129))},
		{"negative unsigned", NewElement("x", CodeUint16, Int(-1))},
		{"int24 overflow", NewElement("x", CodeInt24List, IntList{1 << 23})},
		{"int24 scalar overflow", NewElement("x", CodeInt24, Int(1<<24))},
		{"int24 scalar negative", NewElement("x", CodeInt24, Int(-1))},
		{"uint32 overflow", NewElement("x", CodeUint32, Int(1<<32))},
		{"missing scalar", NewElement("x", CodeFloat, nil)},
		{"missing pair", NewElement("x", CodeStringPair, nil)},
		{"value on empty", NewElement("x", CodeEmpty, Int(1))},
		{"string list too long", NewElement("x", CodeStringList, TextList(make([]string, 256)))},
		{"float list too long", NewElement("x", CodeFloatList, FloatList(make([]float32, 256)))},
		{"byte list too long", NewElement("x", CodeUint16Uint8List, ByteList(make([]byte, 1<<16)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := NewDocument(LittleEndian)
			doc.Root.Append(tt.elem)
			_, err := Encode(doc)
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

func TestEncodeNilLists(t *testing.T) {
	t.Parallel()

	doc := NewDocument(LittleEndian)
	doc.Root.Append(
		NewElement("a", CodeUint8List, nil),
		NewElement("b", CodeStringList, nil),
		NewElement("c", CodeString, nil),
	)
	got := mustDecode(t, mustEncode(t, doc))
	require.Len(t, got.Root.Children, 3)
	assert.Empty(t, got.Root.Children[0].Value)
	assert.Empty(t, got.Root.Children[1].Value)
	assert.Equal(t, Text(""), got.Root.Children[2].Value)
}

func TestEncodeLevelLimit(t *testing.T) {
	t.Parallel()

	build := func(depth int) *Document {
		doc := NewDocument(BigEndian)
		parent := doc.Root
		for range depth {
			child := NewElement("n", CodeEmpty, nil)
			parent.Append(child)
			parent = child
		}
		return doc
	}

	got := mustDecode(t, mustEncode(t, build(MaxLevel)))
	depth := 0
	require.NoError(t, got.Walk(func(_, _ *Element, level int) error {
		depth = max(depth, level)
		return nil
	}))
	assert.Equal(t, MaxLevel, depth)

	_, err := Encode(build(MaxLevel + 1))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestEncodeWithEndianness(t *testing.T) {
	t.Parallel()

	little := mustEncode(t, sampleDocument(LittleEndian))
	doc := mustDecode(t, little)

	big := mustEncode(t, doc, WithEndianness(BigEndian))
	assert.Equal(t, BigEndian.Magic(), big[:MagicSize])
	assert.Equal(t, mustEncode(t, sampleDocument(BigEndian)), big)

	back := mustDecode(t, big)
	assert.Equal(t, doc.Root, back.Root)
}

func TestEncodeNilDocument(t *testing.T) {
	t.Parallel()

	_, err := Encode(nil)
	assert.Error(t, err)
}

func TestEncodeTo(t *testing.T) {
	t.Parallel()

	doc := sampleDocument(LittleEndian)
	want := mustEncode(t, doc)

	path := filepath.Join(t.TempDir(), "scene.oct")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.WriteString("prefix")
	require.NoError(t, err)

	require.NoError(t, EncodeTo(f, doc))
	require.NoError(t, f.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(got), "prefix"))
	assert.Equal(t, want, got[len("prefix"):])
}

func TestEncodeLargeTree(t *testing.T) {
	t.Parallel()

	doc := NewDocument(BigEndian)
	for i := range 5000 {
		doc.Root.Append(NewElement("v", CodeUint32, Int(i)))
	}
	data := mustEncode(t, doc)

	h, err := DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(TagSize+5000*(TagSize+4)), h.TreeSize)

	got := mustDecode(t, data)
	require.Len(t, got.Root.Children, 5000)
	last := data[len(data)-4:]
	assert.Equal(t, uint32(4999), binary.BigEndian.Uint32(last))
}
