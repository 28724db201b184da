package markup

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scene "github.com/meigma/scenekit"
	"github.com/meigma/scenekit/internal/testutil"
	"github.com/meigma/scenekit/payload"
)

var docOpts = cmp.Options{
	cmpopts.EquateEmpty(),
	cmpopts.IgnoreFields(scene.Document{}, "Strings"),
}

// sample returns a value of the layout's shape that fits its widths.
func sample(l scene.Layout) scene.Value {
	switch l.Shape {
	case scene.ShapeText:
		return scene.Text("  a <b> & \"c\"\nline ")
	case scene.ShapeTextList:
		return scene.TextList{"x", "", " y "}
	case scene.ShapeTextPair:
		return scene.TextPair{Label: "lbl", Content: "content"}
	case scene.ShapeLabeledByte:
		return scene.LabeledByte{Label: "opacity", Value: 255}
	case scene.ShapeFloat:
		return scene.Float(3.25)
	case scene.ShapeFloatList:
		return scene.FloatList{1.5, 0.1, -1e-7}
	case scene.ShapeLabeledFloats:
		return scene.LabeledFloats{Label: "weights", Values: []float32{0.25, 0.75}}
	case scene.ShapeInt:
		if l.Signed {
			return scene.Int(-5)
		}
		return scene.Int(100)
	case scene.ShapeIntList:
		if l.Signed {
			return scene.IntList{-1, 2}
		}
		return scene.IntList{1, 2}
	case scene.ShapeByteList:
		return scene.ByteList{0, 7, 255}
	}
	return nil
}

func everyLayout(e scene.Endianness) *scene.Document {
	doc := scene.NewDocument(e)
	group := scene.NewElement("Every Layout", scene.CodeEmpty, nil)
	for _, l := range scene.Layouts() {
		group.Append(scene.NewElement(l.Name, l.Code, sample(l)))
	}
	doc.Root.Append(group)
	return doc
}

func roundTrip(t *testing.T, doc *scene.Document) (*scene.Document, string) {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, doc))
	got, err := ReadXML(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	return got, buf.String()
}

func TestXMLRoundTripEveryLayout(t *testing.T) {
	t.Parallel()

	for _, e := range []scene.Endianness{scene.LittleEndian, scene.BigEndian} {
		t.Run(e.String(), func(t *testing.T) {
			t.Parallel()
			want := everyLayout(e)
			got, _ := roundTrip(t, want)
			if diff := cmp.Diff(want, got, docOpts); diff != "" {
				t.Errorf("document mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestXMLFormat(t *testing.T) {
	t.Parallel()

	doc := scene.NewDocument(scene.LittleEndian)
	doc.Root.Append(scene.NewElement("Mesh", scene.CodeEmpty, nil).Append(
		scene.NewElement("Name", scene.CodeString, scene.Text("hull")),
		scene.NewElement("Indices", scene.CodeUint16List, scene.IntList{0, 1}),
		scene.NewElement("Tint", scene.CodeStringFloatList, scene.LabeledFloats{Label: "rgb", Values: []float32{1, 0.5}}),
	))

	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, doc))

	want := `<?xml version="1.0" encoding="UTF-8"?>
<root_node endianness="little">
   <Mesh>
      <Name type="string">hull</Name>
      <Indices type="uint16_list">
         <entry>0</entry>
         <entry>1</entry>
      </Indices>
      <Tint type="string_float32_list" label="rgb">
         <entry>1</entry>
         <entry>0.5</entry>
      </Tint>
   </Mesh>
</root_node>
`
	assert.Equal(t, want, buf.String())
}

func TestReadXMLOriginalForm(t *testing.T) {
	t.Parallel()

	in := `<?xml version="1.0" ?>
<root_node>
   <__3D_____Model>
      <Name type="string">hull</Name>
      <Tint type="string_float32_list">
         rgb
         <entry>1.0</entry>
         <entry>0.5</entry>
      </Tint>
      <Flags type="uint8_list"/>
      <Data type="uint16_uint8_bin" filepath="textures/hull.dds"/>
   </__3D_____Model>
</root_node>
`
	doc, err := ReadXML(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, scene.LittleEndian, doc.Endianness)
	assert.Nil(t, doc.Strings)

	model := doc.Root.Child("3D Model")
	require.NotNil(t, model)
	assert.Equal(t, scene.CodeEmpty, model.Code)
	assert.Nil(t, model.Attrs)
	assert.Equal(t, scene.Text("hull"), model.Child("Name").Value)
	assert.Equal(t, scene.LabeledFloats{Label: "rgb", Values: []float32{1, 0.5}}, model.Child("Tint").Value)
	assert.Equal(t, scene.ByteList{}, model.Child("Flags").Value)

	data := model.Child("Data")
	assert.Equal(t, scene.CodeUint16Uint8Bin, data.Code)
	assert.Nil(t, data.Value)
	assert.Equal(t, &scene.External{Ref: "textures/hull.dds"}, data.External)
}

func TestReadXMLTypeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		elem      string
		wantCode  scene.TypeCode
		wantValue scene.Value
		wantAttrs map[string]string
	}{
		{
			name:      "wide string list",
			elem:      `<v type="uint16_uint16_list" type_id="74"><entry>3</entry><entry>4</entry></v>`,
			wantCode:  scene.CodeStringListWide,
			wantValue: scene.TextList{"3", "4"},
			wantAttrs: map[string]string{scene.TypeAttr: "string_list_u16"},
		},
		{
			name:      "pair list",
			elem:      `<v type="uint16_uint16_list" type_id="346"><entry>3</entry></v>`,
			wantCode:  scene.CodeUint16Uint16List,
			wantValue: scene.IntList{3},
			wantAttrs: map[string]string{scene.TypeAttr: "uint16_uint16_list"},
		},
		{
			name:      "hex id",
			elem:      `<v type="uint16_uint16_list" type_id="0x4A"/>`,
			wantCode:  scene.CodeStringListWide,
			wantValue: scene.TextList{},
			wantAttrs: map[string]string{scene.TypeAttr: "string_list_u16"},
		},
		{
			name:      "alternate name",
			elem:      `<v type="uint16_uint16_list_alt"><entry>65535</entry></v>`,
			wantCode:  scene.CodeUint16Uint16List,
			wantValue: scene.IntList{65535},
			wantAttrs: map[string]string{scene.TypeAttr: "uint16_uint16_list"},
		},
		{
			name:      "id with another shape is kept",
			elem:      `<v type="uint16_uint16_list" type_id="19"><entry>1</entry></v>`,
			wantCode:  scene.CodeUint16Uint16List,
			wantValue: scene.IntList{1},
			wantAttrs: map[string]string{scene.TypeAttr: "uint16_uint16_list", "type_id": "19"},
		},
		{
			name:      "unknown id is kept",
			elem:      `<v type="uint16_uint16_list" type_id="bogus"/>`,
			wantCode:  scene.CodeUint16Uint16List,
			wantValue: scene.IntList{},
			wantAttrs: map[string]string{scene.TypeAttr: "uint16_uint16_list", "type_id": "bogus"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := ReadXML(strings.NewReader("<root_node>" + tt.elem + "</root_node>"))
			require.NoError(t, err)
			v := doc.Root.Child("v")
			require.NotNil(t, v)
			assert.Equal(t, tt.wantCode, v.Code)
			assert.Equal(t, tt.wantValue, v.Value)
			assert.Equal(t, tt.wantAttrs, v.Attrs)
		})
	}
}

func TestReadXMLTypeIDEncodes(t *testing.T) {
	t.Parallel()

	in := `<root_node endianness="big">
   <v type="uint16_uint16_list" type_id="74"><entry>a</entry></v>
   <w type="uint16_uint16_list_alt"><entry>7</entry></w>
</root_node>`
	doc, err := ReadXML(strings.NewReader(in))
	require.NoError(t, err)
	data, err := scene.Encode(doc)
	require.NoError(t, err)

	back, err := scene.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, scene.CodeStringListWide, back.Root.Child("v").Code)
	assert.Equal(t, scene.TextList{"a"}, back.Root.Child("v").Value)
	assert.Equal(t, scene.CodeUint16Uint16List, back.Root.Child("w").Code)
	assert.Equal(t, scene.IntList{7}, back.Root.Child("w").Value)
}

func TestReadXMLInt24Range(t *testing.T) {
	t.Parallel()

	doc, err := ReadXML(strings.NewReader(`<root_node><v type="int24">16777215</v></root_node>`))
	require.NoError(t, err)
	data, err := scene.Encode(doc)
	require.NoError(t, err)

	back, err := scene.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, scene.Int(16777215), back.Root.Child("v").Value)
}

func TestXMLRoundTripSceneBytes(t *testing.T) {
	t.Parallel()

	for _, e := range []scene.Endianness{scene.LittleEndian, scene.BigEndian} {
		t.Run(e.String(), func(t *testing.T) {
			t.Parallel()
			data := testutil.Encode(testutil.TextureScene(e,
				testutil.Texture{Name: "stone", Data: []byte("DDS stone")},
			))
			doc, err := scene.Decode(data)
			require.NoError(t, err)

			got, _ := roundTrip(t, doc)
			out, err := scene.Encode(got)
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestXMLRoundTripExternalPayloads(t *testing.T) {
	t.Parallel()

	store := payload.NewMemoryStore()
	data := testutil.Encode(testutil.TextureScene(scene.BigEndian,
		testutil.Texture{Name: "stone", Data: []byte("DDS stone")},
		testutil.Texture{Name: "env/sky", Data: []byte("DDS sky")},
	))
	doc, err := scene.Decode(data, scene.WithHook(store))
	require.NoError(t, err)

	got, text := roundTrip(t, doc)
	assert.Contains(t, text, `filepath="env/sky.dds" size="7"`)
	if diff := cmp.Diff(doc, got, docOpts); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}

	out, err := scene.Encode(got, scene.WithHook(store))
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestXMLRoundTripDocumentDetails(t *testing.T) {
	t.Parallel()

	doc := scene.NewDocument(scene.BigEndian)
	doc.Root.Tag = "scene root"
	doc.Root.Code = 0
	doc.Root.SetAttr("source", "level01")
	doc.Trailing = []byte{0xDE, 0xAD}
	doc.Root.Append(
		scene.NewElement("Group", scene.CodeString, scene.Text(" text beside children ")).Append(
			scene.NewElement("Child", scene.CodeInt8, scene.Int(-1)),
		),
		scene.NewElement("Pair", scene.CodeStringPair, scene.TextPair{Label: `a"b`, Content: ""}),
		scene.NewElement("Byte", scene.CodeStringUint8, scene.LabeledByte{Label: "", Value: 9}),
		scene.NewElement("entry", scene.CodeEmpty, nil),
	)
	doc.Root.Children[0].SetAttr("note", "kept")

	got, text := roundTrip(t, doc)
	assert.Contains(t, text, `value=" text beside children "`)
	assert.Contains(t, text, `trailing="dead"`)
	assert.Contains(t, text, `code="0x0"`)
	if diff := cmp.Diff(doc, got, docOpts); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestXMLRenamedRootEncodes(t *testing.T) {
	t.Parallel()

	doc := scene.NewDocument(scene.LittleEndian)
	doc.Root.Tag = "myroot"
	doc.Root.Append(scene.NewElement("Name", scene.CodeString, scene.Text("hull")))
	data, err := scene.Encode(doc)
	require.NoError(t, err)

	decoded, err := scene.Decode(data)
	require.NoError(t, err)
	got, _ := roundTrip(t, decoded)
	assert.Equal(t, "myroot", got.Root.Tag)

	out, err := scene.Encode(got)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestWriteXMLErrors(t *testing.T) {
	t.Parallel()

	listWithEntry := scene.NewDocument(scene.LittleEndian)
	listWithEntry.Root.Append(scene.NewElement("List", scene.CodeUint8List, scene.ByteList{1}).Append(
		scene.NewElement("entry", scene.CodeEmpty, nil),
	))

	badName := scene.NewDocument(scene.LittleEndian)
	badName.Root.Append(scene.NewElement("a:b", scene.CodeEmpty, nil))

	unknown := scene.NewDocument(scene.LittleEndian)
	unknown.Root.Append(&scene.Element{Tag: "Odd", Code: 0x3FF})

	external := scene.NewDocument(scene.LittleEndian)
	elem := scene.NewElement("Name", scene.CodeString, nil)
	elem.External = &scene.External{Ref: "x"}
	external.Root.Append(elem)

	tests := []struct {
		name string
		doc  *scene.Document
		want error
	}{
		{"entry child of list", listWithEntry, ErrInvalidName},
		{"invalid name", badName, ErrInvalidName},
		{"unknown code", unknown, scene.ErrUnknownTypeCode},
		{"external on text", external, scene.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := WriteXML(&bytes.Buffer{}, tt.doc)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Error(t, WriteXML(&bytes.Buffer{}, nil))
}

func TestReadXMLErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrSyntax},
		{"malformed", "<root_node><a></root_node>", ErrSyntax},
		{"two roots", "<root_node/><root_node/>", ErrSyntax},
		{"bad endianness", `<root_node endianness="middle"/>`, ErrSyntax},
		{"bad trailing", `<root_node trailing="zz"/>`, ErrSyntax},
		{"unknown type", `<root_node><a type="int128"/></root_node>`, ErrUnknownType},
		{"bad int", `<root_node><a type="int8">x</a></root_node>`, scene.ErrInvalidValue},
		{"bad float entry", `<root_node><a type="float_list"><entry>one</entry></a></root_node>`, scene.ErrInvalidValue},
		{"byte overflow", `<root_node><a type="uint8_list"><entry>256</entry></a></root_node>`, scene.ErrInvalidValue},
		{"filepath on text", `<root_node><a type="string" filepath="x"/></root_node>`, scene.ErrInvalidValue},
		{"bad size", `<root_node><a type="uint16_uint8_bin" filepath="x" size="-1"/></root_node>`, scene.ErrInvalidValue},
		{"element in entry", `<root_node><a type="uint8_list"><entry><b/></entry></a></root_node>`, ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadXML(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWriteXMLIndent(t *testing.T) {
	t.Parallel()

	doc := scene.NewDocument(scene.LittleEndian)
	doc.Root.Append(scene.NewElement("Name", scene.CodeString, scene.Text("x")))

	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, doc, WithIndent("")))
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"+
		`<root_node endianness="little"><Name type="string">x</Name></root_node>`+"\n", buf.String())
}
