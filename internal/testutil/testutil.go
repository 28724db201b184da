// Package testutil provides scene fixtures shared by package tests.
package testutil

import (
	"io"

	scene "github.com/meigma/scenekit"
)

// Texture is one named texture payload of a fixture scene.
type Texture struct {
	Name string
	Data []byte
}

// TextureScene returns a document holding one Texture element per texture,
// each with a Name string and a divertible Data field, followed by a Mesh
// element exercising a few other layouts.
func TextureScene(e scene.Endianness, textures ...Texture) *scene.Document {
	doc := scene.NewDocument(e)
	for _, tex := range textures {
		doc.Root.Append(scene.NewElement("Texture", scene.CodeEmpty, nil).Append(
			scene.NewElement("Name", scene.CodeString, scene.Text(tex.Name)),
			scene.NewElement("Width", scene.CodeUint16, scene.Int(64)),
			scene.NewElement("Data", scene.CodeUint16Uint8Bin, scene.ByteList(tex.Data)),
		))
	}
	doc.Root.Append(scene.NewElement("Mesh", scene.CodeEmpty, nil).Append(
		scene.NewElement("Name", scene.CodeString, scene.Text("hull")),
		scene.NewElement("Position", scene.CodeFloatList, scene.FloatList{1, -2, 0.5}),
		scene.NewElement("Indices", scene.CodeUint16List, scene.IntList{0, 1, 2}),
		scene.NewElement("Flags", scene.CodeUint8List, scene.ByteList{1, 0, 1}),
	))
	return doc
}

// Encode encodes doc or panics. Fixture documents always encode.
func Encode(doc *scene.Document, opts ...scene.Option) []byte {
	data, err := scene.Encode(doc, opts...)
	if err != nil {
		panic(err)
	}
	return data
}

// MockByteSource implements a simple in-memory io.ReaderAt with a size.
type MockByteSource struct {
	data []byte
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if off+int64(n) >= int64(len(m.data)) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.data))
}

// Bytes returns the backing slice for tests that need to mutate data.
func (m *MockByteSource) Bytes() []byte {
	return m.data
}
