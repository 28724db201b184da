package payload

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scene "github.com/meigma/scenekit"
	"github.com/meigma/scenekit/internal/testutil"
)

var (
	stonePixels = bytes.Repeat([]byte("stone"), 200)
	tinyPixels  = []byte{1, 2, 3}
)

// archiveScene decodes a fixture scene into a fresh archive and returns the
// original bytes, the decoded document, the data stream and the index.
func archiveScene(t *testing.T, opts ...Option) ([]byte, *scene.Document, []byte, []byte) {
	t.Helper()

	data := testutil.Encode(testutil.TextureScene(scene.LittleEndian,
		testutil.Texture{Name: "stone", Data: stonePixels},
		testutil.Texture{Name: "stone_copy", Data: stonePixels},
		testutil.Texture{Name: "tiny", Data: tinyPixels},
	))

	var stream bytes.Buffer
	w, err := NewArchiveWriter(&stream, opts...)
	require.NoError(t, err)

	doc, err := scene.Decode(data, scene.WithHook(w))
	require.NoError(t, err)
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, 1, w.Deduplicated())

	index, err := w.Finish()
	require.NoError(t, err)
	return data, doc, stream.Bytes(), index
}

func TestArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	for _, c := range []Compression{CompressionNone, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()

			data, doc, stream, index := archiveScene(t, WithCompression(c))

			var refs []string
			require.NoError(t, doc.Walk(func(_, e *scene.Element, _ int) error {
				if e.External != nil {
					refs = append(refs, e.External.Ref)
				}
				return nil
			}))
			require.Len(t, refs, 3)
			assert.Equal(t, digest.FromBytes(stonePixels).String(), refs[0])
			assert.Equal(t, refs[0], refs[1])
			assert.Equal(t, digest.FromBytes(tinyPixels).String(), refs[2])

			if c == CompressionZstd {
				assert.Less(t, len(stream), len(stonePixels))
			} else {
				assert.Len(t, stream, len(stonePixels)+len(tinyPixels))
			}

			a, err := OpenArchive(index, testutil.NewMockByteSource(stream))
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Close() })
			assert.Equal(t, 2, a.Len())

			out, err := scene.Encode(doc, scene.WithHook(a))
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestArchiveDigestsSorted(t *testing.T) {
	t.Parallel()

	_, _, stream, index := archiveScene(t)
	a, err := OpenArchive(index, bytes.NewReader(stream))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	var got []string
	for d := range a.Digests() {
		got = append(got, d.String())
	}
	want := []string{digest.FromBytes(stonePixels).String(), digest.FromBytes(tinyPixels).String()}
	if want[0] > want[1] {
		want[0], want[1] = want[1], want[0]
	}
	assert.Equal(t, want, got)
}

func TestArchiveLoadVerifiesDigest(t *testing.T) {
	t.Parallel()

	_, _, stream, index := archiveScene(t, WithCompression(CompressionNone))
	src := testutil.NewMockByteSource(bytes.Clone(stream))
	src.Bytes()[0] ^= 0xFF

	a, err := OpenArchive(index, src)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Load(digest.FromBytes(stonePixels))
	assert.ErrorIs(t, err, ErrDigestMismatch)

	got, err := a.Load(digest.FromBytes(tinyPixels))
	require.NoError(t, err)
	assert.Equal(t, tinyPixels, got)
}

func TestArchiveLoadNotFound(t *testing.T) {
	t.Parallel()

	_, _, stream, index := archiveScene(t)
	a, err := OpenArchive(index, bytes.NewReader(stream))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Load(digest.FromString("absent"))
	assert.ErrorIs(t, err, ErrNotFound)

	parent, elem := texture(scene.Text("stone"))
	elem.External = &scene.External{Ref: "stone.dds"}
	_, _, err = a.Restore(parent, elem)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveConcurrentLoads(t *testing.T) {
	t.Parallel()

	_, _, stream, index := archiveScene(t)
	a, err := OpenArchive(index, bytes.NewReader(stream))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	d := digest.FromBytes(stonePixels)
	var wg sync.WaitGroup
	results := make([][]byte, 16)
	errs := make([]error, len(results))
	for i := range results {
		wg.Go(func() {
			results[i], errs[i] = a.Load(d)
		})
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, stonePixels, results[i])
	}
}

func TestOpenArchiveInvalid(t *testing.T) {
	t.Parallel()

	_, _, stream, index := archiveScene(t)

	tests := []struct {
		name  string
		index []byte
		data  []byte
	}{
		{"empty index", nil, stream},
		{"garbage index", []byte{1, 2, 3}, stream},
		{"data shorter than index", index, stream[:len(stream)-1]},
		{"empty table", buildIndex(nil, 0)[:4], nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := OpenArchive(tt.index, testutil.NewMockByteSource(tt.data))
			assert.ErrorIs(t, err, ErrInvalidIndex)
		})
	}
}

func TestOpenArchiveUnsortedIndex(t *testing.T) {
	t.Parallel()

	a, b := digest.FromString("a"), digest.FromString("b")
	if a.String() < b.String() {
		a, b = b, a
	}
	index := buildIndex([]entry{
		{Digest: a, DataSize: 1, OriginalSize: 1},
		{Digest: b, DataOffset: 1, DataSize: 1, OriginalSize: 1},
	}, 2)

	_, err := OpenArchive(index, bytes.NewReader([]byte("ab")))
	require.ErrorIs(t, err, ErrInvalidIndex)
	assert.True(t, strings.Contains(err.Error(), "sorted"))
}

func TestArchiveWriterFinished(t *testing.T) {
	t.Parallel()

	w, err := NewArchiveWriter(&bytes.Buffer{})
	require.NoError(t, err)
	_, err = w.Finish()
	require.NoError(t, err)

	_, err = w.Finish()
	require.ErrorIs(t, err, ErrClosed)

	parent, elem := texture(scene.Text("stone"))
	_, _, err = w.Divert(parent, elem, bytes.NewReader([]byte{1}), 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestArchiveWriterMatcher(t *testing.T) {
	t.Parallel()

	w, err := NewArchiveWriter(&bytes.Buffer{}, WithMatcher(Matcher{Parent: "Sound"}))
	require.NoError(t, err)

	parent, elem := texture(scene.Text("stone"))
	_, ok, err := w.Divert(parent, elem, bytes.NewReader([]byte{1}), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchiveWriterShortPayload(t *testing.T) {
	t.Parallel()

	w, err := NewArchiveWriter(&bytes.Buffer{})
	require.NoError(t, err)

	parent, elem := texture(scene.Text("stone"))
	_, _, err = w.Divert(parent, elem, bytes.NewReader([]byte{1}), 4)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestParseCompression(t *testing.T) {
	t.Parallel()

	c, err := ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, c)

	c, err = ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, c)

	_, err = ParseCompression("lz4")
	assert.ErrorIs(t, err, ErrUnknownCompression)
}
