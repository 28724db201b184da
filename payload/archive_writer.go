package payload

import (
	_ "crypto/sha256" // registers digest.SHA256
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	scene "github.com/meigma/scenekit"
	"github.com/meigma/scenekit/internal/fb"
	"github.com/meigma/scenekit/internal/sink"
	"github.com/meigma/scenekit/internal/sizing"
)

// IndexVersion is the payload index format version written by ArchiveWriter.
const IndexVersion = 1

// entry records where one payload lives in the data stream.
type entry struct {
	Digest       digest.Digest
	DataOffset   uint64
	DataSize     uint64
	OriginalSize uint64
	Compression  Compression
}

// ArchiveWriter diverts payloads into a content addressed data stream. The
// reference recorded in the scene is the payload digest. Call Finish once all
// scenes are decoded to obtain the index.
type ArchiveWriter struct {
	mu       sync.Mutex
	data     *sink.CountingWriter
	enc      *zstd.Encoder
	opts     options
	entries  map[digest.Digest]entry
	deduped  int
	finished bool
}

// NewArchiveWriter returns a writer appending payload bytes to data.
func NewArchiveWriter(data io.Writer, opts ...Option) (*ArchiveWriter, error) {
	o := newOptions(opts)
	w := &ArchiveWriter{
		data:    &sink.CountingWriter{W: data},
		opts:    o,
		entries: make(map[digest.Digest]entry),
	}
	if o.compression == CompressionZstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		w.enc = enc
	}
	return w, nil
}

// Divert implements scene.Hook.
func (w *ArchiveWriter) Divert(parent, elem *scene.Element, payload io.Reader, size int64) (string, bool, error) {
	if m := w.opts.matcher; m != nil && !m.Matches(parent, elem) {
		return "", false, nil
	}
	if size < 0 || (w.opts.maxPayloadSize > 0 && uint64(size) > w.opts.maxPayloadSize) { //nolint:gosec // size checked non-negative
		return "", false, fmt.Errorf("%w: payload of %d bytes", ErrSizeMismatch, size)
	}

	digester := digest.Canonical.Digester()
	raw, err := sizing.ReadAllWithLimit(io.TeeReader(payload, digester.Hash()), uint64(size), ErrSizeMismatch) //nolint:gosec // checked above
	if err != nil {
		return "", false, err
	}
	if int64(len(raw)) != size {
		return "", false, fmt.Errorf("%w: read %d of %d bytes", ErrSizeMismatch, len(raw), size)
	}
	dgst := digester.Digest()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return "", false, ErrClosed
	}
	if _, ok := w.entries[dgst]; ok {
		w.deduped++
		w.opts.log().Debug("deduplicated payload", "digest", dgst, "tag", elem.Tag)
		return dgst.String(), true, nil
	}

	stored, compression := raw, CompressionNone
	if w.enc != nil {
		if packed := w.enc.EncodeAll(raw, nil); len(packed) < len(raw) {
			stored, compression = packed, CompressionZstd
		}
	}
	offset := w.data.N
	if _, err := w.data.Write(stored); err != nil {
		return "", false, fmt.Errorf("write payload %s: %w", dgst, err)
	}
	w.entries[dgst] = entry{
		Digest:       dgst,
		DataOffset:   offset,
		DataSize:     uint64(len(stored)),
		OriginalSize: uint64(len(raw)),
		Compression:  compression,
	}
	w.opts.log().Debug("archived payload",
		"digest", dgst, "tag", elem.Tag, "size", len(raw), "stored", len(stored), "compression", compression.String())
	return dgst.String(), true, nil
}

// Restore implements scene.Hook. The writer cannot serve payloads back; use
// Archive for encoding.
func (w *ArchiveWriter) Restore(_, _ *scene.Element) (io.ReadCloser, int64, error) {
	return nil, 0, nil
}

// Len returns the number of distinct payloads written.
func (w *ArchiveWriter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Deduplicated returns how many diverted payloads matched an earlier one.
func (w *ArchiveWriter) Deduplicated() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deduped
}

// Finish stops accepting payloads and returns the FlatBuffers index.
func (w *ArchiveWriter) Finish() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return nil, ErrClosed
	}
	w.finished = true
	if w.enc != nil {
		if err := w.enc.Close(); err != nil {
			return nil, fmt.Errorf("close zstd encoder: %w", err)
		}
	}

	entries := slices.Collect(maps.Values(w.entries))
	slices.SortFunc(entries, func(a, b entry) int {
		return strings.Compare(a.Digest.String(), b.Digest.String())
	})
	return buildIndex(entries, w.data.N), nil
}

// buildIndex serializes entries, which must be sorted by digest.
func buildIndex(entries []entry, dataSize uint64) []byte {
	builder := flatbuffers.NewBuilder(1024)

	// Build entries in reverse order (FlatBuffers requirement)
	offsets := make([]flatbuffers.UOffsetT, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		digestOffset := builder.CreateString(e.Digest.String())

		fb.PayloadStart(builder)
		fb.PayloadAddDigest(builder, digestOffset)
		fb.PayloadAddDataOffset(builder, e.DataOffset)
		fb.PayloadAddDataSize(builder, e.DataSize)
		fb.PayloadAddOriginalSize(builder, e.OriginalSize)
		fb.PayloadAddCompression(builder, e.Compression.wire())
		offsets[i] = fb.PayloadEnd(builder)
	}

	fb.PayloadIndexStartPayloadsVector(builder, len(entries))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	payloadsOffset := builder.EndVector(len(entries))

	fb.PayloadIndexStart(builder)
	fb.PayloadIndexAddVersion(builder, IndexVersion)
	fb.PayloadIndexAddPayloads(builder, payloadsOffset)
	fb.PayloadIndexAddDataSize(builder, dataSize)
	builder.Finish(fb.PayloadIndexEnd(builder))
	return builder.FinishedBytes()
}
