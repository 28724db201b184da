package payload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"

	scene "github.com/meigma/scenekit"
	"github.com/meigma/scenekit/internal/fb"
)

// Archive serves payloads from a data stream described by an index written
// by ArchiveWriter. Every payload is verified against its digest before it is
// returned. Concurrent loads of the same digest share one read.
type Archive struct {
	root  *fb.PayloadIndex
	data  io.ReaderAt
	dec   *zstd.Decoder
	opts  options
	group singleflight.Group
}

type sizer interface {
	Size() int64
}

// OpenArchive parses index and returns an archive reading payload bytes from
// data. The index is retained; callers must not modify it.
//
// If data has a Size() int64 method, the index's data size is checked
// against it.
func OpenArchive(index []byte, data io.ReaderAt, opts ...Option) (a *Archive, err error) {
	defer func() {
		if r := recover(); r != nil {
			a = nil
			err = fmt.Errorf("%w: %v", ErrInvalidIndex, r)
		}
	}()
	if len(index) == 0 {
		return nil, fmt.Errorf("%w: empty index data", ErrInvalidIndex)
	}

	root := fb.GetRootAsPayloadIndex(index, 0)
	if v := root.Version(); v != IndexVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidIndex, v)
	}
	if s, ok := data.(sizer); ok && uint64(max(s.Size(), 0)) < root.DataSize() {
		return nil, fmt.Errorf("%w: index covers %d bytes, data has %d", ErrInvalidIndex, root.DataSize(), s.Size())
	}

	o := newOptions(opts)
	a = &Archive{root: root, data: data, opts: o}
	if err := a.validate(); err != nil {
		return nil, err
	}

	decOpts := []zstd.DOption{zstd.WithDecoderConcurrency(0)}
	if o.maxPayloadSize > 0 {
		decOpts = append(decOpts, zstd.WithDecoderMaxMemory(o.maxPayloadSize))
	}
	dec, err := zstd.NewReader(nil, decOpts...)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	a.dec = dec
	return a, nil
}

// validate checks ordering, digests and ranges of every index entry.
func (a *Archive) validate() error {
	var (
		p    fb.Payload
		prev string
	)
	dataSize := a.root.DataSize()
	for i := range a.root.PayloadsLength() {
		if !a.root.Payloads(&p, i) {
			return fmt.Errorf("%w: missing payload %d", ErrInvalidIndex, i)
		}
		key := string(p.Digest())
		if _, err := digest.Parse(key); err != nil {
			return fmt.Errorf("%w: payload %d: %v", ErrInvalidIndex, i, err)
		}
		if i > 0 && key <= prev {
			return fmt.Errorf("%w: payloads not sorted by digest", ErrInvalidIndex)
		}
		prev = key

		end := p.DataOffset() + p.DataSize()
		if end < p.DataOffset() || end > dataSize {
			return fmt.Errorf("%w: payload %s outside data", ErrInvalidIndex, key)
		}
		switch p.Compression() {
		case fb.CompressionNone:
			if p.DataSize() != p.OriginalSize() {
				return fmt.Errorf("%w: payload %s size mismatch", ErrInvalidIndex, key)
			}
		case fb.CompressionZstd:
		default:
			return fmt.Errorf("%w: payload %s: %w %s", ErrInvalidIndex, key, ErrUnknownCompression, p.Compression())
		}
	}
	return nil
}

// Close releases the decoder.
func (a *Archive) Close() error {
	a.dec.Close()
	return nil
}

// Len returns the number of payloads in the archive.
func (a *Archive) Len() int {
	return a.root.PayloadsLength()
}

// Digests returns an iterator over the stored digests in sorted order.
func (a *Archive) Digests() iter.Seq[digest.Digest] {
	return func(yield func(digest.Digest) bool) {
		var p fb.Payload
		for i := range a.root.PayloadsLength() {
			if !a.root.Payloads(&p, i) {
				return
			}
			if !yield(digest.Digest(p.Digest())) {
				return
			}
		}
	}
}

// lookup finds the index entry for d by binary search.
func (a *Archive) lookup(d digest.Digest) (fb.Payload, bool) {
	var p fb.Payload
	key := d.String()
	n := a.root.PayloadsLength()
	i := sort.Search(n, func(i int) bool {
		a.root.Payloads(&p, i)
		return string(p.Digest()) >= key
	})
	if i == n || !a.root.Payloads(&p, i) || string(p.Digest()) != key {
		return fb.Payload{}, false
	}
	return p, true
}

// Load returns the verified payload bytes for d. The returned slice may be
// shared with concurrent callers and must be treated as immutable.
func (a *Archive) Load(d digest.Digest) ([]byte, error) {
	v, err, shared := a.group.Do(d.String(), func() (any, error) {
		return a.load(d)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		a.opts.log().Debug("shared payload load", "digest", d)
	}
	return v.([]byte), nil //nolint:forcetypeassert // load always returns []byte
}

func (a *Archive) load(d digest.Digest) ([]byte, error) {
	p, ok := a.lookup(d)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, d)
	}
	if limit := a.opts.maxPayloadSize; limit > 0 && (p.OriginalSize() > limit || p.DataSize() > limit) {
		return nil, fmt.Errorf("%w: payload %s exceeds %d bytes", ErrSizeMismatch, d, limit)
	}
	if p.DataOffset() > math.MaxInt64 {
		return nil, fmt.Errorf("%w: payload %s offset overflows", ErrInvalidIndex, d)
	}

	stored := make([]byte, p.DataSize())
	n, err := a.data.ReadAt(stored, int64(p.DataOffset())) //nolint:gosec // checked above
	if n < len(stored) {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read payload %s: %w", d, err)
	}

	content := stored
	if p.Compression() == fb.CompressionZstd {
		content, err = a.dec.DecodeAll(stored, make([]byte, 0, p.OriginalSize()))
		if err != nil {
			return nil, fmt.Errorf("decompress payload %s: %w", d, err)
		}
	}
	if uint64(len(content)) != p.OriginalSize() {
		return nil, fmt.Errorf("%w: payload %s has %d bytes, index records %d", ErrSizeMismatch, d, len(content), p.OriginalSize())
	}

	verifier := d.Verifier()
	_, _ = verifier.Write(content) //nolint:errcheck // hash writes never fail
	if !verifier.Verified() {
		return nil, fmt.Errorf("%w: %s", ErrDigestMismatch, d)
	}
	return content, nil
}

// Divert implements scene.Hook. An archive is read only, so payloads stay inline.
func (a *Archive) Divert(_, _ *scene.Element, _ io.Reader, _ int64) (string, bool, error) {
	return "", false, nil
}

// Restore implements scene.Hook. External references must be digests.
func (a *Archive) Restore(_, elem *scene.Element) (io.ReadCloser, int64, error) {
	if elem.External == nil {
		return nil, 0, nil
	}
	d, err := digest.Parse(elem.External.Ref)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s is not a digest", ErrNotFound, elem.External.Ref)
	}
	content, err := a.Load(d)
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(content)), int64(len(content)), nil
}
