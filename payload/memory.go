package payload

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	scene "github.com/meigma/scenekit"
)

// MemoryStore keeps diverted payloads in memory, keyed by matcher name.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string][]byte
	matcher *Matcher
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions(opts)
	return &MemoryStore{
		data:    make(map[string][]byte),
		matcher: o.match(&TextureMatcher),
	}
}

// Divert implements scene.Hook.
func (s *MemoryStore) Divert(parent, elem *scene.Element, payload io.Reader, size int64) (string, bool, error) {
	name, ok := s.matcher.Name(parent, elem)
	if !ok {
		return "", false, nil
	}
	data, err := io.ReadAll(payload)
	if err != nil {
		return "", false, err
	}
	if int64(len(data)) != size {
		return "", false, fmt.Errorf("%w: read %d of %d bytes", ErrSizeMismatch, len(data), size)
	}
	s.Put(name, data)
	return name, true, nil
}

// Restore implements scene.Hook.
func (s *MemoryStore) Restore(_, elem *scene.Element) (io.ReadCloser, int64, error) {
	if elem.External == nil {
		return nil, 0, nil
	}
	data, ok := s.Get(elem.External.Ref)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, elem.External.Ref)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

// Put stores data under ref, replacing any previous payload.
func (s *MemoryStore) Put(ref string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ref] = data
}

// Get returns the payload stored under ref.
func (s *MemoryStore) Get(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[ref]
	return data, ok
}

// Refs returns the stored references in sorted order.
func (s *MemoryStore) Refs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data))
}
