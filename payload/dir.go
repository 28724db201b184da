package payload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"

	scene "github.com/meigma/scenekit"
)

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
)

// DirStore diverts payloads to files below a directory, one file per
// payload, named by the matcher. The reference recorded in the scene is the
// slash separated path relative to the directory.
//
// Restore accepts relative references, resolved inside the directory, and
// absolute paths, opened as is. Relative references cannot escape the
// directory.
type DirStore struct {
	dir     string
	root    *os.Root
	matcher *Matcher
	opts    options
	seq     atomic.Uint64
}

// NewDirStore creates dir if needed and returns a store rooted at it.
func NewDirStore(dir string, opts ...Option) (*DirStore, error) {
	if dir == "" {
		return nil, errors.New("payload: store dir is empty")
	}
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &DirStore{
		dir:     dir,
		root:    root,
		matcher: o.match(&TextureMatcher),
		opts:    o,
	}, nil
}

// Dir returns the store directory.
func (s *DirStore) Dir() string {
	return s.dir
}

// Close releases the directory handle.
func (s *DirStore) Close() error {
	return s.root.Close()
}

// Divert implements scene.Hook. Payloads the matcher cannot name are left inline.
func (s *DirStore) Divert(parent, elem *scene.Element, payload io.Reader, size int64) (string, bool, error) {
	name, ok := s.matcher.Name(parent, elem)
	if !ok {
		return "", false, nil
	}
	if err := s.write(name, payload, size); err != nil {
		return "", false, fmt.Errorf("write %s: %w", name, err)
	}
	s.opts.log().Debug("stored payload", "path", name, "size", size)
	return name, true, nil
}

// write streams payload to a temporary file and renames it into place.
func (s *DirStore) write(name string, payload io.Reader, size int64) error {
	rel := filepath.FromSlash(name)
	if dir := filepath.Dir(rel); dir != "." {
		if err := s.root.MkdirAll(dir, defaultDirPerm); err != nil {
			return err
		}
	}

	tmp := filepath.Join(filepath.Dir(rel), fmt.Sprintf(".%s.%d.tmp", filepath.Base(rel), s.seq.Add(1)))
	f, err := s.root.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, defaultFilePerm)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, payload)
	if err != nil {
		f.Close()
		_ = s.root.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = s.root.Remove(tmp)
		return err
	}
	if n != size {
		_ = s.root.Remove(tmp)
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrSizeMismatch, n, size)
	}
	if err := s.root.Rename(tmp, rel); err != nil {
		_ = s.root.Remove(tmp)
		return err
	}
	return nil
}

// Restore implements scene.Hook. Elements without an external reference are
// left to their inline value.
func (s *DirStore) Restore(_, elem *scene.Element) (io.ReadCloser, int64, error) {
	if elem.External == nil {
		return nil, 0, nil
	}
	ref := elem.External.Ref

	var (
		f   *os.File
		err error
	)
	if filepath.IsAbs(ref) {
		f, err = os.Open(ref) //nolint:gosec // absolute references are explicit user paths
	} else {
		f, err = s.root.Open(filepath.FromSlash(path.Clean(ref)))
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}
