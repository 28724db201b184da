package scene

import (
	"bytes"
	"io"
	"math"
	"slices"
	"unicode/utf8"
)

// StringTable is the ordered string list referenced by index from tags and
// string-valued fields.
type StringTable struct {
	entries []string
	index   map[string]int
}

// NewStringTable wraps an existing ordered list. When a string appears more
// than once, Index resolves to its first position.
func NewStringTable(entries []string) *StringTable {
	t := &StringTable{entries: entries, index: make(map[string]int, len(entries))}
	for i, s := range entries {
		if _, ok := t.index[s]; !ok {
			t.index[s] = i
		}
	}
	return t
}

// ReadStringTable splits a NUL separated table and validates each entry as UTF-8.
func ReadStringTable(data []byte) (*StringTable, error) {
	parts := bytes.Split(data, []byte{0})
	entries := make([]string, len(parts))
	off := HeaderSize
	for i, p := range parts {
		if !utf8.Valid(p) {
			return nil, formatErr(KindInvalidValue, off, "string table entry %d is not valid UTF-8", i)
		}
		entries[i] = string(p)
		off += len(p) + 1
	}
	return NewStringTable(entries), nil
}

// BuildStringTable collects every tag and string value of doc in pre-order,
// first-seen order, without duplicates. The reserved tags RootTag and
// EntryTag are skipped; a renamed root comes first. The result starts and
// ends with an empty string.
func BuildStringTable(doc *Document) *StringTable {
	entries := []string{""}
	seen := map[string]bool{"": true}
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			entries = append(entries, s)
		}
	}
	if doc.Root != nil && doc.Root.Tag != "" && doc.Root.Tag != RootTag {
		add(doc.Root.Tag)
	}
	_ = doc.Walk(func(_, e *Element, _ int) error {
		if e.Tag != RootTag && e.Tag != EntryTag {
			add(e.Tag)
		}
		for _, s := range valueStrings(e.Value) {
			add(s)
		}
		return nil
	})
	return NewStringTable(append(entries, ""))
}

// Len returns the number of entries.
func (t *StringTable) Len() int {
	return len(t.entries)
}

// Strings returns a copy of the entries.
func (t *StringTable) Strings() []string {
	return slices.Clone(t.entries)
}

// String returns the entry at index i.
func (t *StringTable) String(i int) (string, bool) {
	if i < 0 || i >= len(t.entries) {
		return "", false
	}
	return t.entries[i], true
}

// Index returns the position of s.
func (t *StringTable) Index(s string) (int, bool) {
	i, ok := t.index[s]
	if !ok || i > math.MaxUint16 {
		return 0, false
	}
	return i, true
}

// Size returns the encoded byte length of the table.
func (t *StringTable) Size() int {
	if len(t.entries) == 0 {
		return 0
	}
	n := len(t.entries) - 1
	for _, s := range t.entries {
		n += len(s)
	}
	return n
}

// WriteTo writes the NUL joined entries to w.
func (t *StringTable) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 0, t.Size())
	for i, s := range t.entries {
		if i > 0 {
			buf = append(buf, 0)
		}
		buf = append(buf, s...)
	}
	n, err := w.Write(buf)
	return int64(n), err
}
