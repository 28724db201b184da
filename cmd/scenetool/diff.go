package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	scene "github.com/meigma/scenekit"
	"github.com/meigma/scenekit/markup"
)

// maxDiffLines bounds the changed lines printed for one file.
const maxDiffLines = 40

// treeDiff renders both documents as XML and returns a line diff, or "" when
// the trees are equal.
func treeDiff(want, got *scene.Document) (string, error) {
	var a, b bytes.Buffer
	if err := markup.WriteXML(&a, want); err != nil {
		return "", err
	}
	if err := markup.WriteXML(&b, got); err != nil {
		return "", err
	}
	if bytes.Equal(a.Bytes(), b.Bytes()) {
		return "", nil
	}

	dmp := diffmatchpatch.New()
	chars1, chars2, lines := dmp.DiffLinesToChars(a.String(), b.String())
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lines)

	var out strings.Builder
	written := 0
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			if written == maxDiffLines {
				out.WriteString("  ...\n")
				return out.String(), nil
			}
			out.WriteString(prefix)
			out.WriteString(strings.TrimRight(line, "\n"))
			out.WriteByte('\n')
			written++
		}
	}
	return out.String(), nil
}

// firstDifference describes where two byte slices first differ.
func firstDifference(want, got []byte) string {
	n := min(len(want), len(got))
	for i := range n {
		if want[i] != got[i] {
			return fmt.Sprintf("first difference at offset %#x", i)
		}
	}
	return fmt.Sprintf("length %d, want %d", len(got), len(want))
}
