package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// status prints one line per processed file. Colors are used only when
// writing to a terminal.
type status struct {
	mu   sync.Mutex
	w    io.Writer
	ok   func(format string, a ...any) string
	warn func(format string, a ...any) string
	fail func(format string, a ...any) string
}

func newStatus(w io.Writer, noColor bool) *status {
	colored := !noColor && isTerminal(w)
	paint := func(attrs ...color.Attribute) func(string, ...any) string {
		c := color.New(attrs...)
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintfFunc()
	}
	return &status{
		w:    w,
		ok:   paint(color.FgGreen),
		warn: paint(color.FgYellow),
		fail: paint(color.FgRed, color.Bold),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (s *status) line(label, path, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if detail != "" {
		fmt.Fprintf(s.w, "%s %s: %s\n", label, path, detail)
		return
	}
	fmt.Fprintf(s.w, "%s %s\n", label, path)
}

// OK reports a file that was processed successfully.
func (s *status) OK(path, detail string) { s.line(s.ok("ok  "), path, detail) }

// Warn reports a file that was processed with problems.
func (s *status) Warn(path, detail string) { s.line(s.warn("warn"), path, detail) }

// Fail reports a file that could not be processed.
func (s *status) Fail(path, detail string) { s.line(s.fail("FAIL"), path, detail) }
