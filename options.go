package scene

import "log/slog"

// Mode controls how Decode reacts to unknown type codes.
type Mode uint8

const (
	// ModeStrict fails the whole decode on any error.
	ModeStrict Mode = iota
	// ModeBestEffort returns the tree built up to an unknown type code
	// together with the error. All other errors remain fatal.
	ModeBestEffort
)

// ParseMode parses "strict" or "best-effort".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "strict", "":
		return ModeStrict, true
	case "best-effort", "best_effort":
		return ModeBestEffort, true
	}
	return 0, false
}

func (m Mode) String() string {
	if m == ModeBestEffort {
		return "best-effort"
	}
	return "strict"
}

type config struct {
	hook           Hook
	logger         *slog.Logger
	mode           Mode
	rebuildStrings bool
	endianness     *Endianness
}

// Option configures Decode and Encode.
type Option func(*config)

// WithHook installs a Hook for divertible fields.
func WithHook(h Hook) Option {
	return func(c *config) {
		c.hook = h
	}
}

// WithLogger sets the logger for codec diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMode selects the decode error mode. Defaults to ModeStrict.
func WithMode(m Mode) Option {
	return func(c *config) {
		c.mode = m
	}
}

// WithRebuiltStrings makes Encode build a fresh string table from the tree
// instead of reusing Document.Strings.
func WithRebuiltStrings() Option {
	return func(c *config) {
		c.rebuildStrings = true
	}
}

// WithEndianness makes Encode write e instead of Document.Endianness.
func WithEndianness(e Endianness) Option {
	return func(c *config) {
		c.endianness = &e
	}
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *config) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
