package payload

import (
	"fmt"
	"log/slog"

	"github.com/meigma/scenekit/internal/fb"
)

// Compression selects how the archive writer stores payload bytes.
type Compression uint8

const (
	// CompressionNone stores payloads verbatim.
	CompressionNone Compression = iota
	// CompressionZstd stores payloads zstd compressed when that saves space.
	CompressionZstd
)

// ParseCompression parses "none" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none", "":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
}

func (c Compression) String() string {
	if c == CompressionZstd {
		return "zstd"
	}
	return "none"
}

func (c Compression) wire() fb.Compression {
	if c == CompressionZstd {
		return fb.CompressionZstd
	}
	return fb.CompressionNone
}

// DefaultMaxPayloadSize bounds a single payload read from an archive (16MB).
const DefaultMaxPayloadSize = 16 << 20

type options struct {
	matcher        *Matcher
	logger         *slog.Logger
	compression    Compression
	maxPayloadSize uint64
}

// Option configures a store.
type Option func(*options)

// WithMatcher sets the rule selecting and naming diverted payloads.
// DirStore and MemoryStore default to TextureMatcher; the archive writer
// accepts every divertible payload unless a matcher is set.
func WithMatcher(m Matcher) Option {
	return func(o *options) {
		o.matcher = &m
	}
}

// WithLogger sets the logger for store diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCompression sets the archive writer's compression. Defaults to zstd.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMaxPayloadSize limits the size of a single archived payload.
// Set to 0 to disable the limit.
func WithMaxPayloadSize(n uint64) Option {
	return func(o *options) {
		o.maxPayloadSize = n
	}
}

func newOptions(opts []Option) options {
	o := options{
		compression:    CompressionZstd,
		maxPayloadSize: DefaultMaxPayloadSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// match returns the configured matcher or def when none was set.
func (o *options) match(def *Matcher) *Matcher {
	if o.matcher != nil {
		return o.matcher
	}
	return def
}

// log returns the logger, falling back to a discard logger if nil.
func (o *options) log() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.logger
}
