// Package config loads scenetool configuration.
//
// Configuration comes from an optional YAML file. Values missing from the
// file keep their defaults, and command line flags override both.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	scene "github.com/meigma/scenekit"
	"github.com/meigma/scenekit/payload"
)

// Config is the scenetool configuration.
type Config struct {
	// Endianness overrides the byte order recorded in a document when
	// encoding, "little" or "big". Default: empty, which keeps the byte
	// order the document records.
	Endianness string `yaml:"endianness"`

	// Mode is the decode error mode, "strict" or "best-effort". Default: strict
	Mode string `yaml:"mode"`

	// Compression is the payload archive compression, "none" or "zstd".
	// Default: zstd
	Compression string `yaml:"compression"`

	// Workers bounds how many files are processed at once.
	// Default: number of CPUs
	Workers int `yaml:"workers"`

	// LogLevel is one of debug, info, warn, error. Default: info
	LogLevel string `yaml:"log_level"`

	// MaxPayloadSize bounds a single external payload in bytes.
	// Default: 16 MiB
	MaxPayloadSize uint64 `yaml:"max_payload_size"`

	// Textures selects which payloads are written to the textures directory.
	Textures TexturesConfig `yaml:"textures"`
}

// TexturesConfig mirrors payload.Matcher.
type TexturesConfig struct {
	Parent  string `yaml:"parent"`
	Field   string `yaml:"field"`
	NameTag string `yaml:"name_tag"`
	Ext     string `yaml:"ext"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Mode:           scene.ModeStrict.String(),
		Compression:    payload.CompressionZstd.String(),
		Workers:        runtime.NumCPU(),
		LogLevel:       "info",
		MaxPayloadSize: payload.DefaultMaxPayloadSize,
		Textures: TexturesConfig{
			Parent:  payload.TextureMatcher.Parent,
			Field:   payload.TextureMatcher.Field,
			NameTag: payload.TextureMatcher.NameTag,
			Ext:     payload.TextureMatcher.Ext,
		},
	}
}

// LoadFile loads configuration from path over the defaults. An empty path
// returns the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// decode merges YAML data into c, rejecting unknown keys.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks every field parses.
func (c *Config) Validate() error {
	var errs []error
	if _, _, err := c.ByteOrder(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DecodeMode(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.PayloadCompression(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Textures.Ext != "" && c.Textures.NameTag == "" {
		errs = append(errs, errors.New("textures.ext requires textures.name_tag"))
	}
	return errors.Join(errs...)
}

// ByteOrder parses Endianness. It reports false when no override is set.
func (c *Config) ByteOrder() (scene.Endianness, bool, error) {
	if c.Endianness == "" {
		return 0, false, nil
	}
	e, err := scene.ParseEndianness(c.Endianness)
	return e, err == nil, err
}

// DecodeMode parses Mode.
func (c *Config) DecodeMode() (scene.Mode, error) {
	m, ok := scene.ParseMode(c.Mode)
	if !ok {
		return 0, fmt.Errorf("unknown mode %q", c.Mode)
	}
	return m, nil
}

// PayloadCompression parses Compression.
func (c *Config) PayloadCompression() (payload.Compression, error) {
	return payload.ParseCompression(c.Compression)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("unknown log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Matcher returns the texture rule as a payload matcher.
func (c *Config) Matcher() payload.Matcher {
	return payload.Matcher{
		Parent:  c.Textures.Parent,
		Field:   c.Textures.Field,
		NameTag: c.Textures.NameTag,
		Ext:     c.Textures.Ext,
	}
}
