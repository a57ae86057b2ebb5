// Package config loads the attrstore YAML configuration and validates it
// against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/attrstore/internal/attr"
)

//go:embed schema.cue
var schemaCUE string

// Config is the on-disk configuration. The json tags are what the CUE
// encoder sees.
type Config struct {
	Database Database `yaml:"database" json:"database"`
	Batch    Batch    `yaml:"batch" json:"batch"`
	Buffer   Buffer   `yaml:"buffer" json:"buffer"`
	Log      Log      `yaml:"log" json:"log"`
}

// Database locates the SQLite repository file. BusyTimeoutMS bounds how long
// a statement waits on a lock held by another process.
type Database struct {
	Path          string `yaml:"path" json:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" json:"busy_timeout_ms"`
}

// Batch controls insert batching. When Enabled, saves queue on the insert
// channels and are written once Size rows are pending or on explicit flush.
type Batch struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Size    int  `yaml:"size" json:"size"`
}

// Buffer sets how bulk attribute buffers treat rows that fail conversion:
// "fail-open" skips them, "fail-closed" aborts the lookup.
type Buffer struct {
	OnConversionError string `yaml:"on_conversion_error" json:"on_conversion_error"`
}

// Log is the base log level and the per-component overrides, keyed by the
// component names loggers are tagged with.
type Log struct {
	Level      string            `yaml:"level" json:"level"`
	Components map[string]string `yaml:"components" json:"components"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database: Database{Path: "attrstore.db", BusyTimeoutMS: 5000},
		Batch:    Batch{Enabled: true, Size: 1000},
		Buffer:   Buffer{OnConversionError: "fail-open"},
		Log:      Log{Level: "info", Components: map[string]string{}},
	}
}

// Load reads and validates the file at path. Keys missing from the file keep
// their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the embedded schema.
func (c Config) Validate() error {
	if c.Log.Components == nil {
		c.Log.Components = map[string]string{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// ConversionPolicy returns the buffer policy named by buffer.on_conversion_error.
func (c Config) ConversionPolicy() attr.ConversionPolicy {
	p, err := attr.ParseConversionPolicy(c.Buffer.OnConversionError)
	if err != nil {
		return attr.FailOpen
	}
	return p
}

// BusyTimeout returns database.busy_timeout_ms as a duration.
func (c Config) BusyTimeout() time.Duration {
	return time.Duration(c.Database.BusyTimeoutMS) * time.Millisecond
}
