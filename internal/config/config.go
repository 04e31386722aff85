// Package config loads sysc.toml, the per-project pipeline configuration.
//
//	[pipeline]
//	passes = ["algebraic", "strength", "cse", "dse", "dce", "simplifycfg"]
//	repeat = 0       # 0: until nothing changes
//	verify = true
//
//	[trace]
//	level  = "phase" # off|error|phase|detail|debug
//	mode   = "stream" # stream|ring
//	output = "-"      # "-" for stderr, or a file path
//	format = "text"   # text|ndjson
//
//	[output]
//	format = "ir"    # ir|llvm
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"sysc/internal/passes"
	"sysc/internal/trace"
)

// FileName is the configuration file looked up by Find.
const FileName = "sysc.toml"

// Config is the decoded sysc.toml.
type Config struct {
	Pipeline Pipeline `toml:"pipeline"`
	Trace    Trace    `toml:"trace"`
	Output   Output   `toml:"output"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

type Pipeline struct {
	Passes []string `toml:"passes"`
	Repeat int      `toml:"repeat"`
	Verify bool     `toml:"verify"`
}

type Trace struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
	Format string `toml:"format"`
}

type Output struct {
	Format string `toml:"format"`
}

// Output formats.
const (
	FormatIR   = "ir"
	FormatLLVM = "llvm"
)

// ErrInvalid marks a configuration that decodes but makes no sense.
var ErrInvalid = errors.New("invalid configuration")

// Default returns the configuration used without a sysc.toml.
func Default() Config {
	return Config{
		Pipeline: Pipeline{Passes: slices.Clone(passes.DefaultOrder), Repeat: 0, Verify: true},
		Trace:    Trace{Level: "off", Mode: "stream", Output: "-", Format: "text"},
		Output:   Output{Format: FormatIR},
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys %s: %w", path, strings.Join(keys, ", "), ErrInvalid)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that TOML typing cannot.
func (c Config) Validate() error {
	var errs []error
	for _, name := range c.Pipeline.Passes {
		if _, ok := passes.Lookup(name); !ok {
			errs = append(errs, fmt.Errorf("pipeline.passes: %q: %w", name, passes.ErrUnknownPass))
		}
	}
	if c.Pipeline.Repeat < 0 {
		errs = append(errs, fmt.Errorf("pipeline.repeat: %d: %w", c.Pipeline.Repeat, ErrInvalid))
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		errs = append(errs, fmt.Errorf("trace.level: %w", err))
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		errs = append(errs, fmt.Errorf("trace.mode: %w", err))
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		errs = append(errs, fmt.Errorf("trace.format: %w", err))
	}
	switch c.Output.Format {
	case FormatIR, FormatLLVM:
	default:
		errs = append(errs, fmt.Errorf("output.format: %q: %w", c.Output.Format, ErrInvalid))
	}
	return errors.Join(errs...)
}

// Find walks up from startDir to locate sysc.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest sysc.toml above startDir, or the defaults
// when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}
