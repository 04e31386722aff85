package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer receives events. Implementations must be safe for concurrent use:
// CompileAll traces several files at once.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// gate carries the level shared by every recording tracer.
type gate Level

func (g gate) Level() Level  { return Level(g) }
func (g gate) Enabled() bool { return Level(g) > LevelOff }

// admits reports whether ev passes the level. Heartbeats always do.
func (g gate) admits(ev *Event) bool {
	return ev.Kind == KindHeartbeat || Level(g).ShouldEmit(ev.Scope)
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop discards everything. Contexts without a tracer yield Nop.
var Nop Tracer = nopTracer{}

// Config selects and parameterizes a tracer.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format    // FormatAuto picks by OutputPath extension
	Output     io.Writer // overrides OutputPath when set
	OutputPath string    // "-" or empty for stderr
	RingSize   int
	Heartbeat  time.Duration
}

// New builds the tracer described by cfg. A disabled level yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	format := ResolveFormat(cfg.Format, cfg.OutputPath)
	open := func() (io.Writer, error) {
		if cfg.Output != nil {
			return cfg.Output, nil
		}
		return OpenOutput(cfg.OutputPath)
	}
	switch cfg.Mode {
	case ModeRing:
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	case ModeStream, ModeBoth:
		w, err := open()
		if err != nil {
			return nil, err
		}
		stream := NewStreamTracer(w, cfg.Level, format)
		if cfg.Mode == ModeStream {
			return stream, nil
		}
		return NewMultiTracer(cfg.Level, stream, NewRingTracer(cfg.RingSize, cfg.Level)), nil
	}
	return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
}

// ResolveFormat turns FormatAuto into NDJSON for .ndjson and .json paths
// and text otherwise.
func ResolveFormat(f Format, path string) Format {
	if f != FormatAuto {
		return f
	}
	if strings.HasSuffix(path, ".ndjson") || strings.HasSuffix(path, ".json") {
		return FormatNDJSON
	}
	return FormatText
}

// OpenOutput opens a trace destination: stderr for "" and "-", otherwise
// the named file, truncated.
func OpenOutput(path string) (io.Writer, error) {
	if path == "" || path == "-" {
		return os.Stderr, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}

// closeWriter closes w unless it is a standard stream.
func closeWriter(w io.Writer) error {
	if w == os.Stderr || w == os.Stdout {
		return nil
	}
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var errNoRing = errors.New("trace: tracer keeps no ring")

// DumpRecent writes the events held by the ring of t, either t itself or
// the ring half of a "both" tracer.
func DumpRecent(t Tracer, w io.Writer, format Format) error {
	switch t := t.(type) {
	case *RingTracer:
		return t.Dump(w, format)
	case *MultiTracer:
		for _, inner := range t.tracers {
			if ring, ok := inner.(*RingTracer); ok {
				return ring.Dump(w, format)
			}
		}
	}
	return errNoRing
}
