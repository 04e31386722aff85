package trace

import (
	"errors"
	"io"
	"sync"
)

// StreamTracer writes every admitted event as soon as it arrives.
type StreamTracer struct {
	gate
	mu     sync.Mutex
	w      io.Writer
	format Format
}

func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{gate: gate(level), w: w, format: ResolveFormat(format, "")}
}

// Emit writes ev. Write errors are dropped: tracing never fails a compile.
func (t *StreamTracer) Emit(ev *Event) {
	if !t.admits(ev) {
		return
	}
	data := FormatEvent(ev, t.format)
	t.mu.Lock()
	_, _ = t.w.Write(data)
	t.mu.Unlock()
}

// Flush flushes writers that buffer, such as *bufio.Writer.
func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		t.mu.Lock()
		defer t.mu.Unlock()
		return f.Flush()
	}
	return nil
}

// Close flushes and closes the destination, leaving stderr and stdout open.
func (t *StreamTracer) Close() error {
	return errors.Join(t.Flush(), closeWriter(t.w))
}

// MultiTracer hands every event to each of its tracers.
type MultiTracer struct {
	gate
	tracers []Tracer
}

func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{gate: gate(level), tracers: tracers}
}

// Emit gives each tracer its own copy, since tracers may keep or mutate it.
func (t *MultiTracer) Emit(ev *Event) {
	for _, tr := range t.tracers {
		cp := *ev
		tr.Emit(&cp)
	}
}

func (t *MultiTracer) Flush() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Flush())
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Close() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Close())
	}
	return errors.Join(errs...)
}
