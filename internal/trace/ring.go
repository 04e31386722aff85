package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the most recent events in memory so that a failed run
// can dump what led up to the failure without streaming everything.
type RingTracer struct {
	gate
	mu    sync.RWMutex
	buf   []Event
	next  int // slot the next event goes to
	count int // events stored, at most len(buf)
}

// DefaultRingSize is used when NewRingTracer is given a non-positive size.
const DefaultRingSize = 4096

func NewRingTracer(size int, level Level) *RingTracer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingTracer{gate: gate(level), buf: make([]Event, size)}
}

// Emit stores ev, overwriting the oldest event once the ring is full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.admits(ev) {
		return
	}
	t.mu.Lock()
	t.buf[t.next] = *ev
	t.next = (t.next + 1) % len(t.buf)
	if t.count < len(t.buf) {
		t.count++
	}
	t.mu.Unlock()
}

// Snapshot copies the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Event, 0, t.count)
	start := (t.next - t.count + len(t.buf)) % len(t.buf)
	for i := range t.count {
		out = append(out, t.buf[(start+i)%len(t.buf)])
	}
	return out
}

// Ended returns the end events of spans called name, oldest first.
func (t *RingTracer) Ended(name string) []Event {
	var out []Event
	for _, ev := range t.Snapshot() {
		if ev.Kind == KindSpanEnd && ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// Dump writes the stored events to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error { return nil }

func (t *RingTracer) Close() error { return nil }
