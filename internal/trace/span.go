package trace

import (
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
	openSpans   atomic.Int64
)

// NextSeq returns the next global event sequence number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// NextSpanID returns a fresh span identifier. Zero is never returned and
// means "no parent".
func NextSpanID() uint64 { return spanCounter.Add(1) }

// OpenSpans reports how many recorded spans have begun but not ended. A
// heartbeat that keeps seeing the same non-zero count points at a stuck
// pass or a runaway interpreter call.
func OpenSpans() int64 { return openSpans.Load() }

// Span is one timed region: a file compile, a pass run, a lowered function.
// A Span for a disabled scope is inert; all methods are safe on it and on nil.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
	ended   bool
}

// Begin opens a span under parent (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{}
	}
	s := &Span{
		tracer:  t,
		id:      NextSpanID(),
		parent:  parent,
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	openSpans.Add(1)
	t.Emit(s.event(KindSpanBegin, s.started, ""))
	return s
}

func (s *Span) live() bool {
	return s != nil && s.tracer != nil && !s.ended
}

func (s *Span) event(kind Kind, at time.Time, detail string) *Event {
	ev := &Event{
		Time:     at,
		Seq:      NextSeq(),
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Detail:   detail,
	}
	if kind == KindSpanEnd {
		ev.Elapsed = at.Sub(s.started)
		ev.Extra = s.extra
	}
	return ev
}

// End closes the span and returns how long it was open. Only the first
// call emits.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	s.ended = true
	openSpans.Add(-1)
	now := time.Now()
	s.tracer.Emit(s.event(KindSpanEnd, now, detail))
	return now.Sub(s.started)
}

// Fail closes the span with err as its detail, or plainly when err is nil.
func (s *Span) Fail(err error) time.Duration {
	if err == nil {
		return s.End("")
	}
	return s.End("failed: " + err.Error())
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

// Count is WithExtra for the integer tallies passes and lowering report.
func (s *Span) Count(key string, n int) *Span {
	if !s.live() {
		return s
	}
	return s.WithExtra(key, strconv.Itoa(n))
}

// ID returns the span identifier, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}
