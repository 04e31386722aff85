package trace

import "time"

// Kind is what an event marks.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{KindSpanBegin: "begin", KindSpanEnd: "end", KindPoint: "point", KindHeartbeat: "heartbeat"}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of a span. Coarser scopes have lower values,
// and Level.ShouldEmit relies on that order.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // one input file
	ScopePass                    // lowering or one optimization pass run
	ScopeFunc                    // one function lowered or interpreted
	ScopeNode                    // one statement
)

var scopeNames = [...]string{ScopeDriver: "driver", ScopePass: "pass", ScopeFunc: "func", ScopeNode: "node"}

func (s Scope) String() string {
	if s > 0 && int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one record handed to a Tracer.
type Event struct {
	Time     time.Time
	Seq      uint64 // global order across goroutines
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for root spans
	Name     string // "compile:sum.json", "CSE", "func:main", "run:main"
	Detail   string
	Elapsed  time.Duration // span length, on end events
	Extra    map[string]string
}

// Point records an instant event under parent, for things that happen
// inside a span but take no time of their own.
func Point(t Tracer, scope Scope, parent uint64, name, detail string) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		Name:     name,
		Detail:   detail,
	})
}
