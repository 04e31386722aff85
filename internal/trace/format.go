package trace

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Format is the encoding of a written event.
type Format uint8

const (
	FormatAuto   Format = iota // decided by the output path
	FormatText                 // one indented line per event
	FormatNDJSON               // one JSON object per line
)

// ParseFormat accepts auto (or empty), text, ndjson and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
}

// processStart is the zero of text-format timestamps.
var processStart = time.Now()

// FormatEvent encodes ev, newline included.
func FormatEvent(ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return appendJSON(nil, ev)
	}
	return appendText(nil, ev)
}

type jsonEvent struct {
	Time     string            `json:"time"`
	Seq      uint64            `json:"seq"`
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	SpanID   uint64            `json:"span_id,omitempty"`
	ParentID uint64            `json:"parent_id,omitempty"`
	Name     string            `json:"name"`
	Detail   string            `json:"detail,omitempty"`
	Micros   int64             `json:"dur_us,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

func appendJSON(buf []byte, ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Time:     ev.Time.Format(time.RFC3339Nano),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		Name:     ev.Name,
		Detail:   ev.Detail,
		Micros:   ev.Elapsed.Microseconds(),
		Extra:    ev.Extra,
	})
	if err != nil {
		// Only string maps and scalars go in; this cannot fail.
		panic(err)
	}
	return append(append(buf, data...), '\n')
}

var marks = [...]string{KindSpanBegin: "→ ", KindSpanEnd: "← ", KindPoint: "• ", KindHeartbeat: "♡ "}

// appendText writes
//
//	[   12.345ms]   ← CSE (detail) +0.120ms {k=v, ...}
//
// indented two spaces per scope below the driver.
func appendText(buf []byte, ev *Event) []byte {
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	buf = fmt.Appendf(buf, "[%9.3fms] ", ms(ev.Time.Sub(processStart)))
	if ev.Scope > ScopeDriver {
		buf = append(buf, strings.Repeat("  ", int(ev.Scope-ScopeDriver))...)
	}
	if int(ev.Kind) < len(marks) {
		buf = append(buf, marks[ev.Kind]...)
	}
	buf = append(buf, ev.Name...)
	if ev.Detail != "" {
		buf = fmt.Appendf(buf, " (%s)", ev.Detail)
	}
	if ev.Kind == KindSpanEnd {
		buf = fmt.Appendf(buf, " +%.3fms", ms(ev.Elapsed))
	}
	if len(ev.Extra) > 0 {
		pairs := make([]string, 0, len(ev.Extra))
		for _, k := range slices.Sorted(maps.Keys(ev.Extra)) {
			pairs = append(pairs, k+"="+ev.Extra[k])
		}
		buf = fmt.Appendf(buf, " {%s}", strings.Join(pairs, ", "))
	}
	return append(buf, '\n')
}
