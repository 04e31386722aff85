package trace_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sysc/internal/trace"
)

func TestRingTracer_SpanPair(t *testing.T) {
	ring := trace.NewRingTracer(16, trace.LevelPhase)
	span := trace.Begin(ring, trace.ScopePass, "cse", 0)
	span.WithExtra("rewrites", "3").End("done")

	events := ring.Snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != trace.KindSpanBegin || events[1].Kind != trace.KindSpanEnd {
		t.Fatalf("unexpected kinds: %v %v", events[0].Kind, events[1].Kind)
	}
	if events[1].Extra["rewrites"] != "3" || events[1].Detail != "done" {
		t.Fatalf("end event lost payload: %+v", events[1])
	}
}

func TestLevel_FiltersScopes(t *testing.T) {
	ring := trace.NewRingTracer(16, trace.LevelPhase)
	trace.Begin(ring, trace.ScopeFunc, "func:main", 0).End("")
	if n := len(ring.Snapshot()); n != 0 {
		t.Fatalf("phase level recorded %d func events", n)
	}

	detail := trace.NewRingTracer(16, trace.LevelDetail)
	trace.Begin(detail, trace.ScopeFunc, "func:main", 0).End("")
	if n := len(detail.Snapshot()); n != 2 {
		t.Fatalf("detail level recorded %d func events, want 2", n)
	}
}

func TestRingTracer_Wraps(t *testing.T) {
	ring := trace.NewRingTracer(3, trace.LevelDebug)
	for range 5 {
		trace.Begin(ring, trace.ScopeDriver, "file", 0).End("")
	}
	events := ring.Snapshot()
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Fatalf("snapshot out of order at %d", i)
		}
	}
}

func TestStreamTracer_Text(t *testing.T) {
	var buf bytes.Buffer
	st := trace.NewStreamTracer(&buf, trace.LevelPhase, trace.FormatText)
	span := trace.Begin(st, trace.ScopeDriver, "compile", 0)
	inner := trace.Begin(st, trace.ScopePass, "dce", span.ID())
	inner.WithExtra("b", "2").WithExtra("a", "1").End("")
	span.End("ok")

	out := buf.String()
	if !strings.Contains(out, "→ compile") || !strings.Contains(out, "← compile (ok)") {
		t.Fatalf("missing driver span:\n%s", out)
	}
	if !strings.Contains(out, "  ← dce +") || !strings.Contains(out, "ms {a=1, b=2}\n") {
		t.Fatalf("missing indented pass span with sorted extras:\n%s", out)
	}
}

func TestMultiTracer_FansOut(t *testing.T) {
	a := trace.NewRingTracer(8, trace.LevelPhase)
	b := trace.NewRingTracer(8, trace.LevelPhase)
	multi := trace.NewMultiTracer(trace.LevelPhase, a, b)
	trace.Begin(multi, trace.ScopePass, "lower", 0).End("")
	if len(a.Snapshot()) != 2 || len(b.Snapshot()) != 2 {
		t.Fatalf("fan-out failed: %d %d", len(a.Snapshot()), len(b.Snapshot()))
	}
}

func TestContext_DefaultsToNop(t *testing.T) {
	if trace.FromContext(context.Background()) != trace.Nop {
		t.Fatalf("expected Nop tracer")
	}
	ring := trace.NewRingTracer(4, trace.LevelPhase)
	ctx := trace.WithTracer(context.Background(), ring)
	if trace.FromContext(ctx) != trace.Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
}

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want trace.Level
	}{
		{"off", trace.LevelOff},
		{"phase", trace.LevelPhase},
		{"DETAIL", trace.LevelDetail},
		{"debug", trace.LevelDebug},
	} {
		got, err := trace.ParseLevel(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tc.in, got, err)
		}
	}
	if _, err := trace.ParseLevel("loud"); err == nil {
		t.Errorf("expected error for unknown level")
	}
}

func TestStart_NestsUnderContextSpan(t *testing.T) {
	ring := trace.NewRingTracer(16, trace.LevelDetail)
	ctx := trace.WithTracer(context.Background(), ring)

	outer, ctx := trace.Start(ctx, trace.ScopeDriver, "compile:a.json")
	// Node scope is off at detail level; the function span still hangs
	// off the driver span.
	node, nodeCtx := trace.Start(ctx, trace.ScopeNode, "stmt")
	if node.ID() != 0 || nodeCtx != ctx {
		t.Fatalf("inert span changed the context")
	}
	inner, _ := trace.Start(nodeCtx, trace.ScopeFunc, "run:main")
	inner.Count("steps", 12).Fail(errors.New("step limit"))
	node.End("")
	outer.End("")
	outer.End("again")

	ended := ring.Ended("run:main")
	if len(ended) != 1 {
		t.Fatalf("run:main ended %d times", len(ended))
	}
	ev := ended[0]
	if ev.ParentID != outer.ID() || ev.Extra["steps"] != "12" || ev.Detail != "failed: step limit" {
		t.Errorf("end event = %+v", ev)
	}
	if n := len(ring.Ended("compile:a.json")); n != 1 {
		t.Errorf("double End emitted %d events", n)
	}
}

func TestOpenSpans(t *testing.T) {
	ring := trace.NewRingTracer(8, trace.LevelPhase)
	before := trace.OpenSpans()
	span := trace.Begin(ring, trace.ScopePass, "dce", 0)
	trace.Begin(ring, trace.ScopeFunc, "func:f", 0) // filtered, not counted
	if got := trace.OpenSpans(); got != before+1 {
		t.Fatalf("open = %d, want %d", got, before+1)
	}
	span.End("")
	if got := trace.OpenSpans(); got != before {
		t.Fatalf("open after End = %d, want %d", got, before)
	}
}

func TestHeartbeat(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelPhase)
	if trace.StartHeartbeat(ring, 0) != nil || trace.StartHeartbeat(trace.Nop, time.Millisecond) != nil {
		t.Fatalf("heartbeat started without a live tracer and interval")
	}
	span := trace.Begin(ring, trace.ScopePass, "cse", 0)
	hb := trace.StartHeartbeat(ring, time.Millisecond)
	deadline := time.Now().Add(5 * time.Second)
	var beat *trace.Event
	for beat == nil && time.Now().Before(deadline) {
		for _, ev := range ring.Snapshot() {
			if ev.Kind == trace.KindHeartbeat {
				beat = &ev
				break
			}
		}
		time.Sleep(time.Millisecond)
	}
	hb.Stop()
	hb.Stop()
	span.End("")
	if beat == nil {
		t.Fatal("no heartbeat recorded")
	}
	if beat.Detail != "#1" || beat.Extra["open"] == "" || beat.Extra["open"] == "0" {
		t.Errorf("heartbeat = %+v", *beat)
	}
}

func TestNew_BothKeepsARing(t *testing.T) {
	var live, dump bytes.Buffer
	tracer, err := trace.New(trace.Config{
		Level:  trace.LevelPhase,
		Mode:   trace.ModeBoth,
		Output: &live,
		Format: trace.FormatNDJSON,
	})
	if err != nil {
		t.Fatal(err)
	}
	trace.Begin(tracer, trace.ScopeDriver, "compile:sum.json", 0).End("")
	if err := trace.DumpRecent(tracer, &dump, trace.FormatNDJSON); err != nil {
		t.Fatal(err)
	}
	if live.String() != dump.String() || strings.Count(dump.String(), "\n") != 2 {
		t.Errorf("live:\n%s\ndump:\n%s", live.String(), dump.String())
	}
	if err := trace.DumpRecent(trace.NewStreamTracer(&live, trace.LevelPhase, trace.FormatText), &dump, trace.FormatText); err == nil {
		t.Errorf("stream tracer dumped")
	}
	if tr, _ := trace.New(trace.Config{Level: trace.LevelOff}); tr != trace.Nop {
		t.Errorf("off level built %T", tr)
	}
}

func TestParseMode(t *testing.T) {
	for _, in := range []string{"stream", "Ring", "BOTH"} {
		m, err := trace.ParseMode(in)
		if err != nil || !strings.EqualFold(m.String(), in) {
			t.Errorf("ParseMode(%q) = %v, %v", in, m, err)
		}
	}
	if _, err := trace.ParseMode("disk"); err == nil {
		t.Errorf("expected error for unknown mode")
	}
}
