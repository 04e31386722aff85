package diag

import (
	"bytes"
	"testing"
)

func TestFormatGoldenDiagnostics(t *testing.T) {
	diags := []Diagnostic{
		{
			Severity: SevError,
			Code:     LowUnsupportedExpr,
			Message:  "first line\nsecond",
			Primary:  Location{File: "a.json", Func: "main", Block: "entry"},
			Notes: []Note{
				{Where: Location{File: "a.json", Func: "main"}, Msg: "note line"},
			},
		},
		{
			Severity: SevInfo,
			Code:     OptCommonSubexpression,
			Message:  "CommonSubexpression: 2 instructions removed",
		},
	}

	expected := "info OPT2002 - CommonSubexpression: 2 instructions removed\n" +
		"note LOW1002 a.json:main note line\n" +
		"error LOW1002 a.json:main:entry first line second"

	if got := FormatGoldenDiagnostics(diags, true); got != expected {
		t.Fatalf("unexpected golden diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestBag_LimitAndSort(t *testing.T) {
	bag := NewBag(2)
	r := BagReporter{Bag: bag}
	ReportInfo(r, OptDeadStore, Location{Func: "b"}, "b").Emit()
	ReportError(r, LowUnresolvedName, Location{Func: "a"}, "a").Emit()
	ReportInfo(r, OptDeadStore, Location{Func: "c"}, "dropped").Emit()
	if len(bag.Items()) != 2 || bag.Dropped() != 1 {
		t.Fatalf("bag holds %d, dropped %d", len(bag.Items()), bag.Dropped())
	}
	if !bag.HasErrors() {
		t.Fatalf("expected errors")
	}
	bag.Sort()
	if got := bag.Messages(); got[0] != "a" || got[1] != "b" {
		t.Fatalf("sorted messages = %v", got)
	}
	bag.Force(Diagnostic{Severity: SevInfo, Code: ObsTimings, Message: "timings"})
	if len(bag.Filter(ObsTimings)) != 1 || bag.Dropped() != 1 {
		t.Fatalf("Force did not bypass the limit")
	}
}

func TestWriterReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewWriterReporter(&buf, SevInfo)
	ReportInfo(r, OptDeadInstruction, Location{}, "DeadInstruction: 3 instructions removed").Emit()
	ReportWarning(r, OptVerifyFailed, Location{Func: "f"}, "bad").WithNote(Location{}, "after cse").Emit()
	want := "DeadInstruction: 3 instructions removed\nwarning OPT2006 f: bad\n  note: after cse\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	for range 3 {
		r.Report(LowUnresolvedName, SevError, Location{Func: "f"}, "x", nil)
	}
	if n := len(bag.Items()); n != 1 {
		t.Fatalf("bag holds %d, want 1", n)
	}
}
