package observ

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestTimer_ReportOrder(t *testing.T) {
	tm := NewTimer()
	a := tm.Begin("lower")
	tm.End(a, "3 funcs")
	b := tm.Begin("passes")
	tm.End(b, "")
	tm.End(42, "ignored")

	rep := tm.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("got %d phases, want 2", len(rep.Phases))
	}
	if rep.Phases[0].Name != "lower" || rep.Phases[0].Note != "3 funcs" {
		t.Fatalf("unexpected first phase: %+v", rep.Phases[0])
	}
}

func TestTimer_SummaryAlignsWideNames(t *testing.T) {
	tm := NewTimer()
	tm.End(tm.Begin("lower:файл.json"), "")
	tm.End(tm.Begin("lower:数据.json"), "")
	tm.End(tm.Begin(strings.Repeat("x", 60)), "")

	lines := strings.Split(strings.TrimRight(tm.Summary(), "\n"), "\n")
	if lines[0] != "timings:" {
		t.Fatalf("header = %q", lines[0])
	}
	want := -1
	for _, line := range lines[1:] {
		idx := strings.Index(line, " ms")
		w := runewidth.StringWidth(line[:idx])
		if want < 0 {
			want = w
		}
		if w != want {
			t.Fatalf("misaligned line %q: width %d, want %d", line, w, want)
		}
	}
}

func TestTimer_NilSafe(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	if len(tm.Report().Phases) != 0 {
		t.Fatalf("nil timer reported phases")
	}
}

func TestTimer_FoldsRepeatedPhases(t *testing.T) {
	tm := NewTimer()
	for _, note := range []string{"4 rewrites", "", "0 rewrites"} {
		tm.End(tm.Begin("CSE"), note)
	}
	tm.End(tm.Begin("postdom"), "1 functions")

	rep := tm.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("phases = %+v", rep.Phases)
	}
	cse := rep.Phases[0]
	if cse.Name != "CSE" || cse.Count != 3 || cse.Note != "4 rewrites; 0 rewrites" {
		t.Errorf("folded phase = %+v", cse)
	}
	if !strings.Contains(tm.Summary(), "CSE x3") {
		t.Errorf("summary:\n%s", tm.Summary())
	}
}
