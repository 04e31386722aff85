// Package observ measures how long each part of a run takes.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

type phase struct {
	name  string
	start time.Time
	dur   time.Duration
	note  string
}

// Timer records named phases: file loads, lowering, every pass run, the
// post-dominator analysis. It is safe for concurrent use so that the files
// of one CompileAll can share it. A nil *Timer records nothing.
type Timer struct {
	mu     sync.Mutex
	phases []phase
}

func NewTimer() *Timer { return &Timer{} }

// Begin opens a phase and returns the handle End takes.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, phase{name: name, start: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase with handle idx. Unknown handles are ignored.
func (t *Timer) End(idx int, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	t.phases[idx].dur = time.Since(t.phases[idx].start)
	t.phases[idx].note = note
}

// PhaseReport is one line of a Report. Phases with the same name, such as a
// pass run once per pipeline round, are folded into one entry.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Count      int     `json:"count"`
	Note       string  `json:"note,omitempty"` // notes of folded phases, "; "-joined
}

type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report folds the recorded phases by name, in order of first appearance.
func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var rep Report
	at := make(map[string]int, len(t.phases))
	var total time.Duration
	for _, p := range t.phases {
		total += p.dur
		i, ok := at[p.name]
		if !ok {
			i = len(rep.Phases)
			at[p.name] = i
			rep.Phases = append(rep.Phases, PhaseReport{Name: p.name})
		}
		r := &rep.Phases[i]
		r.Count++
		r.DurationMS += millis(p.dur)
		if p.note != "" {
			if r.Note != "" {
				r.Note += "; "
			}
			r.Note += p.note
		}
	}
	rep.TotalMS = millis(total)
	return rep
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

const nameColumn = 28

// Summary renders the report as an aligned table. Column widths are
// measured in display cells so wide file names keep the columns straight.
func (t *Timer) Summary() string {
	rep := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	row := func(name string, ms float64, note string) {
		fmt.Fprintf(&sb, "  %s %9.2f ms", column(name, nameColumn), ms)
		if note != "" {
			sb.WriteString("  // " + note)
		}
		sb.WriteByte('\n')
	}
	for _, p := range rep.Phases {
		name := p.Name
		if p.Count > 1 {
			name = fmt.Sprintf("%s x%d", p.Name, p.Count)
		}
		row(name, p.DurationMS, p.Note)
	}
	row("total", rep.TotalMS, "")
	return sb.String()
}

func column(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "...")
	}
	return runewidth.FillRight(s, width)
}
