package ui

import (
	"errors"
	"math"
	"strings"
	"testing"

	"sysc/internal/driver"
)

func TestProgressModel_Events(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("opt", []string{"a.json", "b.json"}, events).(*progressModel)

	m.apply(driver.Event{File: "a.json", Stage: driver.StageOptimize, Status: driver.StatusWorking})
	m.apply(driver.Event{File: "b.json", Status: driver.StatusError, Err: errors.New("no such file")})
	m.apply(driver.Event{File: "elsewhere.json", Status: driver.StatusDone})

	if got := m.percent(); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("percent = %v, want 0.8", got)
	}
	if m.items[0].label() != "optimizing" || m.items[1].label() != "error" {
		t.Errorf("items = %+v", m.items)
	}
	view := m.View()
	for _, want := range []string{"opt (optimizing)", "a.json", "no such file", "1/2 files", "1 failed"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}

	m.apply(driver.Event{File: "a.json", Status: driver.StatusDone})
	if got := m.percent(); got != 1 {
		t.Errorf("percent = %v after both finished", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("internal/driver/compile.go", 12); !strings.HasPrefix(got, "intern") || !strings.HasSuffix(got, "...") || len(got) > 12 {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 12); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}
