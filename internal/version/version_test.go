package version

import (
	"testing"

	"github.com/fatih/color"
)

func withNoColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColored_PlainWhenDisabled(t *testing.T) {
	withNoColor(t)
	orig := Version
	t.Cleanup(func() { Version = orig })

	for _, v := range []string{"0.3.0-dev", "1.2.3", "1.2.3-rc.1+build.123", "weird"} {
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored() = %q, want %q", got, v)
		}
	}
}

func TestBanner(t *testing.T) {
	withNoColor(t)
	origV, origC, origD := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origV, origC, origD })

	tests := []struct {
		commit, date, want string
	}{
		{"", "", "sysc 1.0.0"},
		{"abc123", "", "sysc 1.0.0 (abc123)"},
		{"abc123", "2024-01-15", "sysc 1.0.0 (abc123, 2024-01-15)"},
		{"", "2024-01-15", "sysc 1.0.0 (2024-01-15)"},
	}
	Version = "1.0.0"
	for _, tt := range tests {
		GitCommit, BuildDate = tt.commit, tt.date
		if got := Banner(); got != tt.want {
			t.Errorf("Banner() = %q, want %q", got, tt.want)
		}
	}
}
