package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"sysc/internal/config"
	"sysc/internal/passes"
)

func write(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if !slices.Equal(cfg.Pipeline.Passes, passes.DefaultOrder) {
		t.Errorf("passes = %v", cfg.Pipeline.Passes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	cfg.Pipeline.Passes[0] = "changed"
	if passes.DefaultOrder[0] == "changed" {
		t.Errorf("Default shares the registry order slice")
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := write(t, t.TempDir(), `
[pipeline]
passes = ["cse", "dce"]
repeat = 2

[output]
format = "llvm"
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(cfg.Pipeline.Passes, []string{"cse", "dce"}) || cfg.Pipeline.Repeat != 2 {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	// Absent keys keep their defaults.
	if !cfg.Pipeline.Verify || cfg.Trace.Level != "off" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Output.Format != config.FormatLLVM || cfg.Path != path {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name, body string
		want       error
	}{
		{"unknown pass", "[pipeline]\npasses = [\"inline\"]\n", passes.ErrUnknownPass},
		{"negative repeat", "[pipeline]\nrepeat = -1\n", config.ErrInvalid},
		{"unknown key", "[pipeline]\nrepeats = 3\n", config.ErrInvalid},
		{"bad format", "[output]\nformat = \"asm\"\n", config.ErrInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := write(t, t.TempDir(), tc.body)
			if _, err := config.Load(path); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
	path := write(t, t.TempDir(), "[trace]\nlevel = \"loud\"\n")
	if _, err := config.Load(path); err == nil {
		t.Errorf("bad trace level accepted")
	}
	path = write(t, t.TempDir(), "[pipeline\n")
	if _, err := config.Load(path); err == nil {
		t.Errorf("malformed TOML accepted")
	}
}

func TestFindAndDiscover(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}
	if cfg, err := config.Discover(deep); err != nil || cfg.Path != "" {
		t.Fatalf("without a file: %+v, %v", cfg, err)
	}

	want := write(t, root, "[pipeline]\nverify = false\n")
	got, ok, err := config.Find(deep)
	if err != nil || !ok {
		t.Fatalf("Find: %v %v", ok, err)
	}
	if got != want {
		t.Errorf("found %s, want %s", got, want)
	}
	cfg, err := config.Discover(deep)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pipeline.Verify {
		t.Errorf("verify not overridden")
	}
}
