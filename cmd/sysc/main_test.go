package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sysc/internal/ast"
	"sysc/internal/astio"
	tk "sysc/internal/testkit"
)

type fixture struct {
	dir, config string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "sysc.toml")
	if err := os.WriteFile(cfg, []byte("[pipeline]\nverify = true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return fixture{dir: dir, config: cfg}
}

func (f fixture) unit(t *testing.T, name string, tu *ast.TranslationUnit) string {
	t.Helper()
	var buf bytes.Buffer
	if err := astio.Encode(&buf, tu, astio.JSON); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the CLI with args and returns stdout, stderr and the error.
func (f fixture) execute(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--color", "off", "--ui", "off", "--config", f.config}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestOptCommand(t *testing.T) {
	f := newFixture(t)
	path := f.unit(t, "clamp.json", tk.ClampProgram())
	out, errOut, err := f.execute("opt", "--passes", "simplifycfg", "--format", "llvm", path)
	if err != nil {
		t.Fatalf("opt: %v\n%s", err, errOut)
	}
	if !strings.Contains(out, "define i32 @clamp(i32 %n)") {
		t.Errorf("stdout:\n%s", out)
	}
	if !strings.Contains(errOut, "SimplifyCFG: 2 unreachable blocks removed") {
		t.Errorf("stderr:\n%s", errOut)
	}
}

func TestEmitCommand_Directory(t *testing.T) {
	f := newFixture(t)
	f.unit(t, "clamp.json", tk.ClampProgram())
	f.unit(t, "sum.json", tk.SumProgram())
	outPath := filepath.Join(t.TempDir(), "out.ir")
	if _, _, err := f.execute("emit", "-o", outPath, f.dir); err == nil {
		t.Errorf("-o with two inputs accepted")
	}
	out, errOut, err := f.execute("emit", "-o", "-", f.dir)
	if err != nil {
		t.Fatalf("emit: %v\n%s", err, errOut)
	}
	clamp, sum := strings.Index(out, "; module clamp.c"), strings.Index(out, "; module sum.c")
	if clamp < 0 || sum < clamp {
		t.Errorf("stdout:\n%s", out)
	}
}

func TestOptCommand_Failure(t *testing.T) {
	f := newFixture(t)
	missing := filepath.Join(f.dir, "missing.astpack")
	_, errOut, err := f.execute("opt", missing)
	if !errors.Is(err, errFailed) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(errOut, "error IO4001") {
		t.Errorf("stderr:\n%s", errOut)
	}
}

func TestOptCommand_GoldenDiagnostics(t *testing.T) {
	f := newFixture(t)
	path := f.unit(t, "clamp.json", tk.ClampProgram())
	_, errOut, err := f.execute("opt", "--passes", "simplifycfg", "--diagnostics-format", "golden", path)
	if err != nil {
		t.Fatalf("opt: %v\n%s", err, errOut)
	}
	// The second round finds nothing and stops the pipeline.
	want := "info OPT2008 - Pipeline: 2 rewrites in 2 rounds\n" +
		"info OPT2009 - SimplifyCFG: 0 unreachable blocks removed\n" +
		"info OPT2009 - SimplifyCFG: 2 unreachable blocks removed\n"
	if errOut != want {
		t.Errorf("stderr:\n%s\nwant:\n%s", errOut, want)
	}
}

func TestOptCommand_RepeatedRuns(t *testing.T) {
	f := newFixture(t)
	path := f.unit(t, "clamp.json", tk.ClampProgram())
	args := []string{"opt", "--passes", "simplifycfg", "--diagnostics-format", "golden", path}
	_, first, err := f.execute(args...)
	if err != nil {
		t.Fatalf("opt: %v\n%s", err, first)
	}
	_, second, err := f.execute(args...)
	if err != nil {
		t.Fatalf("opt: %v\n%s", err, second)
	}
	if first != second {
		t.Errorf("second run differs:\n%s\nfirst:\n%s", second, first)
	}
	if n := strings.Count(second, "SimplifyCFG: 2 unreachable"); n != 1 {
		t.Errorf("SimplifyCFG ran %d times per round:\n%s", n, second)
	}
	// Flags from earlier runs do not carry over.
	_, third, err := f.execute("opt", path)
	if err != nil {
		t.Fatalf("opt: %v\n%s", err, third)
	}
	if strings.Contains(third, "info OPT2009 - ") {
		t.Errorf("golden format leaked into a pretty run:\n%s", third)
	}
}

func TestRunCommand(t *testing.T) {
	f := newFixture(t)
	path := f.unit(t, "sum.json", tk.SumProgram())
	t.Cleanup(func() { exitCode = 0 })
	out, errOut, err := f.execute("run", "--entry", "sum", path, "--", "5")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, errOut)
	}
	if out != "7\n" || exitCode != 7 {
		t.Errorf("stdout = %q, exit code %d", out, exitCode)
	}
	if _, _, err := f.execute("run", "--entry", "sum", path, "--", "five"); err == nil {
		t.Errorf("non-integer argument accepted")
	}
}

func TestPostdomCommand(t *testing.T) {
	f := newFixture(t)
	path := f.unit(t, "clamp.json", tk.ClampProgram())
	out, errOut, err := f.execute("postdom", "--opt", path)
	if err != nil {
		t.Fatalf("postdom: %v\n%s", err, errOut)
	}
	if !strings.HasPrefix(out, "clamp: (") || !strings.Contains(out, "  entry: {entry}") {
		t.Errorf("stdout:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	f := newFixture(t)
	out, _, err := f.execute("version", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"tool": "sysc"`) || !strings.Contains(out, `"ast_accepts": "^1.0"`) || !strings.Contains(out, `"dse"`) {
		t.Errorf("stdout:\n%s", out)
	}
}
