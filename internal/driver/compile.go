// Package driver wires the compiler stages together for the CLI: it loads
// interchange files, lowers them, runs the pass pipeline and analyses, and
// writes the requested output.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sysc/internal/analysis"
	"sysc/internal/ast"
	"sysc/internal/astio"
	"sysc/internal/config"
	"sysc/internal/diag"
	"sysc/internal/emit"
	"sysc/internal/ir"
	"sysc/internal/llvmexport"
	"sysc/internal/observ"
	"sysc/internal/passes"
	"sysc/internal/trace"
)

// Options controls one compilation.
type Options struct {
	// Optimize runs the pass pipeline after lowering.
	Optimize bool
	Passes   []string
	Repeat   int
	Verify   bool
	// PostDom runs post-dominator analysis over every function.
	PostDom bool
	// MaxDiagnostics caps the per-file diagnostic bag.
	MaxDiagnostics int
	// Jobs bounds CompileAll parallelism; zero means GOMAXPROCS.
	Jobs int
	// Timer, when set, records load, lower, per-pass and analysis phases.
	Timer *observ.Timer
	// Reporter, when set, also receives every diagnostic as it is made.
	Reporter diag.Reporter
	// Progress, when set, receives per-file stage events.
	Progress ProgressSink
}

// OptionsFrom maps a configuration onto driver options.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		Passes:         cfg.Pipeline.Passes,
		Repeat:         cfg.Pipeline.Repeat,
		Verify:         cfg.Pipeline.Verify,
		MaxDiagnostics: 256,
	}
}

// Result is the outcome for one input.
type Result struct {
	Path    string
	Module  *ir.Module
	Bag     *diag.Bag
	Stats   passes.Stats
	PostDom []*analysis.PostDomResult
	// Err is the first failure for this input. CompileAll keeps going past
	// per-file failures and reports them here.
	Err error
}

// reporter is the sink for one compilation. The caller's reporter sees each
// distinct diagnostic once; the bag keeps everything.
func (o Options) reporter(bag *diag.Bag) diag.Reporter {
	if o.Reporter == nil {
		return diag.BagReporter{Bag: bag}
	}
	return diag.MultiReporter{diag.BagReporter{Bag: bag}, diag.NewDedupReporter(o.Reporter)}
}

// Compile loads path and compiles it.
func Compile(ctx context.Context, path string, opts Options) *Result {
	res := &Result{Path: path, Bag: diag.NewBag(opts.maxDiagnostics())}
	r := opts.reporter(res.Bag)
	span, ctx := trace.Start(ctx, trace.ScopeDriver, "compile:"+filepath.Base(path))
	defer func() { span.Fail(res.Err) }()

	opts.progress(path, StageLoad, StatusWorking, nil)
	phase := opts.Timer.Begin("load " + filepath.Base(path))
	tu, err := astio.ReadFile(path)
	opts.Timer.End(phase, "")
	if err != nil {
		code := diag.IODecodeError
		if errors.Is(err, astio.ErrFormat) {
			code = diag.IOFormatVersion
		} else if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			code = diag.IOLoadFileError
		}
		diag.ReportError(r, code, diag.Location{File: path}, err.Error()).Emit()
		res.Err = err
		opts.progress(path, "", StatusError, err)
		return res
	}
	compileUnit(ctx, tu, opts, res, r)
	if res.Err != nil {
		opts.progress(path, "", StatusError, res.Err)
	} else {
		opts.progress(path, "", StatusDone, nil)
	}
	return res
}

// CompileUnit compiles an in-memory translation unit.
func CompileUnit(ctx context.Context, tu *ast.TranslationUnit, opts Options) *Result {
	res := &Result{Bag: diag.NewBag(opts.maxDiagnostics())}
	if tu != nil {
		res.Path = tu.Name
	}
	compileUnit(ctx, tu, opts, res, opts.reporter(res.Bag))
	return res
}

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics <= 0 {
		return 256
	}
	return o.MaxDiagnostics
}

func compileUnit(ctx context.Context, tu *ast.TranslationUnit, opts Options, res *Result, r diag.Reporter) {
	opts.progress(res.Path, StageLower, StatusWorking, nil)
	phase := opts.Timer.Begin("lower")
	m, err := emit.LowerContext(ctx, tu, emit.Options{Reporter: r, File: res.Path})
	opts.Timer.End(phase, "")
	if err != nil {
		res.Err = err
		return
	}
	res.Module = m

	if opts.Optimize {
		opts.progress(res.Path, StageOptimize, StatusWorking, nil)
		names := opts.Passes
		if names == nil {
			names = passes.DefaultOrder
		}
		p, err := passes.New(names, opts.Repeat, opts.Verify)
		if err != nil {
			diag.ReportError(r, diag.OptUnknownPass, diag.Location{File: res.Path}, err.Error()).Emit()
			res.Err = err
			return
		}
		p.Timer = opts.Timer
		if res.Stats, err = p.Run(ctx, m, r); err != nil {
			res.Err = err
			return
		}
	}

	if opts.PostDom {
		opts.progress(res.Path, StageAnalyze, StatusWorking, nil)
		phase := opts.Timer.Begin("postdom")
		res.PostDom = analysis.Functions(m, r)
		opts.Timer.End(phase, fmt.Sprintf("%d functions", len(res.PostDom)))
	}
}

// Inputs expands files and directories into a sorted list of interchange
// files. Directories are walked recursively. Anything else, including a
// path that does not exist, is passed through so Compile reports it.
func Inputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if info, err := os.Stat(arg); err != nil || !info.IsDir() {
			out = append(out, arg)
			continue
		}
		err := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isInput(path) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("driver: %w", err)
		}
	}
	sort.Strings(out)
	return out, nil
}

func isInput(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".astpack", ".json":
		return true
	}
	return false
}

// Emit writes the module of res in the given output format.
func Emit(w io.Writer, res *Result, format string) error {
	if res.Module == nil {
		return errors.New("driver: no module to emit")
	}
	switch format {
	case config.FormatLLVM:
		return llvmexport.Write(w, res.Module)
	case config.FormatIR, "":
		return ir.Dump(w, res.Module)
	}
	return fmt.Errorf("driver: unknown output format %q", format)
}

// WritePostDom prints the post-dominator sets of every analyzed function.
func WritePostDom(w io.Writer, res *Result) error {
	for _, pd := range res.PostDom {
		if _, err := fmt.Fprintf(w, "%s: (%d iterations)\n", pd.Func.Name, pd.Iterations); err != nil {
			return err
		}
		for _, b := range pd.Func.Blocks {
			names := make([]string, 0)
			for _, p := range pd.Set(b) {
				names = append(names, p.Name)
			}
			ipdom := "-"
			if p := pd.Immediate(b); p != nil {
				ipdom = p.Name
			}
			if _, err := fmt.Fprintf(w, "  %s: {%s} ipdom %s\n", b.Name, strings.Join(names, ", "), ipdom); err != nil {
				return err
			}
		}
	}
	return nil
}
