package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sysc/internal/config"
	"sysc/internal/diag"
	"sysc/internal/driver"
	"sysc/internal/observ"
)

var (
	errorLabel   = color.New(color.FgRed, color.Bold)
	warningLabel = color.New(color.FgYellow, color.Bold)
	noteLabel    = color.New(color.FgCyan)
)

// errFailed is returned after the diagnostics of a failed file were
// printed; main only needs the exit status.
var errFailed = errors.New("compilation failed")

// session carries what every subcommand resolves from the root flags and
// sysc.toml before it compiles anything.
type session struct {
	ctx     context.Context
	cfg     config.Config
	opts    driver.Options
	timer   *observ.Timer
	quiet   bool
	golden  bool
	useUI   bool
	stdout  io.Writer
	stderr  io.Writer
	cleanup func(failed bool)
	// failed is set once any input failed; close uses it to decide whether
	// the trace ring is worth dumping.
	failed bool
}

func newSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Root().PersistentFlags()

	colorFlag, err := flags.GetString("color")
	if err != nil {
		return nil, err
	}
	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stderr)
	default:
		return nil, fmt.Errorf("invalid --color value %q (must be auto, on or off)", colorFlag)
	}

	cfgPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return nil, err
	}

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return nil, err
	}
	stopTracing, err := setupTracing(cmd, cfg)
	if err != nil {
		stopProfiling()
		return nil, err
	}
	cleanup := func(failed bool) {
		stopTracing(failed)
		stopProfiling()
	}

	s := &session{
		ctx:     cmd.Context(),
		cfg:     cfg,
		opts:    driver.OptionsFrom(cfg),
		stdout:  cmd.OutOrStdout(),
		stderr:  cmd.ErrOrStderr(),
		cleanup: cleanup,
	}
	if s.quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}
	if s.opts.MaxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
		return nil, err
	}
	if s.opts.Jobs, err = flags.GetInt("jobs"); err != nil {
		return nil, err
	}
	diagFormat, err := flags.GetString("diagnostics-format")
	if err != nil {
		return nil, err
	}
	switch diagFormat {
	case "pretty":
	case "golden":
		s.golden = true
	default:
		return nil, fmt.Errorf("invalid --diagnostics-format value %q (must be pretty or golden)", diagFormat)
	}
	uiFlag, err := flags.GetString("ui")
	if err != nil {
		return nil, err
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return nil, err
	}
	s.useUI = shouldUseTUI(mode)
	timings, err := flags.GetBool("timings")
	if err != nil {
		return nil, err
	}
	if timings {
		s.timer = observ.NewTimer()
		s.opts.Timer = s.timer
	}
	return s, nil
}

func (s *session) close() {
	if s.cleanup != nil {
		s.cleanup(s.failed)
	}
}

// report prints the diagnostics of res and returns errFailed when res
// failed.
func (s *session) report(res *driver.Result) error {
	if s.golden {
		// One sorted line per diagnostic and note, for diffing runs.
		if out := diag.FormatGoldenDiagnostics(res.Bag.Items(), true); out != "" {
			fmt.Fprintln(s.stderr, out)
		}
	} else {
		res.Bag.Sort()
		for _, d := range res.Bag.Items() {
			s.printDiagnostic(d)
		}
	}
	if n := res.Bag.Dropped(); n > 0 {
		fmt.Fprintf(s.stderr, "%s %d more diagnostics for %s not shown (raise --max-diagnostics)\n", noteLabel.Sprint("note:"), n, res.Path)
	}
	if res.Err != nil {
		s.failed = true
		if !res.Bag.HasErrors() {
			fmt.Fprintf(s.stderr, "%s %s: %v\n", errorLabel.Sprint("error:"), res.Path, res.Err)
		}
		return errFailed
	}
	return nil
}

func (s *session) printDiagnostic(d diag.Diagnostic) {
	switch d.Severity {
	case diag.SevInfo:
		if s.quiet {
			return
		}
		fmt.Fprintln(s.stderr, d.Message)
		// The timings note is a JSON payload for tools.
		if d.Code == diag.ObsTimings {
			return
		}
		for _, n := range d.Notes {
			fmt.Fprintf(s.stderr, "  %s %s\n", noteLabel.Sprint("note:"), n.Msg)
		}
		return
	case diag.SevWarning:
		fmt.Fprint(s.stderr, warningLabel.Sprint("warning"))
	default:
		fmt.Fprint(s.stderr, errorLabel.Sprint("error"))
	}
	where := d.Primary.String()
	if where != "" {
		where = " " + where
	}
	fmt.Fprintf(s.stderr, " %s%s: %s\n", d.Code.ID(), where, d.Message)
	for _, n := range d.Notes {
		fmt.Fprintf(s.stderr, "  %s %s\n", noteLabel.Sprint("note:"), n.Msg)
	}
}

// openOutput returns stdout for "" or "-", otherwise creates path.
func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// compileAndEmit runs the driver over args and writes each module in
// format to output. With watch set it keeps recompiling until interrupted.
func (s *session) compileAndEmit(args []string, format, output string, watch bool) error {
	paths, err := driver.Inputs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no input files")
	}
	if len(paths) > 1 && output != "" && output != "-" {
		return fmt.Errorf("-o names one file but %d inputs were given", len(paths))
	}

	emit := func(res *driver.Result) error {
		if err := s.report(res); err != nil {
			return err
		}
		w, closeOut, err := openOutput(s.stdout, output)
		if err != nil {
			return err
		}
		if err := driver.Emit(w, res, format); err != nil {
			closeOut()
			return fmt.Errorf("%s: %w", res.Path, err)
		}
		return closeOut()
	}

	if watch {
		return driver.Watch(s.ctx, paths, s.opts, func(res *driver.Result) {
			// Failures are reported and the watch goes on.
			if err := emit(res); err != nil && !errors.Is(err, errFailed) {
				fmt.Fprintf(s.stderr, "%s %v\n", errorLabel.Sprint("error:"), err)
			}
		})
	}

	results, err := s.compileAll("sysc", paths)
	if err != nil {
		return err
	}
	var failed []string
	for _, res := range results {
		if err := emit(res); err != nil {
			if !errors.Is(err, errFailed) {
				return err
			}
			failed = append(failed, res.Path)
		}
	}
	s.printTimings()
	if len(failed) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(failed, ", "), errFailed)
	}
	return nil
}

func (s *session) printTimings() {
	if s.timer != nil {
		fmt.Fprint(s.stderr, s.timer.Summary())
	}
}
