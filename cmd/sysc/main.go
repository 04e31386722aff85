package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sysc/internal/version"
)

// newRootCmd builds the command tree. Flag values live in the tree, so
// every run gets a fresh one.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sysc",
		Short: "C-subset lowering, optimization and analysis toolkit",
		Long: `sysc lowers C-subset syntax trees (sysc-ast interchange files) into a
basic-block IR, optimizes it and runs analyses over it.`,
		Version:      version.Version,
		SilenceUsage: true,
	}
	root.AddCommand(newEmitCmd(), newOptCmd(), newPostdomCmd(), newRunCmd(), newVersionCmd())

	flags := root.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.String("ui", "auto", "progress view for multi-file runs (auto|on|off)")
	flags.String("diagnostics-format", "pretty", "diagnostic output (pretty|golden)")
	flags.Bool("quiet", false, "suppress informational diagnostics")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 256, "maximum number of diagnostics kept per file")
	flags.String("config", "", "path to sysc.toml (default: search upwards from the working directory)")
	flags.Int("jobs", 0, "files compiled in parallel (0: GOMAXPROCS)")
	flags.String("trace", "", "trace output file (\"-\" for stderr)")
	flags.String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "", "trace storage (stream|ring|both)")
	flags.String("trace-format", "", "trace format (auto|text|ndjson)")
	flags.Int("trace-ring-size", 4096, "events kept in ring mode")
	flags.Duration("trace-heartbeat", 0, "heartbeat interval (0 disables)")
	flags.String("cpu-profile", "", "write a CPU profile to file")
	flags.String("mem-profile", "", "write a heap profile to file on exit")
	flags.String("runtime-trace", "", "write a Go runtime trace to file")
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
