package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"sysc/internal/config"
	"sysc/internal/passes"
)

func newEmitCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "emit [flags] <file|dir>...",
		Short: "Lower AST files to IR without optimizing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileCommand(cmd, args, false)
		},
	}
	outputFlags(c)
	return c
}

func newOptCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "opt [flags] <file|dir>...",
		Short: "Lower AST files and run the optimization pipeline",
		Long: `opt lowers each input and runs the pass pipeline over it. Passes come from
--passes, then [pipeline] in sysc.toml, then the default order:
` + strings.Join(passes.DefaultOrder, ", ") + `.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileCommand(cmd, args, true)
		},
	}
	outputFlags(c)
	c.Flags().StringSlice("passes", nil, "comma-separated pass names ("+strings.Join(passes.Names(), "|")+")")
	c.Flags().Int("repeat", 0, "pipeline rounds (0: until nothing changes)")
	c.Flags().Bool("no-verify", false, "skip IR verification after each pass")
	c.Flags().Bool("postdom", false, "also run post-dominator analysis")
	return c
}

func outputFlags(c *cobra.Command) {
	c.Flags().String("format", "", "output format (ir|llvm, default from sysc.toml)")
	c.Flags().StringP("output", "o", "", "output file (default stdout)")
	c.Flags().Bool("watch", false, "recompile inputs when they change")
}

func compileCommand(cmd *cobra.Command, args []string, optimize bool) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format == "" {
		format = s.cfg.Output.Format
	}
	if format != config.FormatIR && format != config.FormatLLVM {
		return fmt.Errorf("unsupported format %q (must be ir or llvm)", format)
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}

	if optimize {
		if err := s.pipelineFlags(cmd); err != nil {
			return err
		}
		if s.opts.PostDom, err = cmd.Flags().GetBool("postdom"); err != nil {
			return err
		}
	}

	if watch {
		ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		s.ctx = ctx
	}
	return s.compileAndEmit(args, format, output, watch)
}

// pipelineFlags applies --passes, --repeat and --no-verify over the
// configured pipeline.
func (s *session) pipelineFlags(cmd *cobra.Command) error {
	s.opts.Optimize = true
	flags := cmd.Flags()
	if flags.Changed("passes") {
		names, err := flags.GetStringSlice("passes")
		if err != nil {
			return err
		}
		s.opts.Passes = names
	}
	if flags.Changed("repeat") {
		repeat, err := flags.GetInt("repeat")
		if err != nil {
			return err
		}
		if repeat < 0 {
			return fmt.Errorf("--repeat must not be negative, got %d", repeat)
		}
		s.opts.Repeat = repeat
	}
	noVerify, err := flags.GetBool("no-verify")
	if err != nil {
		return err
	}
	if noVerify {
		s.opts.Verify = false
	}
	return nil
}
