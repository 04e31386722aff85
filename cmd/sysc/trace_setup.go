package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sysc/internal/config"
	"sysc/internal/trace"
)

// stringFlag returns the persistent flag value when it was set on the
// command line and fallback otherwise.
func stringFlag(cmd *cobra.Command, name, fallback string) (string, error) {
	flags := cmd.Root().PersistentFlags()
	v, err := flags.GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to get %s flag: %w", name, err)
	}
	if !flags.Changed(name) {
		return fallback, nil
	}
	return v, nil
}

// setupTracing builds the tracer from the [trace] table of cfg and the
// trace flags, which take precedence. The returned cleanup dumps the ring
// of a ring-mode tracer to the trace output when the run failed.
func setupTracing(cmd *cobra.Command, cfg config.Config) (func(failed bool), error) {
	root := cmd.Root()

	traceOutput, err := stringFlag(cmd, "trace", "")
	if err != nil {
		return nil, err
	}
	levelStr, err := stringFlag(cmd, "trace-level", cfg.Trace.Level)
	if err != nil {
		return nil, err
	}
	modeStr, err := stringFlag(cmd, "trace-mode", cfg.Trace.Mode)
	if err != nil {
		return nil, err
	}
	formatStr, err := stringFlag(cmd, "trace-format", cfg.Trace.Format)
	if err != nil {
		return nil, err
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace alone turns tracing on at phase level.
	if traceOutput != "" && !root.PersistentFlags().Changed("trace-level") && level == trace.LevelOff {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func(bool) {}, nil
	}
	if traceOutput == "" {
		traceOutput = cfg.Trace.Output
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace format: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: traceOutput,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	heartbeat := trace.StartHeartbeat(tracer, heartbeatInterval)

	cleanup := func(failed bool) {
		heartbeat.Stop()
		if failed && mode == trace.ModeRing {
			if err := dumpRing(tracer, traceOutput, format); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

func dumpRing(tracer trace.Tracer, path string, format trace.Format) error {
	w, err := trace.OpenOutput(path)
	if err != nil {
		return err
	}
	err = trace.DumpRecent(tracer, w, trace.ResolveFormat(format, path))
	if c, ok := w.(io.Closer); ok && w != io.Writer(os.Stderr) {
		err = errors.Join(err, c.Close())
	}
	return err
}
