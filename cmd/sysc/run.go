package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sysc/internal/driver"
	"sysc/internal/interp"
)

func newRunCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run [flags] <file> [-- args...]",
		Short: "Lower a file and interpret one of its functions",
		Long: `run lowers the file, optionally optimizes it, runs the module constructors
and calls the entry function with integer arguments. The result is printed
and also becomes the exit status, truncated to 0..255.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			optimize, err := cmd.Flags().GetBool("opt")
			if err != nil {
				return err
			}
			if optimize {
				s.opts.Optimize = true
			}
			entry, err := cmd.Flags().GetString("entry")
			if err != nil {
				return err
			}
			stepLimit, err := cmd.Flags().GetInt64("step-limit")
			if err != nil {
				return err
			}

			callArgs := make([]int64, 0, len(args)-1)
			for _, a := range args[1:] {
				v, err := strconv.ParseInt(a, 0, 64)
				if err != nil {
					return fmt.Errorf("argument %q: %w", a, err)
				}
				callArgs = append(callArgs, v)
			}

			res := driver.Compile(s.ctx, args[0], s.opts)
			if err := s.report(res); err != nil {
				return err
			}

			phase := s.timer.Begin("run " + entry)
			vm, err := interp.New(res.Module, interp.Options{StepLimit: stepLimit})
			if err != nil {
				return err
			}
			v, err := vm.Call(s.ctx, entry, callArgs...)
			s.timer.End(phase, fmt.Sprintf("%d steps", vm.Steps()))
			if s.timer != nil {
				driver.AppendTimings(res.Bag, s.timer, "run", res.Path)
				items := res.Bag.Items()
				s.printDiagnostic(items[len(items)-1])
			}
			if err != nil {
				s.failed = true
				var trap *interp.Trap
				if errors.As(err, &trap) {
					return fmt.Errorf("%s trapped: %w", entry, err)
				}
				return err
			}
			fmt.Fprintln(s.stdout, v)
			exitCode = int(uint8(v))
			return nil
		},
	}
	c.Flags().Bool("opt", false, "run the configured pass pipeline before interpreting")
	c.Flags().String("entry", "main", "function to call")
	c.Flags().Int64("step-limit", interp.DefaultStepLimit, "instructions executed before giving up")
	return c
}

// exitCode is the status main exits with after a successful run.
var exitCode int
