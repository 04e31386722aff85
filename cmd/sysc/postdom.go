package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sysc/internal/driver"
)

func newPostdomCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "postdom [flags] <file|dir>...",
		Short: "Print post-dominator sets for every defined function",
		Args:  cobra.MinimumNArgs(1),
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
			s.opts.PostDom = true

			paths, err := driver.Inputs(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return errors.New("no input files")
			}
			results, err := s.compileAll("postdom", paths)
			if err != nil {
				return err
			}
			var failed []string
			for _, res := range results {
				if err := s.report(res); err != nil {
					failed = append(failed, res.Path)
					continue
				}
				if len(results) > 1 {
					fmt.Fprintf(s.stdout, "; %s\n", res.Path)
				}
				if err := driver.WritePostDom(s.stdout, res); err != nil {
					return err
				}
			}
			s.printTimings()
			if len(failed) > 0 {
				return fmt.Errorf("%s: %w", strings.Join(failed, ", "), errFailed)
			}
			return nil
		},
	}
	c.Flags().Bool("opt", false, "run the configured pass pipeline first")
	return c
}
