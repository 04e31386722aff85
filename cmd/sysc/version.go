package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"sysc/internal/astio"
	"sysc/internal/passes"
	"sysc/internal/version"
)

// versionInfo is what `sysc version` reports: the build, and the inputs and
// passes this build understands.
type versionInfo struct {
	Tool      string   `json:"tool"`
	Version   string   `json:"version"`
	GitCommit string   `json:"git_commit,omitempty"`
	BuildDate string   `json:"build_date,omitempty"`
	ASTFormat string   `json:"ast_format"`
	Accepts   string   `json:"ast_accepts"`
	Passes    []string `json:"passes"`
}

func newVersionCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "version",
		Short: "Show sysc build information",
		Long: `version prints the build version. --full adds the commit, build date,
the interchange format version written and accepted, and the registered
optimization passes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			full, err := cmd.Flags().GetBool("full")
			if err != nil {
				return err
			}
			info := versionInfo{
				Tool:      "sysc",
				Version:   orUnknown(version.Version),
				ASTFormat: astio.FormatName + " " + astio.Version,
				Accepts:   astio.Accepts,
				Passes:    passes.Names(),
			}
			if full {
				info.GitCommit = orUnknown(version.GitCommit)
				info.BuildDate = orUnknown(version.BuildDate)
			}
			switch strings.ToLower(format) {
			case "pretty":
				printVersion(cmd.OutOrStdout(), info, full)
				return nil
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
		},
	}
	c.Flags().String("format", "pretty", "output format (pretty|json)")
	c.Flags().Bool("full", false, "also show commit, build date, formats and passes")
	return c
}

func printVersion(out io.Writer, info versionInfo, full bool) {
	fmt.Fprintln(out, version.Banner())
	if !full {
		return
	}
	fmt.Fprintf(out, "commit:  %s\nbuilt:   %s\n", info.GitCommit, info.BuildDate)
	fmt.Fprintf(out, "ast:     %s (reads %s)\n", info.ASTFormat, info.Accepts)
	fmt.Fprintf(out, "passes:  %s\n", strings.Join(info.Passes, ", "))
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
