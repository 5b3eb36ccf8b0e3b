// Package main provides pipelinectl, a command line tool for checking and
// normalising saved pipeline documents.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errInvalid signals that a check failed and its findings were already
// printed.
var errInvalid = errors.New("pipeline is not valid")

func main() {
	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipelinectl",
		Short: "Inspect tool catalogs and pipeline documents",
		Long: `pipelinectl checks pipeline documents offline.

Examples:
  pipelinectl validate pipeline.json
  pipelinectl validate pipeline.json --catalog tools.yaml
  pipelinectl fmt legacy.json -w
  pipelinectl tools --catalog tools.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		validateCmd(),
		fmtCmd(),
		toolsCmd(),
	)
	return cmd
}
