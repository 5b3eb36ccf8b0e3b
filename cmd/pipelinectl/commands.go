package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/catalog"
)

func validateCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check pipeline documents",
		Long: `Load pipeline documents and report every violation found. Arguments may
be glob patterns such as "pipelines/**/*.json".

With --catalog, nodes whose tool is missing from the catalog are reported
as well.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandPaths(args)
			if err != nil {
				return err
			}
			var reg *catalog.Registry
			if catalogPath != "" {
				if reg, err = openCatalog(catalogPath); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			failed := false
			for _, path := range paths {
				if len(paths) > 1 {
					fmt.Fprintf(out, "%s\n", color.New(color.Bold).Sprint(path))
				}
				ok, err := validateFile(cmd.Context(), out, path, reg)
				if err != nil {
					return err
				}
				failed = failed || !ok
			}
			if failed {
				return errInvalid
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "tool catalog (YAML) to check tool references against")
	return cmd
}

// validateFile prints the findings for one document and reports whether it
// passed. Only I/O and registry failures are returned as errors.
func validateFile(ctx context.Context, out io.Writer, path string, reg *catalog.Registry) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	g, err := pipeline.Load(data)
	var corrupt *pipeline.CorruptPipelineError
	switch {
	case errors.As(err, &corrupt):
		printViolations(out, corrupt.Violations, nil)
		return false, nil
	case err != nil:
		fmt.Fprintf(out, "%s %v\n", color.RedString("✗"), err)
		return false, nil
	}

	if reg != nil {
		violations, err := pipeline.ValidateTools(ctx, g, reg)
		if err != nil {
			return false, err
		}
		if len(violations) > 0 {
			known, err := reg.ListTools(ctx)
			if err != nil {
				return false, err
			}
			printViolations(out, violations, toolHints(g, known))
			return false, nil
		}
	}

	fmt.Fprintf(out, "%s valid: %d nodes, %d edges\n", color.GreenString("✓"), g.NodeCount(), g.EdgeCount())
	return true, nil
}

// expandPaths resolves glob arguments. An argument matching nothing is
// kept so that reading it reports the missing file.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			matches = []string{arg}
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

// toolHints maps node ids whose tool is unknown to the closest catalog
// tool name, when one is close enough to be a likely typo.
func toolHints(g *pipeline.Graph, known []pipeline.ToolDefinition) map[string]string {
	hints := make(map[string]string)
	for _, n := range g.Nodes() {
		if s := closestTool(n.ToolName, known); s != "" && s != n.ToolName {
			hints[n.ID] = s
		}
	}
	return hints
}

func closestTool(name string, known []pipeline.ToolDefinition) string {
	best, bestDist := "", len(name)/3+2
	for _, def := range known {
		if d := levenshtein.ComputeDistance(name, def.Name); d < bestDist {
			best, bestDist = def.Name, d
		}
	}
	return best
}

func fmtCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt FILE",
		Short: "Rewrite a pipeline document in the current layout",
		Long: `Load a pipeline document, including older layouts, and print it in the
current layout with stable indentation. With -w the file is rewritten in
place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			g, err := pipeline.Load(data)
			if err != nil {
				return err
			}
			compact, err := pipeline.Save(g)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, compact, "", "  "); err != nil {
				return err
			}
			buf.WriteByte('\n')

			if write {
				info, err := os.Stat(args[0])
				if err != nil {
					return err
				}
				return os.WriteFile(args[0], buf.Bytes(), info.Mode().Perm())
			}
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to FILE")
	return cmd
}

func toolsCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools in a catalog",
		Long:  `List tools with their ports. Without --catalog the builtin tools are listed.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openCatalog(catalogPath)
			if err != nil {
				return err
			}
			defs, err := reg.ListTools(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			bold := color.New(color.Bold)
			for i := range defs {
				inputs, outputs, err := pipeline.ResolvePorts(&defs[i])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %s\n", bold.Sprint(defs[i].Name), color.CyanString(string(defs[i].Category)))
				if defs[i].Description != "" {
					fmt.Fprintf(out, "    %s\n", defs[i].Description)
				}
				fmt.Fprintf(out, "    in:  %s\n", portList(inputs))
				fmt.Fprintf(out, "    out: %s\n", portList(outputs))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "tool catalog (YAML)")
	return cmd
}

// openCatalog loads a catalog file into a registry, or the builtin tools
// when path is empty.
func openCatalog(path string) (*catalog.Registry, error) {
	if path == "" {
		return catalog.New(catalog.Builtins()...)
	}
	defs, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return catalog.New(defs...)
}

func printViolations(w io.Writer, violations []pipeline.Violation, hints map[string]string) {
	fmt.Fprintf(w, "%s %d violation(s)\n", color.RedString("✗"), len(violations))
	for _, v := range violations {
		fmt.Fprintf(w, "  %s %s\n", color.YellowString(string(v.Kind)), v.Message)
		if hint, ok := hints[v.NodeID]; ok && v.Kind == pipeline.UnknownToolReference {
			fmt.Fprintf(w, "    did you mean %q?\n", hint)
		}
	}
}

func portList(ports []pipeline.Port) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		parts = append(parts, p.Name+":"+string(p.DataType))
	}
	return strings.Join(parts, ", ")
}
