package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cigenhq/cigen/internal/compile"
	"github.com/cigenhq/cigen/internal/graph"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate workflow and job definitions without generating output",
	Long: `Validate loads every config, workflow, and command document, resolves
cross-references, builds the dependency graph, and reports any
diagnostic found along the way. Nothing is written to disk.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	fmt.Println("Loading project definitions...")

	loaded, diags := compile.Load(compile.Options{Root: workDir})
	printDiagnostics(diags)
	if diags.HasErrors() {
		fmt.Println()
		fmt.Println("Validation FAILED - please fix the issues above")
		return diags.Err()
	}

	fmt.Printf("  %d workflow(s), %d reusable command(s)\n", len(loaded.Workflows), len(loaded.Commands))
	fmt.Println()

	fmt.Println("Building dependency graph...")
	g, graphC := graph.Build(loaded.Workflows, loaded.Config.Architectures)
	printDiagnostics(graphC)
	if graphC.HasErrors() {
		fmt.Println()
		fmt.Println("Validation FAILED - please fix the issues above")
		return graphC.Err()
	}

	nodes := g.Nodes()
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("  %d expanded job instance(s)\n", len(names))
	fmt.Println()
	fmt.Println("Validation PASSED")
	return nil
}
