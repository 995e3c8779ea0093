package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cigenhq/cigen/internal/compile"
	"github.com/cigenhq/cigen/internal/diag"
	"github.com/cigenhq/cigen/pkg/log"
)

var (
	outputDir string
	cliVars   []string
	dryRun    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate native CI pipeline configuration",
	Long: `Generate reads the project's workflow and job definitions, resolves
dependencies and cache keys, and writes native configuration for every
provider listed in config.yml's providers field.

Examples:
  # Generate into the configured output directory
  cigen generate

  # Override where fragments land
  cigen generate --output-dir .

  # Pass template variables from the CLI (highest precedence)
  cigen generate --var environment=prod --var region=eu-north-1

  # See what would be written without touching disk
  cigen generate --dry-run`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "override config.output_dir")
	generateCmd.Flags().StringArrayVar(&cliVars, "var", nil, "template variable as name=value (repeatable, highest precedence)")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be written without creating output")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	vars, err := parseVars(cliVars)
	if err != nil {
		return err
	}

	opts := compile.Options{Root: workDir, CLIVars: vars, Environ: os.Environ()}
	result, diags := compile.Run(cmd.Context(), opts)

	printDiagnostics(diags)
	if diags.HasErrors() {
		return diags.Err()
	}

	dir := result.Config.OutputDir
	if outputDir != "" {
		dir = outputDir
	}

	if dryRun {
		for _, f := range result.Fragments {
			fmt.Fprintf(os.Stderr, "would write %s/%s (%d bytes)\n", dir, f.Path, len(f.Content))
		}
		return nil
	}

	if err := compile.WriteFragments(dir, result.Fragments); err != nil {
		return err
	}

	log.WithField("count", len(result.Fragments)).Info("wrote pipeline fragments")
	for _, f := range result.Fragments {
		fmt.Fprintf(os.Stderr, "wrote %s/%s\n", dir, f.Path)
	}
	return nil
}

// parseVars turns "name=value" pairs into a map, the way --var is
// documented to behave: later flags win on duplicate names.
func parseVars(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("--var %q: expected name=value", p)
		}
		out[name] = value
	}
	return out, nil
}

func printDiagnostics(c *diag.Collector) {
	diags := append([]*diag.Diagnostic{}, c.Diagnostics()...)
	sort.SliceStable(diags, func(i, j int) bool { return diags[i].Level > diags[j].Level })
	for _, d := range diags {
		if d.Level == diag.LevelWarning {
			fmt.Fprintf(os.Stderr, "warning: %s\n", d.Error())
			continue
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", d.Error())
	}
}
