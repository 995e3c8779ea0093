package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cigenhq/cigen/pkg/model"
)

var schemaOutputFile string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for config.yml",
	Long: `Print the JSON Schema describing config.yml's structure. The schema
can be used for editor autocompletion and validation.

Examples:
  # Output schema to stdout
  cigen schema

  # Write schema to file
  cigen schema -o cigen.schema.json`,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVarP(&schemaOutputFile, "output", "o", "", "output file (default: stdout)")
}

func runSchema(_ *cobra.Command, _ []string) error {
	schema := model.GenerateJSONSchema()

	if schemaOutputFile != "" {
		if err := os.WriteFile(schemaOutputFile, []byte(schema), 0o600); err != nil {
			return fmt.Errorf("failed to write schema file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Schema written to %s\n", schemaOutputFile)
		return nil
	}

	fmt.Print(schema)
	return nil
}
