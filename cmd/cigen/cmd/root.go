// Package cmd implements the cigen CLI: a thin cobra shell around
// internal/compile, the way the teacher's cmd/terraci/cmd stays a thin
// shell around internal/discovery + internal/graph +
// internal/pipeline/gitlab.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cigenhq/cigen/internal/diag"
	"github.com/cigenhq/cigen/pkg/log"
)

var (
	// Global flags
	workDir  string
	logLevel string

	// Version info
	versionInfo struct {
		Version string
		Commit  string
		Date    string
	}
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cigen",
	Short: "Generate native CI pipeline configuration from a provider-agnostic definition",
	Long: `cigen reads a provider-agnostic workflow/job definition, resolves
caches and dependencies, and emits native configuration for one or more
CI providers (CircleCI, GitHub Actions, or a plugin-supplied provider).

Features:
  - A single source of truth for pipelines spanning multiple providers
  - Deterministic, content-addressed cache keys
  - A dependency graph supporting both AND and OR job requirements
  - Change-detection skip checks so unaffected jobs don't rerun
  - A plugin protocol for providers cigen doesn't ship built in`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		log.Init()

		if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
			logLevel = "debug"
		}
		if logLevel != "" {
			if err := log.SetLevelFromString(logLevel); err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
		}

		if cmd.Name() != "version" && versionInfo.Version != "" {
			log.WithField("version", versionInfo.Version).Debug("cigen")
		}

		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets version information reported by `cigen version`.
func SetVersion(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// ExitCode maps a command's returned error to the process exit code:
// diagnostic-carrying errors use diag.Kind.ExitCode(), everything else
// is a generic failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var d *diag.Diagnostic
	if errors.As(err, &d) {
		return d.Kind.ExitCode()
	}
	return 1
}

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "d", cwd, "project root directory")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output (shorthand for --log-level=debug)")
}
