package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cigenhq/cigen/internal/circleciapi"
	"github.com/cigenhq/cigen/internal/ghstatus"
)

var approveTokenEnv string
var githubTokenEnv string

// circleciCmd groups CircleCI-specific helper subcommands that
// generated config shells out to at build time.
var circleciCmd = &cobra.Command{
	Use:   "circleci",
	Short: "CircleCI-specific helper commands used by generated config",
}

// circleciApproveCmd is internal/emit/circleci's automated_approval
// command (spec.md 4.7, SPEC_FULL 12): the shim job that stands in for
// a requires_any dependency runs this to approve the held approval job
// once its own upstream job has succeeded, instead of the inline
// curl/jq the emitter used to generate.
var circleciApproveCmd = &cobra.Command{
	Use:    "approve <approval-job-name>",
	Short:  "Approve a CircleCI approval job by name within the running workflow",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE:   runCircleCIApprove,
}

// circleciFixStatusCmd is the patch_approval_jobs_status job's command
// (internal/ghstatus, Config.CircleCI.FixGitHubStatus): it sets every
// listed context to a successful GitHub commit status once its
// approval job has gone through.
var circleciFixStatusCmd = &cobra.Command{
	Use:    "fix-github-status <context...>",
	Short:  "Patch GitHub commit status for CircleCI approval-job workaround jobs",
	Hidden: true,
	RunE:   runCircleCIFixStatus,
}

func init() {
	rootCmd.AddCommand(circleciCmd)
	circleciCmd.AddCommand(circleciApproveCmd)
	circleciCmd.AddCommand(circleciFixStatusCmd)
	circleciApproveCmd.Flags().StringVar(&approveTokenEnv, "token-env", "CIRCLE_TOKEN", "environment variable holding the CircleCI API token")
	circleciFixStatusCmd.Flags().StringVar(&githubTokenEnv, "github-token-env", "GITHUB_TOKEN", "environment variable holding a GitHub API token")
}

func runCircleCIFixStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	token := os.Getenv(githubTokenEnv)
	if token == "" {
		return fmt.Errorf("environment variable %s is empty", githubTokenEnv)
	}
	owner, repo, err := ownerRepoFromEnv()
	if err != nil {
		return err
	}
	sha := os.Getenv("CIRCLE_SHA1")
	if sha == "" {
		return fmt.Errorf("CIRCLE_SHA1 is not set; this command only runs inside a CircleCI job")
	}
	return ghstatus.FixApprovalStatuses(cmd.Context(), token, owner, repo, sha, args)
}

// ownerRepoFromEnv reads CircleCI's own project-slug env vars.
func ownerRepoFromEnv() (owner, repo string, err error) {
	owner = os.Getenv("CIRCLE_PROJECT_USERNAME")
	repo = os.Getenv("CIRCLE_PROJECT_REPONAME")
	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("CIRCLE_PROJECT_USERNAME/CIRCLE_PROJECT_REPONAME are not set; this command only runs inside a CircleCI job")
	}
	return owner, repo, nil
}

func runCircleCIApprove(cmd *cobra.Command, args []string) error {
	token := os.Getenv(approveTokenEnv)
	if token == "" {
		return fmt.Errorf("environment variable %s is empty", approveTokenEnv)
	}
	workflowID := os.Getenv("CIRCLE_WORKFLOW_ID")
	if workflowID == "" {
		return fmt.Errorf("CIRCLE_WORKFLOW_ID is not set; this command only runs inside a CircleCI job")
	}
	return circleciapi.AutomatedApproval(cmd.Context(), token, workflowID, args[0])
}
