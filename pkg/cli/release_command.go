package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/monoship/monoship/pkg/console"
	"github.com/monoship/monoship/pkg/envutil"
	"github.com/monoship/monoship/pkg/logger"
	"github.com/monoship/monoship/pkg/order"
	"github.com/monoship/monoship/pkg/release"
)

var releaseLog = logger.New("cli:release")

// NewReleaseCommand creates the release command: plan, check, and publish
// the selected packages in dependency order.
func NewReleaseCommand() *cobra.Command {
	var (
		selFlags       selectionFlags
		includeDevDeps bool
		build          bool
		dryRun         bool
		readOnly       bool
		noCheck        bool
		checkReadme    bool
		owner          string
		token          string
		emptyIsFailure bool
		dotGraph       string
	)

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Publish the selected packages in dependency order",
		Long: `Run the full release pipeline: deactivate dev-dependencies, verify each
package, publish it to the registry, and optionally grant an additional
owner, processing packages strictly in dependency order.

A failed package blocks its dependents but independent branches of the
plan continue. Re-running after a partial failure is safe: versions the
registry already has are treated as published.

Examples:
  # See what would happen without uploading anything
  monoship release --changed-since main --dry-run

  # Publish everything changed since the last release tag
  monoship release --changed-since v1.4.0 --token "$MONOSHIP_TOKEN"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := selFlags.criteria()
			if err != nil {
				return err
			}
			ws, selected, err := resolveSelection(cmd.Context(), workspaceRoot(cmd), criteria, includeDevDeps)
			if err != nil {
				return err
			}
			if done, err := handleEmptySelection(selected, emptyIsFailure); done {
				return err
			}

			plan, err := order.Plan(ws, selected, includeDevDeps)
			if err != nil {
				return err
			}
			if dotGraph != "" {
				if err := os.WriteFile(dotGraph, []byte(order.Dot(ws, plan, includeDevDeps)), 0o644); err != nil {
					return fmt.Errorf("writing dot graph: %w", err)
				}
			}

			names := make([]string, 0, len(plan))
			for _, p := range plan {
				names = append(names, p.String())
			}
			fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Releasing "+strings.Join(names, ", ")))

			if token == "" {
				token = envutil.GetStringFromEnv("MONOSHIP_TOKEN", "", releaseLog)
			}
			delay := envutil.GetIntFromEnv("MONOSHIP_PUBLISH_DELAY", 0, 0, 600, releaseLog)

			releaseLog.Printf("Starting release of %d packages (dry-run=%v)", len(plan), dryRun)
			orchestrator := release.New(ws, release.Options{
				DryRun:         dryRun,
				ReadOnly:       readOnly,
				NoCheck:        noCheck,
				Build:          build,
				CheckReadme:    checkReadme,
				IncludeDevDeps: includeDevDeps,
				Owner:          owner,
				Token:          token,
				PublishDelay:   time.Duration(delay) * time.Second,
			})
			report := orchestrator.Run(cmd.Context(), plan)

			printReport(report)
			if report.Failed() {
				return fmt.Errorf("release run failed")
			}
			if dryRun {
				fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Dry-run complete. To publish for real:"))
				fmt.Fprintln(os.Stderr, console.FormatCommandMessage("monoship release"))
			}
			return nil
		},
	}

	addSelectionFlags(cmd, &selFlags)
	cmd.Flags().BoolVar(&includeDevDeps, "include-dev-deps", false,
		"Do not deactivate dev-dependencies before the run")
	cmd.Flags().BoolVar(&build, "build", false,
		"Run a full build during verify instead of the cheaper compile check")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Verify everything but only simulate the publish stage")
	cmd.Flags().BoolVar(&readOnly, "read-only", false,
		"With --dry-run, skip the local pre-flight manifest mutations too")
	cmd.Flags().BoolVar(&noCheck, "no-check", false,
		"Skip the verify stage")
	cmd.Flags().BoolVar(&checkReadme, "check-readme", false,
		"Verify the README matches its generated form")
	cmd.Flags().StringVar(&owner, "owner", "",
		"Also grant this owner on every published package")
	cmd.Flags().StringVar(&token, "token", "",
		"Registry token (falls back to MONOSHIP_TOKEN)")
	cmd.Flags().BoolVar(&emptyIsFailure, "empty-package-is-failure", false,
		"Treat an empty selection as an error")
	cmd.Flags().StringVar(&dotGraph, "dot-graph", "",
		"Write the release dependency graph as Graphviz dot to this path")
	return cmd
}

// printReport renders the outcome map with per-outcome coloring plus the
// final counters.
func printReport(report *release.Report) {
	for _, result := range report.Results {
		line := fmt.Sprintf("%-30s %-8s reached %s", result.Package.String(), result.Outcome, result.Stage)
		if result.Reason != "" {
			line += " (" + result.Reason + ")"
		}
		switch result.Outcome {
		case release.OutcomeSuccess:
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(line))
		case release.OutcomeFailed:
			fmt.Fprintln(os.Stderr, console.FormatErrorMessage(line))
		case release.OutcomeSkipped, release.OutcomePending:
			fmt.Fprintln(os.Stderr, console.FormatWarningMessage(line))
		}
	}
	published, skipped, failed := report.Counts()
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf(
		"Run %s: %d published, %d skipped, %d failed", report.Status, published, skipped, failed)))
}
