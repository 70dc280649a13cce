package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monoship/monoship/pkg/console"
	"github.com/monoship/monoship/pkg/logger"
	"github.com/monoship/monoship/pkg/order"
	"github.com/monoship/monoship/pkg/release"
)

var checkLog = logger.New("cli:check")

// NewCheckCommand creates the check command: run the verify stage of the
// pipeline for every selected package without publishing anything.
func NewCheckCommand() *cobra.Command {
	var (
		selFlags       selectionFlags
		includeDevDeps bool
		build          bool
		checkReadme    bool
		emptyIsFailure bool
		dotGraph       string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that the selected packages are ready to publish",
		Long: `Verify the selected packages in release order: validate manifest
metadata, compile-check each package (or fully build it with --build), and
optionally diff the generated README against the checked-in copy.

This is the release pipeline with the publish stage disabled; a clean check
means a following release run should only fail for registry-side reasons.`,
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

			checkLog.Printf("Checking %d packages", len(plan))
			orchestrator := release.New(ws, release.Options{
				SkipPublish:    true,
				Build:          build,
				CheckReadme:    checkReadme,
				IncludeDevDeps: includeDevDeps,
			})
			report := orchestrator.Run(cmd.Context(), plan)

			printReport(report)
			if report.Failed() {
				return fmt.Errorf("check failed")
			}
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(
				fmt.Sprintf("All %s check out", console.FormatCountMessage(len(plan), "package", "packages"))))
			return nil
		},
	}

	addSelectionFlags(cmd, &selFlags)
	cmd.Flags().BoolVar(&includeDevDeps, "include-dev-deps", false,
		"Do not deactivate dev-dependencies before checking")
	cmd.Flags().BoolVar(&build, "build", false,
		"Run a full build instead of the cheaper compile check")
	cmd.Flags().BoolVar(&checkReadme, "check-readme", false,
		"Verify the README matches its generated form")
	cmd.Flags().BoolVar(&emptyIsFailure, "empty-package-is-failure", false,
		"Treat an empty selection as an error")
	cmd.Flags().StringVar(&dotGraph, "dot-graph", "",
		"Write the release dependency graph as Graphviz dot to this path")
	return cmd
}
