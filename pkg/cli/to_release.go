package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monoship/monoship/pkg/console"
	"github.com/monoship/monoship/pkg/logger"
	"github.com/monoship/monoship/pkg/order"
)

var toReleaseLog = logger.New("cli:to_release")

// NewToReleaseCommand creates the to-release command: compute and print the
// dependency-respecting release order without touching anything.
func NewToReleaseCommand() *cobra.Command {
	var (
		selFlags       selectionFlags
		includeDevDeps bool
		emptyIsFailure bool
		dotGraph       string
	)

	cmd := &cobra.Command{
		Use:   "to-release",
		Short: "Calculate the packages to release and their publish order",
		Long: `Calculate which packages match the selection criteria and the order in
which they must be published so every dependency precedes its dependents.
Halts with an error if the dependency graph contains a cycle.

Examples:
  # Order of everything publishable
  monoship to-release

  # Only what changed since main, including dependents
  monoship to-release --changed-since main

  # Write the dependency graph as Graphviz dot
  monoship to-release --dot-graph release.dot`,
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
				toReleaseLog.Printf("Writing dot graph to %s", dotGraph)
				if err := os.WriteFile(dotGraph, []byte(order.Dot(ws, plan, includeDevDeps)), 0o644); err != nil {
					return fmt.Errorf("writing dot graph: %w", err)
				}
			}

			names := make([]string, 0, len(plan))
			for _, p := range plan {
				names = append(names, p.String())
			}
			fmt.Println(strings.Join(names, ", "))
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(
				fmt.Sprintf("%s in release order", console.FormatCountMessage(len(plan), "package", "packages"))))
			return nil
		},
	}

	addSelectionFlags(cmd, &selFlags)
	cmd.Flags().BoolVar(&includeDevDeps, "include-dev-deps", false,
		"Consider dev-dependency edges for ordering and cascades")
	cmd.Flags().BoolVar(&emptyIsFailure, "empty-package-is-failure", false,
		"Treat an empty selection as an error")
	cmd.Flags().StringVar(&dotGraph, "dot-graph", "",
		"Write the release dependency graph as Graphviz dot to this path")
	return cmd
}
