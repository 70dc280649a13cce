package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monoship/monoship/pkg/console"
	"github.com/monoship/monoship/pkg/logger"
	"github.com/monoship/monoship/pkg/manifest"
)

var deDevDepsLog = logger.New("cli:de_dev_deps")

// NewDeDevDepsCommand creates the de-dev-deps command: strip the
// dev-dependencies section from the selected manifests on disk.
func NewDeDevDepsCommand() *cobra.Command {
	var (
		selFlags       selectionFlags
		emptyIsFailure bool
	)

	cmd := &cobra.Command{
		Use:   "de-dev-deps",
		Short: "Remove the dev-dependencies section from the selected manifests",
		Long: `Strip dev-dependencies from every selected manifest. The release
pipeline does this (and restores it) automatically; run it standalone when
preparing manifests for an external packaging step.

This rewrites the manifests in place and does not restore them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := selFlags.criteria()
			if err != nil {
				return err
			}
			_, selected, err := resolveSelection(cmd.Context(), workspaceRoot(cmd), criteria, false)
			if err != nil {
				return err
			}
			if done, err := handleEmptySelection(selected, emptyIsFailure); done {
				return err
			}

			for i, p := range selected {
				deDevDepsLog.Printf("Stripping dev-dependencies from %s", p.ManifestPath)
				fmt.Fprintln(os.Stderr, console.FormatProgressMessage("Rewriting "+p.Name, i+1, len(selected)))
				if _, err := manifest.DeactivateDevDependencies(p.ManifestPath); err != nil {
					return err
				}
			}
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(
				fmt.Sprintf("Dev-dependencies removed from %s",
					console.FormatCountMessage(len(selected), "manifest", "manifests"))))
			return nil
		},
	}

	addSelectionFlags(cmd, &selFlags)
	cmd.Flags().BoolVar(&emptyIsFailure, "empty-package-is-failure", false,
		"Treat an empty selection as an error")
	return cmd
}
