// Package cli wires the monoship commands: release planning, checking,
// publishing, and bulk version management for multi-package workspaces.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/monoship/monoship/pkg/logger"
)

var rootLog = logger.New("cli:root")

// version is overridden at build time via -ldflags.
var version = "dev"

// NewRootCommand assembles the monoship command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monoship",
		Short: "Release automation for multi-package workspaces",
		Long: `monoship decides which packages of a workspace to release, in what
order, and drives each of them through a verify -> publish -> post-actions
pipeline with dry-run support.

Packages are directories containing a package.yaml manifest. Local
dependencies between them form the graph that release ordering follows.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("root", "m", ".", "Path to the workspace root")

	cmd.AddCommand(NewToReleaseCommand())
	cmd.AddCommand(NewCheckCommand())
	cmd.AddCommand(NewReleaseCommand())
	cmd.AddCommand(NewVersionCommand())
	cmd.AddCommand(NewSetCommand())
	cmd.AddCommand(NewAddOwnerCommand())
	cmd.AddCommand(NewDeDevDepsCommand())
	cmd.AddCommand(NewCompletionCommand())

	rootLog.Print("Root command assembled")
	return cmd
}
