package cli

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/monoship/monoship/pkg/console"
	"github.com/monoship/monoship/pkg/versions"
	"github.com/monoship/monoship/pkg/workspace"
)

// NewVersionCommand creates the version command and its bump subcommands.
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Adjust the version of the selected packages",
		Long: `Rewrite the version field of every selected package manifest. Each
subcommand applies a different transformation; writes are independent per
package, so one broken manifest never blocks the others.

Examples:
  # Bump the pre-release counter on everything still in alpha
  monoship version bump-pre -p 'core-*'

  # Strip pre-release suffixes before cutting the release
  monoship version release`,
	}

	cmd.AddCommand(newVersionSetCommand())
	cmd.AddCommand(newVersionMapperCommand("bump-pre",
		"Increment the pre-release counter (1.2.0-alpha.1 -> 1.2.0-alpha.2)", versions.BumpPre))
	cmd.AddCommand(newVersionMapperCommand("bump-patch",
		"Increment the patch version, clearing any pre-release", versions.BumpPatch))
	cmd.AddCommand(newVersionMapperCommand("bump-minor",
		"Increment the minor version, resetting patch", versions.BumpMinor))
	cmd.AddCommand(newVersionMapperCommand("bump-major",
		"Increment the major version, resetting minor and patch", versions.BumpMajor))
	cmd.AddCommand(newVersionMapperCommand("bump-breaking",
		"Increment the next breaking slot under caret semantics", versions.BumpBreaking))
	cmd.AddCommand(newVersionBumpToDevCommand())
	cmd.AddCommand(newVersionMapperCommand("release",
		"Clear pre-release and build metadata (1.2.0-rc.1 -> 1.2.0)", versions.Release))
	cmd.AddCommand(newVersionSetPreCommand())
	cmd.AddCommand(newVersionSetBuildCommand())
	return cmd
}

// runVersionMapper is the shared body of every version subcommand: resolve
// the selection, apply the mapper, report the count.
func runVersionMapper(cmd *cobra.Command, selFlags *selectionFlags, emptyIsFailure bool, mapper versions.Mapper) error {
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
	if err := versions.Apply(selected, mapper); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(
		fmt.Sprintf("Updated %s", console.FormatCountMessage(len(selected), "package", "packages"))))
	return nil
}

func newVersionMapperCommand(use, short string, mapper versions.Mapper) *cobra.Command {
	var (
		selFlags       selectionFlags
		emptyIsFailure bool
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersionMapper(cmd, &selFlags, emptyIsFailure, mapper)
		},
	}
	addSelectionFlags(cmd, &selFlags)
	cmd.Flags().BoolVar(&emptyIsFailure, "empty-package-is-failure", false,
		"Treat an empty selection as an error")
	return cmd
}

func newVersionSetCommand() *cobra.Command {
	var (
		selFlags       selectionFlags
		emptyIsFailure bool
	)
	cmd := &cobra.Command{
		Use:   "set <version>",
		Short: "Hard-set every selected package to the given version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := semver.StrictNewVersion(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return runVersionMapper(cmd, &selFlags, emptyIsFailure, versions.Set(v))
		},
	}
	addSelectionFlags(cmd, &selFlags)
	cmd.Flags().BoolVar(&emptyIsFailure, "empty-package-is-failure", false,
		"Treat an empty selection as an error")
	return cmd
}

func newVersionBumpToDevCommand() *cobra.Command {
	var (
		selFlags       selectionFlags
		emptyIsFailure bool
		preTag         string
	)
	cmd := &cobra.Command{
		Use:   "bump-to-dev",
		Short: "Bump the next breaking slot and mark it as a dev pre-release",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersionMapper(cmd, &selFlags, emptyIsFailure, versions.BumpToDev(preTag))
		},
	}
	addSelectionFlags(cmd, &selFlags)
	cmd.Flags().BoolVar(&emptyIsFailure, "empty-package-is-failure", false,
		"Treat an empty selection as an error")
	cmd.Flags().StringVar(&preTag, "pre-tag", "dev",
		"Pre-release identifier to set after bumping")
	return cmd
}

func newVersionSetPreCommand() *cobra.Command {
	var (
		selFlags       selectionFlags
		emptyIsFailure bool
	)
	cmd := &cobra.Command{
		Use:   "set-pre <identifier>",
		Short: "Replace the pre-release identifier on every selected package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validIdentifier(args[0], "-"); err != nil {
				return err
			}
			return runVersionMapper(cmd, &selFlags, emptyIsFailure, versions.SetPre(args[0]))
		},
	}
	addSelectionFlags(cmd, &selFlags)
	cmd.Flags().BoolVar(&emptyIsFailure, "empty-package-is-failure", false,
		"Treat an empty selection as an error")
	return cmd
}

func newVersionSetBuildCommand() *cobra.Command {
	var (
		selFlags       selectionFlags
		emptyIsFailure bool
	)
	cmd := &cobra.Command{
		Use:   "set-build <metadata>",
		Short: "Replace the build metadata on every selected package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validIdentifier(args[0], "+"); err != nil {
				return err
			}
			return runVersionMapper(cmd, &selFlags, emptyIsFailure, versions.SetBuild(args[0]))
		},
	}
	addSelectionFlags(cmd, &selFlags)
	cmd.Flags().BoolVar(&emptyIsFailure, "empty-package-is-failure", false,
		"Treat an empty selection as an error")
	return cmd
}

// validIdentifier checks a pre-release ("-") or build ("+") identifier by
// round-tripping it through a throwaway version, so the accepted grammar is
// exactly what semver accepts.
func validIdentifier(ident, sep string) error {
	if ident == "" {
		return &workspace.ConfigError{Message: "identifier must not be empty"}
	}
	if _, err := semver.StrictNewVersion("0.0.0" + sep + ident); err != nil {
		return fmt.Errorf("invalid identifier %q: %w", ident, err)
	}
	return nil
}
