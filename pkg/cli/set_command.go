package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monoship/monoship/pkg/console"
	"github.com/monoship/monoship/pkg/versions"
	"github.com/monoship/monoship/pkg/workspace"
)

// NewSetCommand creates the set command: write an arbitrary manifest field
// on every selected package.
func NewSetCommand() *cobra.Command {
	var (
		selFlags       selectionFlags
		emptyIsFailure bool
	)

	cmd := &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set a manifest field on every selected package",
		Long: `Write the given field and value into the manifest of every selected
package. The name field is refused since renaming a package would silently
break every dependency entry pointing at it.

Examples:
  # Point every manifest at the new repository home
  monoship set repository https://github.com/example/monorepo`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, value := args[0], args[1]
			if field == "name" {
				return &workspace.ConfigError{Message: "refusing to set the name field, dependency entries reference packages by name"}
			}
			if field == "version" {
				return &workspace.ConfigError{Message: "use the version subcommands to change versions"}
			}

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

			if err := versions.SetField(selected, field, value); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(
				fmt.Sprintf("Set %s on %s", field, console.FormatCountMessage(len(selected), "package", "packages"))))
			return nil
		},
	}

	addSelectionFlags(cmd, &selFlags)
	cmd.Flags().BoolVar(&emptyIsFailure, "empty-package-is-failure", false,
		"Treat an empty selection as an error")
	return cmd
}
