package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monoship/monoship/pkg/console"
	"github.com/monoship/monoship/pkg/envutil"
	"github.com/monoship/monoship/pkg/logger"
	"github.com/monoship/monoship/pkg/release"
)

var addOwnerLog = logger.New("cli:add_owner")

// NewAddOwnerCommand creates the add-owner command: grant a registry owner
// on every selected package without publishing anything.
func NewAddOwnerCommand() *cobra.Command {
	var (
		selFlags       selectionFlags
		owner          string
		token          string
		emptyIsFailure bool
	)

	cmd := &cobra.Command{
		Use:   "add-owner",
		Short: "Grant a registry owner on every selected package",
		Long: `Add the given owner to every selected package on the registry. Packages
where the owner is already present are reported as successes, so the
command is safe to re-run.`,
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

			if token == "" {
				token = envutil.GetStringFromEnv("MONOSHIP_TOKEN", "", addOwnerLog)
			}
			publisher := &release.ExecPublisher{}

			var failures int
			for _, p := range selected {
				err := publisher.AddOwner(cmd.Context(), p.Name, owner, token)
				switch {
				case err == nil:
					fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(
						fmt.Sprintf("Added %s as owner of %s", owner, p.Name)))
				case errors.Is(err, release.ErrAlreadyOwner):
					fmt.Fprintln(os.Stderr, console.FormatInfoMessage(
						fmt.Sprintf("%s is already an owner of %s", owner, p.Name)))
				default:
					failures++
					fmt.Fprintln(os.Stderr, console.FormatErrorMessage(
						fmt.Sprintf("Failed to add owner on %s: %v", p.Name, err)))
				}
			}
			if failures > 0 {
				return fmt.Errorf("owner update failed for %d of %d packages", failures, len(selected))
			}
			return nil
		},
	}

	addSelectionFlags(cmd, &selFlags)
	cmd.Flags().StringVar(&owner, "owner", "", "Owner to grant")
	cmd.Flags().StringVar(&token, "token", "",
		"Registry token (falls back to MONOSHIP_TOKEN)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
