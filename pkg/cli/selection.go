package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monoship/monoship/pkg/changes"
	"github.com/monoship/monoship/pkg/console"
	"github.com/monoship/monoship/pkg/gitutil"
	"github.com/monoship/monoship/pkg/logger"
	"github.com/monoship/monoship/pkg/workspace"
)

var selectionLog = logger.New("cli:selection")

// selectionFlags carries the package selection options shared by every
// command that narrows the workspace.
type selectionFlags struct {
	packages         []string
	skip             []string
	ignorePreVersion []string
	ignorePublish    bool
	changedSince     string
	includePreDeps   bool
}

// addSelectionFlags registers the shared selection flags on cmd.
func addSelectionFlags(cmd *cobra.Command, f *selectionFlags) {
	cmd.Flags().StringArrayVarP(&f.packages, "packages", "p", nil,
		"Only select packages whose name matches these patterns (mutually exclusive with --skip, --ignore-pre-version and --changed-since)")
	cmd.Flags().StringArrayVarP(&f.skip, "skip", "s", nil,
		"Skip packages whose name matches these patterns")
	cmd.Flags().StringArrayVarP(&f.ignorePreVersion, "ignore-pre-version", "i", nil,
		"Skip packages whose version carries one of these pre-release identifiers")
	cmd.Flags().BoolVar(&f.ignorePublish, "ignore-publish", false,
		"Include packages even when their manifest marks them non-publishable")
	cmd.Flags().StringVarP(&f.changedSince, "changed-since", "c", "",
		"Select only packages changed since this git reference, plus their dependents")
	cmd.Flags().BoolVar(&f.includePreDeps, "include-pre-deps", false,
		"Also include pre-release packages excluded by other filters (cascading)")
}

// criteria validates the flag combination into a Criteria value.
func (f *selectionFlags) criteria() (workspace.Criteria, error) {
	return workspace.NewCriteria(f.packages, f.skip, f.ignorePreVersion, f.ignorePublish, f.changedSince, f.includePreDeps)
}

// resolveSelection loads the workspace at root, runs change detection if a
// reference was given, and applies the selection filter. includeDevCascade
// extends the changed-since cascade over dev edges.
func resolveSelection(ctx context.Context, root string, criteria workspace.Criteria, includeDevCascade bool) (*workspace.Workspace, []*workspace.Package, error) {
	ws, err := workspace.Load(root)
	if err != nil {
		return nil, nil, err
	}
	selectionLog.Printf("Workspace loaded: %d packages", ws.Len())

	var changed map[string]bool
	if criteria.ChangedSince != "" {
		spinner := console.NewSpinner(fmt.Sprintf("Calculating git diff since %s", criteria.ChangedSince))
		spinner.Start()
		changed, err = changes.Detect(ctx, ws, gitutil.DiffProvider{}, criteria.ChangedSince, includeDevCascade)
		spinner.Stop()
		if err != nil {
			return nil, nil, err
		}
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf(
			"%s changed since %s", console.FormatCountMessage(len(changed), "package", "packages"), criteria.ChangedSince)))
	}

	selected := workspace.Select(ws, criteria, changed)
	return ws, selected, nil
}

// handleEmptySelection implements the empty-selection policy: by default an
// empty result is fine and the command stops cleanly; with the failure flag
// set it becomes an error.
func handleEmptySelection(selected []*workspace.Package, emptyIsFailure bool) (done bool, err error) {
	if len(selected) > 0 {
		return false, nil
	}
	if emptyIsFailure {
		return true, fmt.Errorf("no packages matching criteria")
	}
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage("No packages selected. All good. Exiting."))
	return true, nil
}

// workspaceRoot reads the global --root flag.
func workspaceRoot(cmd *cobra.Command) string {
	root, _ := cmd.Flags().GetString("root")
	if root == "" {
		root = "."
	}
	return root
}
