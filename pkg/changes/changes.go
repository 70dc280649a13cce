// Package changes implements change detection: mapping files changed since
// a git reference to their owning packages, then cascading "changed" status
// to every transitive dependent.
package changes

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/monoship/monoship/pkg/logger"
	"github.com/monoship/monoship/pkg/workspace"
)

var changesLog = logger.New("changes:changes")

// DiffProvider is the VCS collaborator contract. Returned paths are
// relative to root. The default implementation is gitutil.DiffProvider;
// tests substitute fakes.
type DiffProvider interface {
	ChangedFiles(ctx context.Context, root, sinceRef string) ([]string, error)
}

// VcsError reports that change detection was unavailable: unknown
// reference, missing repository, failing git. Always fatal; a release
// decision must never proceed on a false-empty change set.
type VcsError struct {
	Ref string
	Err error
}

func (e *VcsError) Error() string {
	return fmt.Sprintf("change detection against %q failed: %v", e.Ref, e.Err)
}

func (e *VcsError) Unwrap() error { return e.Err }

// Detect returns the set of package names considered changed since
// sinceRef: packages whose files were modified directly, plus all their
// transitive dependents (the cascade). Dev edges participate in the cascade
// only when includeDev is set.
func Detect(ctx context.Context, ws *workspace.Workspace, provider DiffProvider, sinceRef string, includeDev bool) (map[string]bool, error) {
	changesLog.Printf("Calculating git diff since %s", sinceRef)

	files, err := provider.ChangedFiles(ctx, ws.Root, sinceRef)
	if err != nil {
		return nil, &VcsError{Ref: sinceRef, Err: err}
	}

	changed := make(map[string]bool)
	for _, file := range files {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(ws.Root, file)
		}
		owner, ok := ws.OwnerOf(path)
		if !ok {
			changesLog.Printf("Changed file %s belongs to no package", file)
			continue
		}
		if !changed[owner.Name] {
			changesLog.Printf("Package %s changed directly (%s)", owner.Name, file)
		}
		changed[owner.Name] = true
	}

	// Cascade: anything depending on a changed package is itself changed.
	direct := make([]string, 0, len(changed))
	for name := range changed {
		direct = append(direct, name)
	}
	for _, name := range direct {
		for _, dependent := range ws.TransitiveDependentsOf(name, includeDev) {
			if !changed[dependent.Name] {
				changesLog.Printf("Package %s changed via cascade from %s", dependent.Name, name)
			}
			changed[dependent.Name] = true
		}
	}

	changesLog.Printf("%d packages changed since %s (including cascade)", len(changed), sinceRef)
	return changed, nil
}
