// Package gitutil wraps git subprocess invocations used for change
// detection. Repository internals stay in git itself; this package only
// shells out and parses plumbing output.
package gitutil

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/monoship/monoship/pkg/logger"
)

var gitLog = logger.New("gitutil:gitutil")

// ExecGit builds a git command running in dir.
//
// Usage:
//
//	cmd := ExecGit(repoRoot, "diff", "--name-only", "main")
//	output, err := cmd.Output()
func ExecGit(dir string, args ...string) *exec.Cmd {
	gitLog.Printf("git command in %s: git %v", dir, args)
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	return cmd
}

// ExecGitContext is ExecGit with cancellation support.
func ExecGitContext(ctx context.Context, dir string, args ...string) *exec.Cmd {
	gitLog.Printf("git command (ctx) in %s: git %v", dir, args)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd
}

// DiffProvider resolves a reference and lists the files that differ between
// it and the working tree.
type DiffProvider struct{}

// ChangedFiles returns paths of files changed since sinceRef, relative to
// root. The diff is restricted to root, so a workspace that is a
// subdirectory of its repository still maps cleanly onto package dirs. The
// reference is resolved first so an unknown ref fails loudly instead of
// producing an empty diff.
func (DiffProvider) ChangedFiles(ctx context.Context, root, sinceRef string) ([]string, error) {
	if _, err := ExecGitContext(ctx, root, "rev-parse", "--verify", sinceRef+"^{commit}").Output(); err != nil {
		return nil, fmt.Errorf("reference %q not found in git repository: %w", sinceRef, firstExecError(err))
	}

	output, err := ExecGitContext(ctx, root, "diff", "--name-only", "--relative", sinceRef).Output()
	if err != nil {
		return nil, fmt.Errorf("git diff against %q failed: %w", sinceRef, firstExecError(err))
	}

	var files []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	gitLog.Printf("%d files changed since %s", len(files), sinceRef)
	return files, nil
}

// firstExecError surfaces captured stderr from an ExitError, which is where
// git puts the human-readable cause.
func firstExecError(err error) error {
	if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%s", strings.TrimSpace(string(exitErr.Stderr)))
	}
	return err
}
