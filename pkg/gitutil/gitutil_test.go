//go:build !integration

package gitutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monoship/monoship/pkg/testutil"
)

// initRepo creates a git repository with one committed file under core/.
func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	root := testutil.TempDir(t, "gitutil-repo")
	run := func(args ...string) {
		t.Helper()
		cmd := ExecGit(root, args...)
		output, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, output)
	}
	run("init", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "core"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "core", "lib.go"), []byte("package core\n"), 0o644))
	run("add", ".")
	run("commit", "-m", "initial")
	return root
}

func TestChangedFiles(t *testing.T) {
	root := initRepo(t)
	ctx := context.Background()

	files, err := DiffProvider{}.ChangedFiles(ctx, root, "HEAD")
	require.NoError(t, err)
	assert.Empty(t, files, "clean tree has no diff")

	require.NoError(t, os.WriteFile(filepath.Join(root, "core", "lib.go"), []byte("package core // changed\n"), 0o644))
	files, err = DiffProvider{}.ChangedFiles(ctx, root, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, []string{"core/lib.go"}, files)
}

func TestChangedFilesWorkspaceInSubdirectory(t *testing.T) {
	repo := initRepo(t)
	ctx := context.Background()

	// The workspace lives below the repository root; reported paths must be
	// relative to the workspace, and outside changes must not leak in.
	sub := filepath.Join(repo, "packages")
	require.NoError(t, os.MkdirAll(filepath.Join(sub, "util"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "util", "util.go"), []byte("package util\n"), 0o644))
	add := ExecGit(repo, "add", ".")
	output, err := add.CombinedOutput()
	require.NoError(t, err, "%s", output)
	commit := ExecGit(repo, "commit", "-m", "add workspace")
	output, err = commit.CombinedOutput()
	require.NoError(t, err, "%s", output)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "util", "util.go"), []byte("package util // changed\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "core", "lib.go"), []byte("package core // outside\n"), 0o644))

	files, err := DiffProvider{}.ChangedFiles(ctx, sub, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, []string{"util/util.go"}, files)
}

func TestChangedFilesUnknownRef(t *testing.T) {
	root := initRepo(t)

	_, err := DiffProvider{}.ChangedFiles(context.Background(), root, "no-such-branch")
	require.Error(t, err)
	assert.ErrorContains(t, err, `reference "no-such-branch" not found`)
}
