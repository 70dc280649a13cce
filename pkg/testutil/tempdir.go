// Package testutil provides shared helpers for tests, primarily temp
// directory management under a single per-run root so leftover artifacts
// are easy to find and clean up.
package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

var (
	testRunDirOnce sync.Once
	testRunDir     string
)

// GetTestRunDir returns the shared root directory for this test run,
// creating it on first use. All TempDir results live below it.
func GetTestRunDir() string {
	testRunDirOnce.Do(func() {
		base := filepath.Join(os.TempDir(), "monoship-test-runs")
		if err := os.MkdirAll(base, 0o755); err != nil {
			testRunDir = os.TempDir()
			return
		}
		dir, err := os.MkdirTemp(base, "run-*")
		if err != nil {
			testRunDir = base
			return
		}
		testRunDir = dir
	})
	return testRunDir
}

// TempDir creates a temp directory matching pattern under the test run root
// and registers cleanup with t.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp(GetTestRunDir(), pattern)
	if err != nil {
		t.Fatalf("failed to create temp directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return dir
}
