//go:build !integration

package versions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monoship/monoship/pkg/manifest"
	"github.com/monoship/monoship/pkg/testutil"
	"github.com/monoship/monoship/pkg/workspace"
)

func at(t *testing.T, version string) *workspace.Package {
	t.Helper()
	return &workspace.Package{Name: "probe", Version: semver.MustParse(version)}
}

func TestMappers(t *testing.T) {
	tests := []struct {
		name   string
		mapper Mapper
		in     string
		want   string
	}{
		{"bump-pre starts counter", BumpPre, "1.2.0", "1.2.0-1"},
		{"bump-pre increments numeric", BumpPre, "1.2.0-3", "1.2.0-4"},
		{"bump-pre increments dotted tail", BumpPre, "1.2.0-alpha.1", "1.2.0-alpha.2"},
		{"bump-pre appends to named tail", BumpPre, "1.2.0-alpha", "1.2.0-alpha.1"},
		{"bump-pre keeps build metadata", BumpPre, "1.2.0-1+build5", "1.2.0-2+build5"},

		{"bump-patch", BumpPatch, "1.2.3", "1.2.4"},
		{"bump-patch clears pre", BumpPatch, "1.2.3-rc.1", "1.2.4"},
		{"bump-minor", BumpMinor, "1.2.3", "1.3.0"},
		{"bump-major", BumpMajor, "1.2.3", "2.0.0"},

		{"bump-breaking on stable major", BumpBreaking, "2.3.1", "3.0.0"},
		{"bump-breaking on zero major", BumpBreaking, "0.3.1", "0.4.0"},
		{"bump-breaking on zero minor", BumpBreaking, "0.0.7", "0.0.8"},

		{"bump-to-dev default tag", BumpToDev(""), "0.3.1", "0.4.0-dev"},
		{"bump-to-dev custom tag", BumpToDev("alpha"), "1.0.0", "2.0.0-alpha"},

		{"release strips pre and build", Release, "1.2.0-rc.2+abc", "1.2.0"},
		{"release on stable is identity", Release, "1.2.0", "1.2.0"},

		{"set-pre", SetPre("beta.1"), "1.2.0-alpha", "1.2.0-beta.1"},
		{"set-build", SetBuild("sha.f00"), "1.2.0-alpha", "1.2.0-alpha+sha.f00"},
		{"set", Set(semver.MustParse("9.9.9")), "1.0.0", "9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.mapper(at(t, tt.in))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func manifestOnDisk(t *testing.T, name, version string) *workspace.Package {
	t.Helper()
	dir := testutil.TempDir(t, "versions-"+name)
	path := filepath.Join(dir, manifest.Filename)
	content := "name: " + name + "\nversion: " + version + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &workspace.Package{
		Name:         name,
		Version:      semver.MustParse(version),
		Dir:          dir,
		ManifestPath: path,
	}
}

func TestApplyWritesManifests(t *testing.T) {
	a := manifestOnDisk(t, "alpha", "1.0.0")
	b := manifestOnDisk(t, "beta", "2.1.0")

	require.NoError(t, Apply([]*workspace.Package{a, b}, BumpMinor))

	for _, tc := range []struct {
		pkg  *workspace.Package
		want string
	}{{a, "1.1.0"}, {b, "2.2.0"}} {
		parsed, err := manifest.ReadPackage(tc.pkg.Dir)
		require.NoError(t, err)
		assert.Equal(t, tc.want, parsed.Version)
	}
}

func TestApplySkipsNilMappings(t *testing.T) {
	a := manifestOnDisk(t, "alpha", "1.0.0")

	require.NoError(t, Apply([]*workspace.Package{a}, func(*workspace.Package) *semver.Version {
		return nil
	}))

	parsed, err := manifest.ReadPackage(a.Dir)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", parsed.Version)
}

func TestApplyCollectsFailures(t *testing.T) {
	good := manifestOnDisk(t, "good", "1.0.0")
	bad := manifestOnDisk(t, "bad", "1.0.0")
	require.NoError(t, os.Remove(bad.ManifestPath))

	err := Apply([]*workspace.Package{bad, good}, BumpPatch)
	require.Error(t, err)
	assert.ErrorContains(t, err, "bad")

	// The failing manifest never blocks the others.
	parsed, readErr := manifest.ReadPackage(good.Dir)
	require.NoError(t, readErr)
	assert.Equal(t, "1.0.1", parsed.Version)
}

func TestSetField(t *testing.T) {
	a := manifestOnDisk(t, "alpha", "1.0.0")

	require.NoError(t, SetField([]*workspace.Package{a}, "repository", "https://example.com/repo"))

	parsed, err := manifest.ReadPackage(a.Dir)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/repo", parsed.Repository)
}
