// Package versions applies bulk version mutations across the workspace:
// hard sets, the bump family, and pre-release counter increments. Writes
// are independent per package, so one failed manifest never blocks the
// others.
package versions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/sourcegraph/conc/pool"

	"github.com/monoship/monoship/pkg/logger"
	"github.com/monoship/monoship/pkg/manifest"
	"github.com/monoship/monoship/pkg/workspace"
)

var versionsLog = logger.New("versions:versions")

// Mapper produces the new version for a package, or nil to leave it
// untouched.
type Mapper func(p *workspace.Package) *semver.Version

// Apply rewrites the version field of every selected package using mapper.
// Each manifest write is independent; failures are collected and returned
// joined, after all writes were attempted.
func Apply(selected []*workspace.Package, mapper Mapper) error {
	writes := pool.New().WithErrors()
	for _, p := range selected {
		writes.Go(func() error {
			next := mapper(p)
			if next == nil {
				return nil
			}
			versionsLog.Printf("Bumping %s: %s -> %s", p.Name, p.Version, next)
			if err := manifest.WriteField(p.ManifestPath, "version", next.String()); err != nil {
				return fmt.Errorf("updating %s: %w", p.Name, err)
			}
			return nil
		})
	}
	return writes.Wait()
}

// SetField writes an arbitrary manifest field on every selected package.
// Like Apply, per-package failures do not block the remaining writes.
func SetField(selected []*workspace.Package, name string, value any) error {
	writes := pool.New().WithErrors()
	for _, p := range selected {
		writes.Go(func() error {
			versionsLog.Printf("Setting %s=%v on %s", name, value, p.Name)
			if err := manifest.WriteField(p.ManifestPath, name, value); err != nil {
				return fmt.Errorf("updating %s: %w", p.Name, err)
			}
			return nil
		})
	}
	return writes.Wait()
}

// Set returns a mapper that hard-sets every package to version.
func Set(version *semver.Version) Mapper {
	return func(*workspace.Package) *semver.Version { return version }
}

// BumpPre increments the pre-release counter: no suffix starts at "1", a
// numeric suffix is incremented, and a dotted suffix has its last numeric
// segment bumped (or ".1" appended when the tail is not numeric).
func BumpPre(p *workspace.Package) *semver.Version {
	v := p.Version
	pre := v.Prerelease()
	switch {
	case pre == "":
		pre = "1"
	default:
		if n, err := strconv.ParseUint(pre, 10, 32); err == nil {
			pre = strconv.FormatUint(n+1, 10)
			break
		}
		parts := strings.Split(pre, ".")
		if n, err := strconv.ParseUint(parts[len(parts)-1], 10, 32); err == nil {
			parts[len(parts)-1] = strconv.FormatUint(n+1, 10)
		} else {
			parts = append(parts, "1")
		}
		pre = strings.Join(parts, ".")
	}
	return semver.New(v.Major(), v.Minor(), v.Patch(), pre, v.Metadata())
}

// BumpPatch increments the patch version and clears the pre-release.
func BumpPatch(p *workspace.Package) *semver.Version {
	v := p.Version
	return semver.New(v.Major(), v.Minor(), v.Patch()+1, "", "")
}

// BumpMinor increments the minor version, resetting patch and pre-release.
func BumpMinor(p *workspace.Package) *semver.Version {
	v := p.Version
	return semver.New(v.Major(), v.Minor()+1, 0, "", "")
}

// BumpMajor increments the major version, resetting everything below it.
func BumpMajor(p *workspace.Package) *semver.Version {
	v := p.Version
	return semver.New(v.Major()+1, 0, 0, "", "")
}

// BumpBreaking bumps the next breaking slot under semver caret semantics:
// major when major > 0, else minor when minor > 0, else patch.
func BumpBreaking(p *workspace.Package) *semver.Version {
	v := p.Version
	switch {
	case v.Major() != 0:
		return BumpMajor(p)
	case v.Minor() != 0:
		return BumpMinor(p)
	default:
		return BumpPatch(p)
	}
}

// BumpToDev bumps the next breaking slot and sets the given pre-release
// tag ("dev" when empty).
func BumpToDev(preTag string) Mapper {
	if preTag == "" {
		preTag = "dev"
	}
	return func(p *workspace.Package) *semver.Version {
		next := BumpBreaking(p)
		return semver.New(next.Major(), next.Minor(), next.Patch(), preTag, "")
	}
}

// Release clears pre-release and build metadata, turning a pre-release
// version into its release form.
func Release(p *workspace.Package) *semver.Version {
	v := p.Version
	return semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
}

// SetPre returns a mapper that replaces the pre-release identifier.
func SetPre(pre string) Mapper {
	return func(p *workspace.Package) *semver.Version {
		v := p.Version
		return semver.New(v.Major(), v.Minor(), v.Patch(), pre, v.Metadata())
	}
}

// SetBuild returns a mapper that replaces the build metadata.
func SetBuild(meta string) Mapper {
	return func(p *workspace.Package) *semver.Version {
		v := p.Version
		return semver.New(v.Major(), v.Minor(), v.Patch(), v.Prerelease(), meta)
	}
}
