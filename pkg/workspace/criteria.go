package workspace

import (
	"fmt"
	"regexp"

	"github.com/monoship/monoship/pkg/logger"
)

var selectLog = logger.New("workspace:select")

// ConfigError reports conflicting or invalid selection criteria. It is
// always fatal before any stage runs.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// Criteria narrows the workspace package set for an operation. It is an
// immutable value; build it with NewCriteria so invalid flag combinations
// are rejected up front instead of surfacing mid-pipeline.
type Criteria struct {
	// Packages restricts the selection to names matching any of these
	// patterns. Mutually exclusive with Skip, IgnorePreVersion and
	// ChangedSince.
	Packages []*regexp.Regexp

	// Skip drops packages whose name matches any of these patterns.
	Skip []*regexp.Regexp

	// IgnorePreVersion drops packages whose version carries one of these
	// pre-release identifiers (e.g. "dev").
	IgnorePreVersion []string

	// IgnorePublish includes packages even when their manifest marks them
	// non-publishable.
	IgnorePublish bool

	// ChangedSince selects only packages changed since the given git
	// reference, plus their transitive dependents.
	ChangedSince string

	// IncludePreDeps re-admits pre-release packages that would otherwise be
	// excluded, so changed-since cascades can pull them in.
	IncludePreDeps bool
}

// NewCriteria validates the combination and returns the immutable value.
func NewCriteria(packages, skip []string, ignorePreVersion []string, ignorePublish bool, changedSince string, includePreDeps bool) (Criteria, error) {
	if len(packages) > 0 {
		if len(skip) > 0 || len(ignorePreVersion) > 0 {
			return Criteria{}, &ConfigError{Message: "--packages is mutually exclusive with --skip and --ignore-pre-version"}
		}
		if changedSince != "" {
			return Criteria{}, &ConfigError{Message: "--packages is mutually exclusive with --changed-since"}
		}
	}
	if changedSince != "" && (len(skip) > 0 || len(ignorePreVersion) > 0) {
		return Criteria{}, &ConfigError{Message: "--changed-since is mutually exclusive with --skip and --ignore-pre-version"}
	}

	compile := func(patterns []string, flag string) ([]*regexp.Regexp, error) {
		var compiled []*regexp.Regexp
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, &ConfigError{Message: fmt.Sprintf("invalid %s pattern %q: %v", flag, p, err)}
			}
			compiled = append(compiled, re)
		}
		return compiled, nil
	}

	pkgPatterns, err := compile(packages, "--packages")
	if err != nil {
		return Criteria{}, err
	}
	skipPatterns, err := compile(skip, "--skip")
	if err != nil {
		return Criteria{}, err
	}

	return Criteria{
		Packages:         pkgPatterns,
		Skip:             skipPatterns,
		IgnorePreVersion: ignorePreVersion,
		IgnorePublish:    ignorePublish,
		ChangedSince:     changedSince,
		IncludePreDeps:   includePreDeps,
	}, nil
}

// Select applies the criteria to the workspace and returns the matching
// packages in arena (name) order. Result ordering is irrelevant for
// correctness here; publish order is the orderer's job.
//
// changed is the change-detection result for Criteria.ChangedSince; callers
// pass nil when no change reference was given. Select itself never touches
// git, keeping it a pure function of its inputs.
func Select(ws *Workspace, criteria Criteria, changed map[string]bool) []*Package {
	var selected []*Package
	for _, p := range ws.Packages() {
		if matches(p, criteria, changed) {
			selected = append(selected, p)
		}
	}
	selectLog.Printf("Selected %d of %d packages", len(selected), ws.Len())
	return selected
}

func matches(p *Package, c Criteria, changed map[string]bool) bool {
	if !c.IgnorePublish && !p.Publishable() {
		selectLog.Printf("%s: excluded, marked non-publishable", p.Name)
		return false
	}

	// A pre-release package rides along regardless of other filters when
	// pre-dep cascading is requested.
	preRideAlong := c.IncludePreDeps && p.Prerelease() != ""

	if changed != nil {
		return changed[p.Name] || preRideAlong
	}

	if len(c.Packages) > 0 {
		for _, re := range c.Packages {
			if re.MatchString(p.Name) {
				return true
			}
		}
		return preRideAlong
	}

	for _, re := range c.Skip {
		if re.MatchString(p.Name) {
			selectLog.Printf("%s: excluded by skip pattern", p.Name)
			return false
		}
	}
	if pre := p.Prerelease(); pre != "" {
		for _, excluded := range c.IgnorePreVersion {
			if pre == excluded {
				selectLog.Printf("%s: excluded, pre-release %q is ignored", p.Name, pre)
				return false
			}
		}
	}
	return true
}
