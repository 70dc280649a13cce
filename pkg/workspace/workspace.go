// Package workspace builds the in-memory model of a multi-package workspace:
// the package arena, the local dependency graph, and the selection filter
// that narrows the package set for a release.
package workspace

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/monoship/monoship/pkg/logger"
	"github.com/monoship/monoship/pkg/manifest"
)

var wsLog = logger.New("workspace:workspace")

// Package is a node in the workspace graph. Dependency edges are stored on
// the Workspace as integer indices; the package itself only carries the
// resolved metadata.
type Package struct {
	Name         string
	Version      *semver.Version
	Dir          string
	ManifestPath string
	Description  string
	Repository   string
	publish      bool

	// External lists declared dependency names that do not resolve to a
	// workspace member. They never contribute ordering edges.
	External []string
}

// Publishable reports whether the package may be uploaded to a registry.
func (p *Package) Publishable() bool { return p.publish }

// Prerelease returns the pre-release identifier of the current version
// ("" when none).
func (p *Package) Prerelease() string { return p.Version.Prerelease() }

// String renders the package as "name (version)" for status output.
func (p *Package) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Version)
}

// GraphError reports a structural problem with the workspace: duplicate
// package names or a path-pinned dependency that does not resolve to a
// member. These are configuration errors, fatal before any stage runs.
type GraphError struct {
	Message string
}

func (e *GraphError) Error() string { return e.Message }

// Workspace is an immutable snapshot of all packages and their local
// dependency edges. Edges are kept as adjacency lists of arena indices so
// dependency and dependent never hold references to each other.
type Workspace struct {
	Root string

	packages []*Package
	index    map[string]int

	deps    [][]int // build edges: deps[i] lists indices i depends on
	devDeps [][]int // dev edges, excluded from ordering by default

	dependents    [][]int // reverse build edges
	devDependents [][]int // reverse dev edges
}

// Load reads every manifest below root and assembles the workspace graph.
func Load(root string) (*Workspace, error) {
	manifests, err := manifest.LoadWorkspace(root)
	if err != nil {
		return nil, err
	}
	return New(root, manifests)
}

// New builds a workspace from already-parsed manifests. It resolves local
// dependency names to arena indices and validates the structure.
func New(root string, manifests []*manifest.Package) (*Workspace, error) {
	wsLog.Printf("Building workspace graph from %d manifests", len(manifests))

	ws := &Workspace{
		Root:  root,
		index: make(map[string]int, len(manifests)),
	}

	// Stable arena order keeps everything downstream deterministic.
	sorted := make([]*manifest.Package, len(manifests))
	copy(sorted, manifests)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, m := range sorted {
		if prev, dup := ws.index[m.Name]; dup {
			return nil, &GraphError{Message: fmt.Sprintf(
				"duplicate package name %q (in %s and %s)", m.Name, ws.packages[prev].Dir, m.Dir)}
		}
		version, err := semver.NewVersion(m.Version)
		if err != nil {
			return nil, &GraphError{Message: fmt.Sprintf(
				"package %q has invalid version %q: %v", m.Name, m.Version, err)}
		}
		ws.index[m.Name] = len(ws.packages)
		ws.packages = append(ws.packages, &Package{
			Name:         m.Name,
			Version:      version,
			Dir:          m.Dir,
			ManifestPath: m.ManifestPath(),
			Description:  m.Description,
			Repository:   m.Repository,
			publish:      m.Publishable(),
		})
	}

	n := len(ws.packages)
	ws.deps = make([][]int, n)
	ws.devDeps = make([][]int, n)
	ws.dependents = make([][]int, n)
	ws.devDependents = make([][]int, n)

	for _, m := range sorted {
		from := ws.index[m.Name]
		if err := ws.resolveEdges(from, m.Name, m.Dependencies, false); err != nil {
			return nil, err
		}
		if err := ws.resolveEdges(from, m.Name, m.DevDependencies, true); err != nil {
			return nil, err
		}
	}

	wsLog.Printf("Workspace graph built: %d packages", n)
	return ws, nil
}

func (ws *Workspace) resolveEdges(from int, fromName string, declared []manifest.Dependency, dev bool) error {
	for _, dep := range declared {
		to, member := ws.index[dep.Name]
		if !member {
			if dep.Local() {
				return &GraphError{Message: fmt.Sprintf(
					"package %q declares local dependency %q (path %s) which is not a workspace member",
					fromName, dep.Name, dep.Path)}
			}
			wsLog.Printf("Package %s: dependency %s is external, ignored for ordering", fromName, dep.Name)
			ws.packages[from].External = append(ws.packages[from].External, dep.Name)
			continue
		}
		if to == from {
			return &GraphError{Message: fmt.Sprintf("package %q depends on itself", fromName)}
		}
		if dev {
			ws.devDeps[from] = append(ws.devDeps[from], to)
			ws.devDependents[to] = append(ws.devDependents[to], from)
		} else {
			ws.deps[from] = append(ws.deps[from], to)
			ws.dependents[to] = append(ws.dependents[to], from)
		}
	}
	return nil
}

// Len returns the number of packages in the snapshot.
func (ws *Workspace) Len() int { return len(ws.packages) }

// Packages returns all packages in stable (name) order. The slice is shared;
// callers must not mutate it.
func (ws *Workspace) Packages() []*Package { return ws.packages }

// Lookup returns the package with the given name, if it is a member.
func (ws *Workspace) Lookup(name string) (*Package, bool) {
	i, ok := ws.index[name]
	if !ok {
		return nil, false
	}
	return ws.packages[i], true
}

// DependenciesOf returns the local packages that name depends on
// (successors in the publish-order sense). Dev edges are included only on
// request since they do not gate publishing.
func (ws *Workspace) DependenciesOf(name string, includeDev bool) []*Package {
	return ws.neighbors(name, includeDev, ws.deps, ws.devDeps)
}

// DependentsOf returns the local packages that depend on name
// (predecessors).
func (ws *Workspace) DependentsOf(name string, includeDev bool) []*Package {
	return ws.neighbors(name, includeDev, ws.dependents, ws.devDependents)
}

func (ws *Workspace) neighbors(name string, includeDev bool, build, dev [][]int) []*Package {
	i, ok := ws.index[name]
	if !ok {
		return nil
	}
	seen := make(map[int]bool)
	var result []*Package
	for _, j := range build[i] {
		if !seen[j] {
			seen[j] = true
			result = append(result, ws.packages[j])
		}
	}
	if includeDev {
		for _, j := range dev[i] {
			if !seen[j] {
				seen[j] = true
				result = append(result, ws.packages[j])
			}
		}
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Name < result[b].Name })
	return result
}

// TransitiveDependenciesOf returns every local package reachable from name
// over dependency edges, not including name itself.
func (ws *Workspace) TransitiveDependenciesOf(name string, includeDev bool) []*Package {
	return ws.closure(name, func(n string) []*Package { return ws.DependenciesOf(n, includeDev) })
}

// TransitiveDependentsOf returns every local package that transitively
// depends on name, not including name itself. This is the cascade set used
// by change detection.
func (ws *Workspace) TransitiveDependentsOf(name string, includeDev bool) []*Package {
	return ws.closure(name, func(n string) []*Package { return ws.DependentsOf(n, includeDev) })
}

func (ws *Workspace) closure(name string, next func(string) []*Package) []*Package {
	seen := map[string]bool{name: true}
	queue := []string{name}
	var result []*Package
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, p := range next(current) {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			result = append(result, p)
			queue = append(queue, p.Name)
		}
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Name < result[b].Name })
	return result
}

// OwnerOf maps a file path (absolute or workspace-relative) to the package
// whose directory is the longest prefix of the path, if any.
func (ws *Workspace) OwnerOf(path string) (*Package, bool) {
	var best *Package
	bestLen := -1
	for _, p := range ws.packages {
		dir := p.Dir
		rel, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if len(dir) > bestLen {
			best = p
			bestLen = len(dir)
		}
	}
	return best, best != nil
}
