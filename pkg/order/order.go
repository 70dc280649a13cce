// Package order computes the release plan: a deterministic topological
// order of the selected packages in which every dependency is published
// before its dependents. Publish-order correctness is a safety property, so
// a cycle fails the whole operation rather than degrading to a partial
// order.
package order

import (
	"fmt"
	"sort"
	"strings"

	"github.com/monoship/monoship/pkg/logger"
	"github.com/monoship/monoship/pkg/workspace"
)

var orderLog = logger.New("order:order")

// CycleError reports a dependency cycle among the selected packages, naming
// every package involved.
type CycleError struct {
	Packages []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle between packages: %s", strings.Join(e.Packages, ", "))
}

// AsCycleError unwraps err to a *CycleError, or returns nil.
func AsCycleError(err error) *CycleError {
	for err != nil {
		if cycleErr, ok := err.(*CycleError); ok {
			return cycleErr
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = unwrapper.Unwrap()
	}
	return nil
}

// Plan topologically sorts the selected packages over the dependency edges
// of ws, restricted to the selected set. Edges to unselected packages are
// elided: an unselected dependency is assumed already published or
// external. Dev edges are included only on request since they do not gate
// publish correctness.
//
// The sort is Kahn's algorithm with a name-sorted frontier, so the same
// selection always yields the same plan.
func Plan(ws *workspace.Workspace, selected []*workspace.Package, includeDev bool) ([]*workspace.Package, error) {
	orderLog.Printf("Planning release order for %d packages (dev edges: %v)", len(selected), includeDev)

	inSelection := make(map[string]*workspace.Package, len(selected))
	for _, p := range selected {
		inSelection[p.Name] = p
	}

	// Induced subgraph: per-package count of unsatisfied dependencies, and
	// reverse edges to decrement dependents once a package is placed.
	pending := make(map[string]int, len(selected))
	dependents := make(map[string][]string, len(selected))
	for _, p := range selected {
		deps := 0
		for _, dep := range ws.DependenciesOf(p.Name, includeDev) {
			if _, ok := inSelection[dep.Name]; !ok {
				continue
			}
			deps++
			dependents[dep.Name] = append(dependents[dep.Name], p.Name)
		}
		pending[p.Name] = deps
	}

	frontier := make([]string, 0, len(selected))
	for name, count := range pending {
		if count == 0 {
			frontier = append(frontier, name)
		}
	}
	sort.Strings(frontier)

	plan := make([]*workspace.Package, 0, len(selected))
	for len(frontier) > 0 {
		// Name tie-break: always take the smallest ready package.
		name := frontier[0]
		frontier = frontier[1:]
		plan = append(plan, inSelection[name])

		released := make([]string, 0, len(dependents[name]))
		for _, dependent := range dependents[name] {
			pending[dependent]--
			if pending[dependent] == 0 {
				released = append(released, dependent)
			}
		}
		if len(released) > 0 {
			frontier = append(frontier, released...)
			sort.Strings(frontier)
		}
	}

	if len(plan) != len(selected) {
		var cycle []string
		for name, count := range pending {
			if count > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return nil, &CycleError{Packages: cycle}
	}

	orderLog.Printf("Release plan: %d packages", len(plan))
	return plan, nil
}

// Dot renders the induced dependency graph of the selected packages as
// Graphviz dot text, edges pointing from dependent to dependency.
func Dot(ws *workspace.Workspace, selected []*workspace.Package, includeDev bool) string {
	inSelection := make(map[string]bool, len(selected))
	for _, p := range selected {
		inSelection[p.Name] = true
	}

	var b strings.Builder
	b.WriteString("digraph release {\n")
	for _, p := range selected {
		fmt.Fprintf(&b, "  %q [label=%q];\n", p.Name, p.String())
	}
	for _, p := range selected {
		for _, dep := range ws.DependenciesOf(p.Name, includeDev) {
			if inSelection[dep.Name] {
				fmt.Fprintf(&b, "  %q -> %q;\n", p.Name, dep.Name)
			}
		}
	}
	b.WriteString("}\n")
	return b.String()
}
