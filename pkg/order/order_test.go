//go:build !integration

package order

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monoship/monoship/pkg/manifest"
	"github.com/monoship/monoship/pkg/workspace"
)

// buildWorkspace assembles a workspace from "name: dep dep" edge specs.
func buildWorkspace(t *testing.T, edges map[string][]string) *workspace.Workspace {
	t.Helper()
	manifests := make([]*manifest.Package, 0, len(edges))
	for name, deps := range edges {
		m := &manifest.Package{Name: name, Version: "1.0.0", Dir: filepath.Join("/ws", name)}
		for _, d := range deps {
			m.Dependencies = append(m.Dependencies, manifest.Dependency{Name: d})
		}
		manifests = append(manifests, m)
	}
	ws, err := workspace.New("/ws", manifests)
	require.NoError(t, err)
	return ws
}

func selectAll(ws *workspace.Workspace) []*workspace.Package {
	return ws.Packages()
}

func planNames(plan []*workspace.Package) []string {
	result := make([]string, 0, len(plan))
	for _, p := range plan {
		result = append(result, p.Name)
	}
	return result
}

func TestPlanOrdersDependenciesFirst(t *testing.T) {
	tests := []struct {
		name  string
		edges map[string][]string
		want  []string
	}{
		{
			name:  "single package",
			edges: map[string][]string{"core": nil},
			want:  []string{"core"},
		},
		{
			name: "chain",
			edges: map[string][]string{
				"app":  {"mid"},
				"mid":  {"core"},
				"core": nil,
			},
			want: []string{"core", "mid", "app"},
		},
		{
			name: "diamond with name tie-break",
			edges: map[string][]string{
				"core":   nil,
				"left":   {"core"},
				"right":  {"core"},
				"bundle": {"left", "right"},
			},
			want: []string{"core", "left", "right", "bundle"},
		},
		{
			name: "independent roots come out sorted",
			edges: map[string][]string{
				"zeta":  nil,
				"alpha": nil,
				"mixed": {"zeta", "alpha"},
			},
			want: []string{"alpha", "zeta", "mixed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := buildWorkspace(t, tt.edges)
			plan, err := Plan(ws, selectAll(ws), false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, planNames(plan))
		})
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	ws := buildWorkspace(t, map[string][]string{
		"a": nil, "b": nil, "c": nil,
		"d": {"a", "b"}, "e": {"b", "c"}, "f": {"d", "e"},
	})

	first, err := Plan(ws, selectAll(ws), false)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Plan(ws, selectAll(ws), false)
		require.NoError(t, err)
		assert.Equal(t, planNames(first), planNames(again))
	}
}

func TestPlanElidesEdgesToUnselected(t *testing.T) {
	ws := buildWorkspace(t, map[string][]string{
		"core": nil,
		"app":  {"core"},
	})
	app, ok := ws.Lookup("app")
	require.True(t, ok)

	// core is not part of the selection, so app has no pending dependency.
	plan, err := Plan(ws, []*workspace.Package{app}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, planNames(plan))
}

func TestPlanDevEdges(t *testing.T) {
	core := &manifest.Package{Name: "core", Version: "1.0.0", Dir: "/ws/core",
		DevDependencies: []manifest.Dependency{{Name: "testkit"}}}
	testkit := &manifest.Package{Name: "testkit", Version: "0.1.0", Dir: "/ws/testkit"}
	ws, err := workspace.New("/ws", []*manifest.Package{core, testkit})
	require.NoError(t, err)

	plan, err := Plan(ws, selectAll(ws), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "testkit"}, planNames(plan), "dev edge ignored, name order wins")

	plan, err = Plan(ws, selectAll(ws), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"testkit", "core"}, planNames(plan), "dev edge forces testkit first")
}

func TestPlanCycle(t *testing.T) {
	ws := buildWorkspace(t, map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"c": nil,
	})

	_, err := Plan(ws, selectAll(ws), false)
	require.Error(t, err)

	cycleErr := AsCycleError(err)
	require.NotNil(t, cycleErr)
	assert.Equal(t, []string{"a", "b"}, cycleErr.Packages)
	assert.ErrorContains(t, err, "dependency cycle between packages: a, b")
}

func TestAsCycleErrorUnwraps(t *testing.T) {
	inner := &CycleError{Packages: []string{"a", "b"}}
	wrapped := fmt.Errorf("planning failed: %w", inner)

	assert.Equal(t, inner, AsCycleError(wrapped))
	assert.Nil(t, AsCycleError(fmt.Errorf("unrelated")))
	assert.Nil(t, AsCycleError(nil))
}

func TestDot(t *testing.T) {
	ws := buildWorkspace(t, map[string][]string{
		"core": nil,
		"app":  {"core"},
	})

	dot := Dot(ws, selectAll(ws), false)
	assert.Contains(t, dot, "digraph release {")
	assert.Contains(t, dot, `"core" [label="core (1.0.0)"];`)
	assert.Contains(t, dot, `"app" -> "core";`)
	assert.NotContains(t, dot, `"core" -> "app"`)
}
