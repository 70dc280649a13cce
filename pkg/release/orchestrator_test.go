//go:build !integration

package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monoship/monoship/pkg/manifest"
	"github.com/monoship/monoship/pkg/order"
	"github.com/monoship/monoship/pkg/testutil"
	"github.com/monoship/monoship/pkg/workspace"
)

// fakeRunner records verified directories and fails the configured ones.
type fakeRunner struct {
	fail  map[string]error // keyed by package dir base name
	calls []string
}

func (r *fakeRunner) Run(ctx context.Context, dir string, build bool) error {
	name := filepath.Base(dir)
	r.calls = append(r.calls, name)
	if err := r.fail[name]; err != nil {
		return err
	}
	return nil
}

// fakePublisher records publishes and owner grants in call order.
type fakePublisher struct {
	publishErr map[string]error
	ownerErr   map[string]error
	published  []string
	owners     []string
}

func (p *fakePublisher) Publish(ctx context.Context, dir, token string) error {
	name := filepath.Base(dir)
	if err := p.publishErr[name]; err != nil {
		return err
	}
	p.published = append(p.published, name)
	return nil
}

func (p *fakePublisher) AddOwner(ctx context.Context, pkgName, owner, token string) error {
	if err := p.ownerErr[pkgName]; err != nil {
		return err
	}
	p.owners = append(p.owners, pkgName+":"+owner)
	return nil
}

// pipelineWorkspace is core <- core-cli, core <- core-macros, plus an
// independent standalone package.
func pipelineWorkspace(t *testing.T) (*workspace.Workspace, []*workspace.Package) {
	t.Helper()
	pkg := func(name string, deps ...string) *manifest.Package {
		m := &manifest.Package{
			Name:        name,
			Version:     "1.0.0",
			Description: "test package " + name,
			Repository:  "https://example.com/repo",
			Dir:         filepath.Join("/ws", name),
		}
		for _, d := range deps {
			m.Dependencies = append(m.Dependencies, manifest.Dependency{Name: d})
		}
		return m
	}
	ws, err := workspace.New("/ws", []*manifest.Package{
		pkg("core"),
		pkg("core-cli", "core"),
		pkg("core-macros", "core"),
		pkg("standalone"),
	})
	require.NoError(t, err)

	plan, err := order.Plan(ws, ws.Packages(), false)
	require.NoError(t, err)
	return ws, plan
}

// newTestOrchestrator wires fakes in place of the exec-backed defaults.
// IncludeDevDeps keeps pre-flight away from the fake /ws manifest paths.
func newTestOrchestrator(ws *workspace.Workspace, opts Options) (*Orchestrator, *fakeRunner, *fakePublisher) {
	opts.IncludeDevDeps = true
	runner := &fakeRunner{}
	publisher := &fakePublisher{}
	o := New(ws, opts)
	o.Runner = runner
	o.Publisher = publisher
	return o, runner, publisher
}

func outcomeOf(t *testing.T, report *Report, name string) *PackageResult {
	t.Helper()
	result, ok := report.Result(name)
	require.True(t, ok, "package %s missing from report", name)
	return result
}

func TestRunPublishesEverythingInPlanOrder(t *testing.T) {
	ws, plan := pipelineWorkspace(t)
	o, runner, publisher := newTestOrchestrator(ws, Options{Owner: "release-bot"})

	report := o.Run(context.Background(), plan)

	assert.Equal(t, StatusCompleted, report.Status)
	assert.False(t, report.Failed())
	for _, name := range []string{"core", "core-cli", "core-macros", "standalone"} {
		result := outcomeOf(t, report, name)
		assert.Equal(t, OutcomeSuccess, result.Outcome)
		assert.Equal(t, StageOwners, result.Stage)
	}

	// Dependencies verified and uploaded before their dependents.
	assert.Equal(t, []string{"core", "core-cli", "core-macros", "standalone"}, runner.calls)
	assert.Equal(t, []string{"core", "core-cli", "core-macros", "standalone"}, publisher.published)
	assert.Contains(t, publisher.owners, "core:release-bot")

	published, skipped, failed := report.Counts()
	assert.Equal(t, [3]int{4, 0, 0}, [3]int{published, skipped, failed})
}

func TestVerifyFailureBlocksDependents(t *testing.T) {
	ws, plan := pipelineWorkspace(t)
	o, runner, publisher := newTestOrchestrator(ws, Options{})
	runner.fail = map[string]error{"core": errors.New("does not compile")}

	report := o.Run(context.Background(), plan)

	assert.Equal(t, StatusCompleted, report.Status)
	assert.True(t, report.Failed())

	core := outcomeOf(t, report, "core")
	assert.Equal(t, OutcomeFailed, core.Outcome)
	assert.Equal(t, StageVerify, core.Stage)
	assert.Equal(t, "build check failed", core.Reason)
	var buildErr *BuildError
	require.ErrorAs(t, core.Err, &buildErr)
	assert.Equal(t, "core", buildErr.Package)

	for _, blocked := range []string{"core-cli", "core-macros"} {
		result := outcomeOf(t, report, blocked)
		assert.Equal(t, OutcomeSkipped, result.Outcome)
		assert.Equal(t, "blocked by core", result.Reason)
	}

	// The independent branch still goes out.
	assert.Equal(t, OutcomeSuccess, outcomeOf(t, report, "standalone").Outcome)
	assert.Equal(t, []string{"standalone"}, publisher.published)
}

func TestPublishFailureBlocksDependents(t *testing.T) {
	ws, plan := pipelineWorkspace(t)
	o, _, publisher := newTestOrchestrator(ws, Options{})
	publisher.publishErr = map[string]error{"core": errors.New("503 service unavailable")}

	report := o.Run(context.Background(), plan)

	core := outcomeOf(t, report, "core")
	assert.Equal(t, OutcomeFailed, core.Outcome)
	assert.Equal(t, StagePublish, core.Stage)
	var regErr *RegistryError
	require.ErrorAs(t, core.Err, &regErr)
	assert.Equal(t, "publish", regErr.Op)

	assert.Equal(t, OutcomeSkipped, outcomeOf(t, report, "core-cli").Outcome)
	assert.Equal(t, OutcomeSuccess, outcomeOf(t, report, "standalone").Outcome)
}

func TestAlreadyPublishedIsIdempotentSuccess(t *testing.T) {
	ws, plan := pipelineWorkspace(t)
	o, _, publisher := newTestOrchestrator(ws, Options{})
	publisher.publishErr = map[string]error{"core": ErrAlreadyPublished}

	report := o.Run(context.Background(), plan)

	assert.False(t, report.Failed())
	core := outcomeOf(t, report, "core")
	assert.Equal(t, OutcomeSuccess, core.Outcome)
	assert.Equal(t, "already published", core.Reason)

	// Dependents proceed as if core had just been uploaded.
	assert.Equal(t, OutcomeSuccess, outcomeOf(t, report, "core-cli").Outcome)
}

func TestAlreadyOwnerIsIdempotentSuccess(t *testing.T) {
	ws, plan := pipelineWorkspace(t)
	o, _, publisher := newTestOrchestrator(ws, Options{Owner: "release-bot"})
	publisher.ownerErr = map[string]error{"core": ErrAlreadyOwner}

	report := o.Run(context.Background(), plan)

	assert.False(t, report.Failed())
	assert.Equal(t, OutcomeSuccess, outcomeOf(t, report, "core").Outcome)
}

func TestOwnerFailureFailsPackage(t *testing.T) {
	ws, plan := pipelineWorkspace(t)
	o, _, publisher := newTestOrchestrator(ws, Options{Owner: "release-bot"})
	publisher.ownerErr = map[string]error{"core": errors.New("permission denied")}

	report := o.Run(context.Background(), plan)

	core := outcomeOf(t, report, "core")
	assert.Equal(t, OutcomeFailed, core.Outcome)
	assert.Equal(t, StageOwners, core.Stage)
	assert.Equal(t, OutcomeSkipped, outcomeOf(t, report, "core-cli").Outcome)
}

func TestDryRunNeverPublishes(t *testing.T) {
	ws, plan := pipelineWorkspace(t)
	o, runner, publisher := newTestOrchestrator(ws, Options{DryRun: true, Owner: "release-bot"})

	report := o.Run(context.Background(), plan)

	assert.False(t, report.Failed())
	assert.Empty(t, publisher.published)
	assert.Empty(t, publisher.owners)
	// Verification still runs for real.
	assert.Len(t, runner.calls, 4)
	assert.Equal(t, "dry-run", outcomeOf(t, report, "core").Reason)
}

func TestSkipPublishStopsAfterVerify(t *testing.T) {
	ws, plan := pipelineWorkspace(t)
	o, runner, publisher := newTestOrchestrator(ws, Options{SkipPublish: true, Owner: "release-bot"})

	report := o.Run(context.Background(), plan)

	assert.False(t, report.Failed())
	assert.Empty(t, publisher.published)
	assert.Empty(t, publisher.owners)
	assert.Len(t, runner.calls, 4)
	core := outcomeOf(t, report, "core")
	assert.Equal(t, OutcomeSuccess, core.Outcome)
	assert.Equal(t, StageVerify, core.Stage)
}

func TestNoCheckSkipsVerify(t *testing.T) {
	ws, plan := pipelineWorkspace(t)
	o, runner, _ := newTestOrchestrator(ws, Options{NoCheck: true})
	runner.fail = map[string]error{"core": errors.New("would fail")}

	report := o.Run(context.Background(), plan)

	assert.False(t, report.Failed())
	assert.Empty(t, runner.calls)
}

func TestMetadataCheckFailsVerify(t *testing.T) {
	bare := &manifest.Package{Name: "bare", Version: "1.0.0", Dir: "/ws/bare"}
	ws, err := workspace.New("/ws", []*manifest.Package{bare})
	require.NoError(t, err)

	o, runner, _ := newTestOrchestrator(ws, Options{})
	report := o.Run(context.Background(), ws.Packages())

	result := outcomeOf(t, report, "bare")
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, "metadata check failed", result.Reason)
	assert.ErrorContains(t, result.Err, "description")
	assert.ErrorContains(t, result.Err, "repository")
	assert.Empty(t, runner.calls, "build check not reached")
}

func TestCancelledRunAborts(t *testing.T) {
	ws, plan := pipelineWorkspace(t)
	o, _, publisher := newTestOrchestrator(ws, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := o.Run(ctx, plan)

	assert.Equal(t, StatusAborted, report.Status)
	assert.True(t, report.Failed())
	assert.Empty(t, publisher.published)
	for _, result := range report.Results {
		assert.Equal(t, OutcomePending, result.Outcome)
	}
}

func TestPublishPacingAboveBurstLimit(t *testing.T) {
	manifests := make([]*manifest.Package, 0, publishBurstLimit+1)
	for i := 0; i <= publishBurstLimit; i++ {
		name := fmt.Sprintf("pkg-%02d", i)
		manifests = append(manifests, &manifest.Package{
			Name:        name,
			Version:     "1.0.0",
			Description: "test package " + name,
			Repository:  "https://example.com/repo",
			Dir:         filepath.Join("/ws", name),
		})
	}
	ws, err := workspace.New("/ws", manifests)
	require.NoError(t, err)
	plan, err := order.Plan(ws, ws.Packages(), false)
	require.NoError(t, err)

	o, _, _ := newTestOrchestrator(ws, Options{PublishDelay: 5 * time.Second})
	var slept []time.Duration
	o.sleep = func(d time.Duration) { slept = append(slept, d) }

	report := o.Run(context.Background(), plan)
	require.False(t, report.Failed())

	// No pause before the first upload, one before each of the rest.
	require.Len(t, slept, publishBurstLimit)
	assert.Equal(t, 5*time.Second, slept[0])
}

func TestPublishPacingNotTriggeredForSmallPlans(t *testing.T) {
	ws, plan := pipelineWorkspace(t)
	o, _, _ := newTestOrchestrator(ws, Options{})
	var slept []time.Duration
	o.sleep = func(d time.Duration) { slept = append(slept, d) }

	report := o.Run(context.Background(), plan)
	require.False(t, report.Failed())
	assert.Empty(t, slept)
}

func TestPreflightDeactivatesAndRestoresDevDeps(t *testing.T) {
	root := testutil.TempDir(t, "release-preflight")
	dir := filepath.Join(root, "core")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	original := "name: core\nversion: 1.0.0\ndescription: core\nrepository: https://example.com/r\ndev-dependencies:\n  - testkit\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.Filename), []byte(original), 0o644))

	ws, err := workspace.Load(root)
	require.NoError(t, err)

	o := New(ws, Options{SkipPublish: true})
	var observed *manifest.Package
	o.Runner = runnerFunc(func(ctx context.Context, pkgDir string, build bool) error {
		parsed, readErr := manifest.ReadPackage(pkgDir)
		observed = parsed
		return readErr
	})

	report := o.Run(context.Background(), ws.Packages())
	require.False(t, report.Failed())

	// Verify ran against the stripped manifest, then the original came back.
	require.NotNil(t, observed)
	assert.Empty(t, observed.DevDependencies)
	restored, err := os.ReadFile(filepath.Join(dir, manifest.Filename))
	require.NoError(t, err)
	assert.Equal(t, original, string(restored))
}

// runnerFunc adapts a function to the BuildRunner interface.
type runnerFunc func(ctx context.Context, dir string, build bool) error

func (f runnerFunc) Run(ctx context.Context, dir string, build bool) error {
	return f(ctx, dir, build)
}

func TestReportSummary(t *testing.T) {
	ws, plan := pipelineWorkspace(t)
	o, runner, _ := newTestOrchestrator(ws, Options{})
	runner.fail = map[string]error{"core": errors.New("boom")}

	report := o.Run(context.Background(), plan)

	summary := report.Summary()
	assert.Contains(t, summary, "core (1.0.0)")
	assert.Contains(t, summary, "blocked by core")
	assert.Contains(t, summary, "run completed: 1 published, 2 skipped, 1 failed")
}
