// Package release drives the multi-stage publish pipeline over a release
// plan: pre-flight manifest patching, verification, registry publish, and
// owner updates, with dry-run support and per-package failure isolation.
//
// Packages are processed strictly in plan order. A failure blocks every
// package depending on the failed one, but independent branches of the
// plan continue; the result is an outcome map and an overall verdict, not
// an all-or-nothing abort.
package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/monoship/monoship/pkg/logger"
	"github.com/monoship/monoship/pkg/manifest"
	"github.com/monoship/monoship/pkg/workspace"
)

var orchLog = logger.New("release:orchestrator")

// publishBurstLimit is the number of packages that can be uploaded without
// pacing. Above it, DefaultPublishDelay is inserted between publishes to
// stay inside the registry's rate limits.
const publishBurstLimit = 29

// DefaultPublishDelay paces uploads for large releases.
const DefaultPublishDelay = 21 * time.Second

// Options configures a pipeline run.
type Options struct {
	// DryRun executes pre-flight and verify for real but only simulates
	// the publish stage.
	DryRun bool
	// SkipPublish disables the publish and owner stages entirely (the
	// check command). Unlike DryRun, nothing is simulated or logged.
	SkipPublish bool
	// ReadOnly suppresses the pre-flight manifest mutations too. Only
	// meaningful together with DryRun.
	ReadOnly bool
	// NoCheck skips the verify stage entirely.
	NoCheck bool
	// Build runs a full build during verify instead of the cheaper check.
	Build bool
	// CheckReadme regenerates the README during verify and fails the
	// package when it drifts from the checked-in copy.
	CheckReadme bool
	// IncludeDevDeps keeps dev-dependencies active (skips the pre-flight
	// deactivation).
	IncludeDevDeps bool
	// Owner, when set, is granted on each package after publishing.
	Owner string
	// Token authenticates registry operations.
	Token string
	// PublishDelay overrides the pacing delay between publishes for runs
	// larger than the burst limit. Zero means DefaultPublishDelay.
	PublishDelay time.Duration
}

// Orchestrator executes release plans. Collaborator fields have working
// defaults and are exported so tests and callers can substitute fakes.
type Orchestrator struct {
	Runner    BuildRunner
	Publisher Publisher
	Readme    ReadmeGenerator

	ws   *workspace.Workspace
	opts Options

	// sleep is indirected for tests.
	sleep func(time.Duration)
}

// New creates an orchestrator with exec-backed default collaborators.
func New(ws *workspace.Workspace, opts Options) *Orchestrator {
	return &Orchestrator{
		Runner:    &ExecBuildRunner{},
		Publisher: &ExecPublisher{},
		Readme:    FileReadmeGenerator{},
		ws:        ws,
		opts:      opts,
		sleep:     time.Sleep,
	}
}

// Run drives every package of the plan through the pipeline and returns
// the outcome map. Per-package errors are recorded, never propagated; the
// caller inspects Report.Failed for the aggregate verdict.
//
// Cancellation via ctx stops the run between packages: already-published
// packages stay published (registry state is not revocable) and the report
// shows exactly which packages completed versus were never attempted.
func (o *Orchestrator) Run(ctx context.Context, plan []*workspace.Package) *Report {
	report := newReport(plan)
	report.Status = StatusInProgress
	orchLog.Printf("Starting pipeline run: %d packages, dry-run=%v", len(plan), o.opts.DryRun)

	restore := o.preflight(plan, report)
	defer restore()

	failed := make(map[string]bool)
	publishesDone := 0

	for _, result := range report.Results {
		if ctx.Err() != nil {
			orchLog.Printf("Run cancelled, %s and later packages never attempted", result.Package.Name)
			report.Status = StatusAborted
			return report
		}
		if result.Outcome == OutcomeFailed {
			// Pre-flight already failed this package.
			failed[result.Package.Name] = true
			continue
		}

		if blocker := o.blockedBy(result.Package, failed); blocker != "" {
			orchLog.Printf("%s blocked by failed dependency %s", result.Package.Name, blocker)
			result.Outcome = OutcomeSkipped
			result.Stage = StageVerify
			result.Reason = "blocked by " + blocker
			continue
		}

		if !o.verify(ctx, result) {
			failed[result.Package.Name] = true
			continue
		}
		if !o.publish(ctx, result, &publishesDone, len(plan)) {
			failed[result.Package.Name] = true
			continue
		}
		if !o.addOwner(ctx, result) {
			failed[result.Package.Name] = true
			continue
		}
		result.Outcome = OutcomeSuccess
	}

	report.Status = StatusCompleted
	published, skipped, failedCount := report.Counts()
	orchLog.Printf("Pipeline run completed: %d published, %d skipped, %d failed", published, skipped, failedCount)
	return report
}

// preflight deactivates dev-dependencies across the plan and returns the
// restore function. A manifest failure marks that package failed but does
// not stop the rest of the run.
func (o *Orchestrator) preflight(plan []*workspace.Package, report *Report) func() {
	if o.opts.IncludeDevDeps || (o.opts.DryRun && o.opts.ReadOnly) {
		orchLog.Print("Pre-flight skipped (dev-deps kept active)")
		return func() {}
	}

	saved := make(map[string][]byte, len(plan))
	for _, p := range plan {
		original, err := manifest.DeactivateDevDependencies(p.ManifestPath)
		if err != nil {
			orchLog.Printf("Pre-flight failed for %s: %v", p.Name, err)
			result, _ := report.Result(p.Name)
			result.Outcome = OutcomeFailed
			result.Stage = StagePreflight
			result.Err = err
			result.Reason = "manifest patch failed"
			continue
		}
		saved[p.ManifestPath] = original
	}
	orchLog.Printf("Pre-flight: dev-dependencies deactivated in %d manifests", len(saved))

	return func() {
		for path, content := range saved {
			if err := manifest.RestoreManifest(path, content); err != nil {
				orchLog.Printf("Failed to restore manifest %s: %v", path, err)
			}
		}
	}
}

// blockedBy returns the name of a failed package that p transitively
// depends on, or "".
func (o *Orchestrator) blockedBy(p *workspace.Package, failed map[string]bool) string {
	if len(failed) == 0 {
		return ""
	}
	for _, dep := range o.ws.TransitiveDependenciesOf(p.Name, false) {
		if failed[dep.Name] {
			return dep.Name
		}
	}
	return ""
}

func (o *Orchestrator) verify(ctx context.Context, result *PackageResult) bool {
	p := result.Package
	result.Stage = StageVerify

	if o.opts.NoCheck {
		orchLog.Printf("Verify skipped for %s (--no-check)", p.Name)
		return true
	}

	if err := VerifyMetadata(p); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = &BuildError{Package: p.Name, Err: err}
		result.Reason = "metadata check failed"
		return false
	}

	if err := o.Runner.Run(ctx, p.Dir, o.opts.Build); err != nil {
		orchLog.Printf("Verify failed for %s: %v", p.Name, err)
		result.Outcome = OutcomeFailed
		result.Err = &BuildError{Package: p.Name, Err: err}
		result.Reason = "build check failed"
		return false
	}

	if o.opts.CheckReadme {
		if err := o.checkReadme(ctx, p); err != nil {
			orchLog.Printf("README check failed for %s: %v", p.Name, err)
			result.Outcome = OutcomeFailed
			result.Err = &BuildError{Package: p.Name, Err: err}
			result.Reason = "readme drift"
			return false
		}
	}
	return true
}

func (o *Orchestrator) checkReadme(ctx context.Context, p *workspace.Package) error {
	generated, err := o.Readme.Generate(ctx, p.Dir)
	if err != nil {
		return fmt.Errorf("generating readme: %w", err)
	}
	onDisk, err := os.ReadFile(filepath.Join(p.Dir, "README.md"))
	if err != nil {
		return fmt.Errorf("reading checked-in readme: %w", err)
	}
	if string(onDisk) != generated {
		return fmt.Errorf("README.md is out of date, regenerate and commit it")
	}
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, result *PackageResult, publishesDone *int, planSize int) bool {
	if o.opts.SkipPublish {
		return true
	}
	p := result.Package
	result.Stage = StagePublish

	if o.opts.DryRun {
		orchLog.Printf("Dry-run: would publish %s", p)
		result.Reason = "dry-run"
		return true
	}

	if *publishesDone > 0 && planSize > publishBurstLimit {
		delay := o.opts.PublishDelay
		if delay == 0 {
			delay = DefaultPublishDelay
		}
		orchLog.Printf("Pacing publishes, waiting %s before %s", delay, p.Name)
		o.sleep(delay)
	}

	err := o.Publisher.Publish(ctx, p.Dir, o.opts.Token)
	switch {
	case err == nil:
		*publishesDone++
		orchLog.Printf("Published %s", p)
		return true
	case errors.Is(err, ErrAlreadyPublished):
		orchLog.Printf("%s already published at %s, treating as success", p.Name, p.Version)
		result.Reason = "already published"
		return true
	default:
		orchLog.Printf("Publish failed for %s: %v", p.Name, err)
		result.Outcome = OutcomeFailed
		result.Err = &RegistryError{Package: p.Name, Op: "publish", Err: err}
		result.Reason = "publish failed"
		return false
	}
}

func (o *Orchestrator) addOwner(ctx context.Context, result *PackageResult) bool {
	if o.opts.Owner == "" || o.opts.SkipPublish {
		return true
	}
	p := result.Package
	result.Stage = StageOwners

	if o.opts.DryRun {
		orchLog.Printf("Dry-run: would add owner %s to %s", o.opts.Owner, p.Name)
		return true
	}

	err := o.Publisher.AddOwner(ctx, p.Name, o.opts.Owner, o.opts.Token)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrAlreadyOwner):
		orchLog.Printf("%s is already an owner of %s", o.opts.Owner, p.Name)
		return true
	default:
		orchLog.Printf("Owner update failed for %s: %v", p.Name, err)
		result.Outcome = OutcomeFailed
		result.Err = &RegistryError{Package: p.Name, Op: "owner", Err: err}
		result.Reason = "owner update failed"
		return false
	}
}

// VerifyMetadata runs the soft manifest checks required before a package
// may be released: description and repository must be present.
func VerifyMetadata(p *workspace.Package) error {
	var missing []string
	if p.Description == "" {
		missing = append(missing, "description")
	}
	if p.Repository == "" {
		missing = append(missing, "repository")
	}
	if len(missing) > 0 {
		return fmt.Errorf("manifest is missing required fields: %v", missing)
	}
	return nil
}
