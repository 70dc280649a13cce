package release

import (
	"fmt"
	"strings"

	"github.com/monoship/monoship/pkg/workspace"
)

// PackageResult records the terminal state of one package in a run: the
// furthest stage reached, the outcome, and an optional human-readable
// reason ("blocked by core", "already published").
type PackageResult struct {
	Package *workspace.Package
	Stage   Stage
	Outcome Outcome
	Reason  string
	Err     error
}

// Report is the outcome map of one pipeline run. It is owned exclusively
// by the orchestrator while the run is in progress and only appended to;
// callers read it after Run returns.
type Report struct {
	Status  RunStatus
	Results []*PackageResult

	byName map[string]*PackageResult
}

func newReport(plan []*workspace.Package) *Report {
	r := &Report{
		Status: StatusNotStarted,
		byName: make(map[string]*PackageResult, len(plan)),
	}
	for _, p := range plan {
		result := &PackageResult{Package: p, Outcome: OutcomePending}
		r.Results = append(r.Results, result)
		r.byName[p.Name] = result
	}
	return r
}

// Result returns the entry for the named package, if it was part of the
// plan.
func (r *Report) Result(name string) (*PackageResult, bool) {
	result, ok := r.byName[name]
	return result, ok
}

// Counts tallies the outcomes: packages fully released, skipped or never
// attempted, and failed.
func (r *Report) Counts() (published, skipped, failed int) {
	for _, result := range r.Results {
		switch result.Outcome {
		case OutcomeSuccess:
			published++
		case OutcomeSkipped, OutcomePending:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return published, skipped, failed
}

// Failed reports whether the overall run verdict is failure: any package
// failed, or the run aborted before completing.
func (r *Report) Failed() bool {
	if r.Status == StatusAborted {
		return true
	}
	for _, result := range r.Results {
		if result.Outcome == OutcomeFailed {
			return true
		}
	}
	return false
}

// Summary renders the per-package listing plus totals as plain text, one
// package per line in plan order.
func (r *Report) Summary() string {
	var b strings.Builder
	for _, result := range r.Results {
		line := fmt.Sprintf("%-30s %-10s %s", result.Package.String(), result.Outcome, result.Stage)
		if result.Reason != "" {
			line += " (" + result.Reason + ")"
		}
		b.WriteString(line + "\n")
	}
	published, skipped, failed := r.Counts()
	fmt.Fprintf(&b, "run %s: %d published, %d skipped, %d failed\n", r.Status, published, skipped, failed)
	return b.String()
}
