package release

import (
	"errors"
	"fmt"
)

// Stage identifies a step of the per-package release pipeline. Stages run
// in declaration order; a package's result records the furthest stage it
// reached.
type Stage int

const (
	// StagePreflight deactivates dev-dependencies for a clean build.
	StagePreflight Stage = iota
	// StageVerify compile-checks the package and validates its metadata.
	StageVerify
	// StagePublish uploads the package to the registry.
	StagePublish
	// StageOwners grants additional owners on the published package.
	StageOwners
)

func (s Stage) String() string {
	switch s {
	case StagePreflight:
		return "preflight"
	case StageVerify:
		return "verify"
	case StagePublish:
		return "publish"
	case StageOwners:
		return "owners"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Outcome is the terminal state of a package within a run.
type Outcome int

const (
	// OutcomePending means the package was never attempted (run aborted
	// before reaching it).
	OutcomePending Outcome = iota
	// OutcomeSuccess means every enabled stage completed.
	OutcomeSuccess
	// OutcomeSkipped means the package was not attempted because a
	// dependency failed earlier in the run.
	OutcomeSkipped
	// OutcomeFailed means a stage failed for this package.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// RunStatus is the overall state of a pipeline run.
type RunStatus int

const (
	StatusNotStarted RunStatus = iota
	StatusInProgress
	StatusCompleted
	StatusAborted
)

func (s RunStatus) String() string {
	switch s {
	case StatusNotStarted:
		return "not-started"
	case StatusInProgress:
		return "in-progress"
	case StatusCompleted:
		return "completed"
	case StatusAborted:
		return "aborted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// BuildError reports a verify/check/build failure. It is fatal for the
// package and everything depending on it.
type BuildError struct {
	Package string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build of %s failed: %v", e.Package, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// RegistryError reports a publish or owner-update failure. Fatal for the
// package and its dependents.
type RegistryError struct {
	Package string
	Op      string
	Err     error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry %s for %s failed: %v", e.Op, e.Package, e.Err)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// ErrAlreadyPublished marks the registry's "this version already exists"
// response. It is idempotent success, not a failure: re-running a partially
// completed release must converge.
var ErrAlreadyPublished = errors.New("package version already published")

// ErrAlreadyOwner marks the registry's "already an owner" response on an
// owner update. Treated as success by analogy with ErrAlreadyPublished.
var ErrAlreadyOwner = errors.New("user is already an owner")
