package release

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/monoship/monoship/pkg/logger"
)

var runnerLog = logger.New("release:runners")

// BuildRunner compile-checks or fully builds a package in isolation.
type BuildRunner interface {
	// Run verifies the package in dir. When build is true a full build is
	// performed instead of the cheaper check.
	Run(ctx context.Context, dir string, build bool) error
}

// Publisher uploads packages and manages owners on the package registry.
// Implementations map the registry's "already exists" and "already an
// owner" responses to ErrAlreadyPublished and ErrAlreadyOwner so the
// orchestrator can treat them as idempotent success.
type Publisher interface {
	Publish(ctx context.Context, dir, token string) error
	AddOwner(ctx context.Context, pkgName, owner, token string) error
}

// ReadmeGenerator produces README content from package sources; the verify
// stage diffs it against the checked-in README.
type ReadmeGenerator interface {
	Generate(ctx context.Context, dir string) (string, error)
}

// ExecBuildRunner verifies packages by running a configurable command in
// the package directory.
type ExecBuildRunner struct {
	// CheckCommand is the cheap verification command. Defaults to
	// "go vet ./...".
	CheckCommand []string
	// BuildCommand is the full build command. Defaults to
	// "go build ./...".
	BuildCommand []string
}

func (r *ExecBuildRunner) Run(ctx context.Context, dir string, build bool) error {
	argv := r.CheckCommand
	if build {
		argv = r.BuildCommand
	}
	if len(argv) == 0 {
		if build {
			argv = []string{"go", "build", "./..."}
		} else {
			argv = []string{"go", "vet", "./..."}
		}
	}

	runnerLog.Printf("Running %v in %s", argv, dir)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err)
	}
	return nil
}

// ExecPublisher drives a registry CLI. The upload protocol itself stays in
// that external tool; this type only invokes it and classifies its output.
type ExecPublisher struct {
	// PublishCommand is run in the package directory to upload it.
	// Defaults to "pkgreg publish".
	PublishCommand []string
	// OwnerCommand is run with the package name and owner appended.
	// Defaults to "pkgreg owner add".
	OwnerCommand []string
}

func (p *ExecPublisher) Publish(ctx context.Context, dir, token string) error {
	argv := p.PublishCommand
	if len(argv) == 0 {
		argv = []string{"pkgreg", "publish"}
	}

	runnerLog.Printf("Publishing %s via %v", dir, argv)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if token != "" {
		cmd.Env = append(os.Environ(), "PKGREG_TOKEN="+token)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		text := strings.ToLower(string(output))
		if strings.Contains(text, "already exists") || strings.Contains(text, "already published") {
			runnerLog.Printf("Registry reports %s already published", dir)
			return ErrAlreadyPublished
		}
		return fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err)
	}
	return nil
}

func (p *ExecPublisher) AddOwner(ctx context.Context, pkgName, owner, token string) error {
	argv := p.OwnerCommand
	if len(argv) == 0 {
		argv = []string{"pkgreg", "owner", "add"}
	}
	argv = append(append([]string{}, argv...), pkgName, owner)

	runnerLog.Printf("Adding owner %s to %s via %v", owner, pkgName, argv)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if token != "" {
		cmd.Env = append(os.Environ(), "PKGREG_TOKEN="+token)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		if strings.Contains(strings.ToLower(string(output)), "already an owner") {
			runnerLog.Printf("%s is already an owner of %s", owner, pkgName)
			return ErrAlreadyOwner
		}
		return fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err)
	}
	return nil
}

// FileReadmeGenerator is the default README collaborator: it returns the
// checked-in README content unchanged, so the verify diff only fails when a
// real generator is plugged in and produces drift.
type FileReadmeGenerator struct{}

func (FileReadmeGenerator) Generate(_ context.Context, dir string) (string, error) {
	content, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil {
		return "", err
	}
	return string(content), nil
}
