package sync

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// GitDestination commits artifacts into a directory of a git repo and pushes.
type GitDestination struct {
	repo   string // path to the local clone
	dir    string // directory within the repo
	branch string // branch to commit and push to
}

// NewGitDestination creates a git destination. repo is the path to an
// existing local clone; dir may be empty for the repository root.
func NewGitDestination(repo, dir, branch string) *GitDestination {
	return &GitDestination{
		repo:   repo,
		dir:    dir,
		branch: branch,
	}
}

// Name implements Destination.
func (d *GitDestination) Name() string { return "git" }

// Write writes the artifact, commits and pushes. Unchanged content is not
// committed.
func (d *GitDestination) Write(ctx context.Context, a Artifact) (string, error) {
	if err := d.git(ctx, "checkout", d.branch); err != nil {
		return "", fmt.Errorf("git checkout: %w", err)
	}

	// The remote might not have the branch yet.
	_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	rel := filepath.Join(d.dir, a.Name)
	filePath := filepath.Join(d.repo, rel)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(filePath, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if err := d.git(ctx, "add", rel); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}

	// Nothing staged.
	if err := d.git(ctx, "diff", "--cached", "--quiet"); err == nil {
		return filePath, nil
	}

	if err := d.git(ctx, "commit", "-m", "graph: update "+a.Name); err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}
	if err := d.git(ctx, "push", "origin", d.branch); err != nil {
		return "", fmt.Errorf("git push: %w", err)
	}
	return filePath, nil
}

func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
