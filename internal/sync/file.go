package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDestination writes artifacts into a local directory.
type FileDestination struct {
	dir string
}

// NewFileDestination creates a file destination rooted at dir. The
// directory is created on first write.
func NewFileDestination(dir string) *FileDestination {
	return &FileDestination{dir: dir}
}

// Name implements Destination.
func (d *FileDestination) Name() string { return "file" }

// Write implements Destination.
func (d *FileDestination) Write(ctx context.Context, a Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	p := filepath.Join(d.dir, a.Name)
	if err := os.WriteFile(p, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return p, nil
}
