// Package localfs stores artifacts on the local filesystem.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store implements ports.ArtifactStore.
type Store struct {
	perm os.FileMode
}

// New creates a filesystem store.
func New() *Store { return &Store{perm: 0o755} }

// Prepare creates dir and any missing parents.
func (s *Store) Prepare(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, s.perm); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// Create truncates or creates path. The parent directory is created when
// missing so a standalone chart path works without Prepare.
func (s *Store) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, s.perm); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}
