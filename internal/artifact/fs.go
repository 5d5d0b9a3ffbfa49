package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore writes artifacts to the local filesystem rooted at Root. The
// default backend, matching a bare `results/` directory when no
// --storage-backend flag is given.
type FSStore struct {
	Root string
}

// NewFSStore constructs an FSStore rooted at root.
func NewFSStore(root string) *FSStore {
	return &FSStore{Root: root}
}

// Put implements Store by writing data to Root/path, creating parent
// directories as needed.
func (s *FSStore) Put(_ context.Context, path string, data []byte) error {
	full := filepath.Join(s.Root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("artifact: mkdir for %s: %w", full, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("artifact: write %s: %w", full, err)
	}
	return nil
}

var _ Store = (*FSStore)(nil)
