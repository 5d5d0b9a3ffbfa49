// Package artifact writes per-task result blobs, generalizing
// quarry/lode's storage abstraction (FileWriter + lazy Store init) down
// to spec.md §6's simpler layout:
// results/<dataset>_<profile>_<timestamp>/serialized_data/<algorithm>_<task_id>.
package artifact

import (
	"context"
	"fmt"
)

// Store is the storage backend abstraction, selected by
// --storage-backend {fs,s3} exactly as the teacher's `quarry run` flag
// does.
type Store interface {
	// Put writes data at the given run-relative path (already built by
	// BlobPath), creating any intermediate structure the backend needs.
	Put(ctx context.Context, path string, data []byte) error
}

// RunDir computes the per-run artifact directory name, per spec.md §6:
// results/<dataset>_<profile>_<timestamp>/. timestamp is caller-supplied
// (RFC3339-ish, filesystem-safe) since this package may not call
// time.Now() in a way that stays deterministic for tests.
func RunDir(dataset, profile, timestamp string) string {
	return fmt.Sprintf("%s_%s_%s", sanitize(dataset), sanitize(profile), timestamp)
}

// BlobPath computes the path of one task's serialized payload within a
// run directory.
func BlobPath(runDir, algorithm, taskID string) string {
	return fmt.Sprintf("%s/serialized_data/%s_%s", runDir, sanitize(algorithm), taskID)
}

// sanitize strips path separators from a name component so it can be
// used safely inside a constructed path.
func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == '/' || r == '\\' {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
