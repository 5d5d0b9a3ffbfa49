package history

import (
	"errors"
	"fmt"
	"os"
)

// Sentinel errors for history store I/O failure classification, mirroring
// quarry/lode's classifier-table idiom for storage errors.
var (
	ErrNotFound        = errors.New("history file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrDiskFull        = errors.New("no space left on device")
	ErrCorrupt         = errors.New("history file is corrupt")
)

// StoreError wraps an underlying error with a history-store
// classification, preserving the original error for errors.Is/As.
type StoreError struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("history: %s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return errors.Is(e.Kind, target) }

func classify(op, path string, err error) error {
	kind := error(fmt.Errorf("unclassified"))
	switch {
	case errors.Is(err, os.ErrNotExist):
		kind = ErrNotFound
	case errors.Is(err, os.ErrPermission):
		kind = ErrPermissionDenied
	case op == "decode":
		kind = ErrCorrupt
	}
	return &StoreError{Kind: kind, Op: op, Path: path, Err: err}
}
