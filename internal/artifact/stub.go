package artifact

import (
	"context"
	"sync"
)

// StubStore records Put calls for testing, mirroring quarry/lode's
// StubFileWriter.
type StubStore struct {
	mu      sync.Mutex
	Written []StubRecord
	FailOn  map[string]bool
}

// StubRecord is one recorded Put call.
type StubRecord struct {
	Path string
	Data []byte
}

// NewStubStore constructs an empty StubStore.
func NewStubStore() *StubStore {
	return &StubStore{FailOn: map[string]bool{}}
}

// Put implements Store by recording the call, optionally failing for
// paths registered in FailOn.
func (s *StubStore) Put(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn[path] {
		return errStubFailure(path)
	}
	s.Written = append(s.Written, StubRecord{Path: path, Data: data})
	return nil
}

type errStubFailure string

func (e errStubFailure) Error() string { return "artifact: stub failure for " + string(e) }

var _ Store = (*StubStore)(nil)
