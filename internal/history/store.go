// Package history implements the History Store (component B): a
// single-JSON-document, append-oriented record of every attempt, with
// atomic write-temp-then-rename persistence, per spec.md §4.5.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/justapithecus/profiler/internal/types"
)

// document is the on-disk shape: a single JSON object holding the full
// run list.
type document struct {
	Runs []types.RunRecord `json:"runs"`
}

// Store is a durable, single-writer history store backed by one JSON
// file. Every mutation loads the full document, applies the change, and
// atomically replaces the file; no in-memory cache survives between
// calls, matching the original's load→modify→save discipline.
type Store struct {
	mu   sync.Mutex
	path string
}

// Open returns a Store backed by path, creating an empty document if
// the file does not yet exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, classify("mkdir", path, err)
	}
	s := &Store{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.save(document{Runs: []types.RunRecord{}}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, classify("stat", path, err)
	}
	return s, nil
}

func (s *Store) load() (document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return document{}, classify("read", s.path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, classify("decode", s.path, err)
	}
	return doc, nil
}

// save writes doc to a temp file in the same directory and renames it
// over the target path, so a crash mid-write never leaves a truncated
// or partially-written history file.
func (s *Store) save(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return classify("encode", s.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.tmp")
	if err != nil {
		return classify("create_temp", s.path, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return classify("write", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return classify("close", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return classify("rename", s.path, err)
	}
	return nil
}

// AddRun appends record to the history.
func (s *Store) AddRun(record types.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Runs = append(doc.Runs, record)
	return s.save(doc)
}

// Patch is a sparse set of fields to merge into an existing record.
// Only non-nil fields are applied.
type Patch struct {
	Status           *types.Status
	TimestampEnd     *int64 // unix seconds, nil leaves unchanged
	ExecutionSeconds *float64
	ArtifactPath     *string
	InstanceCount    *int
	ErrorKind        *string
	RulesDecision    *string
}

// UpdateRun locates the unique record with the given task id and merges
// patch into it. A task id with no matching record is a no-op, per
// spec.md §4.5.
func (s *Store) UpdateRun(taskID string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Runs {
		if doc.Runs[i].TaskID != taskID {
			continue
		}
		applyPatch(&doc.Runs[i], patch)
		return s.save(doc)
	}
	return nil
}

func applyPatch(r *types.RunRecord, p Patch) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.TimestampEnd != nil {
		r.TimestampEnd = time.Unix(*p.TimestampEnd, 0)
	}
	if p.ExecutionSeconds != nil {
		r.ExecutionSeconds = *p.ExecutionSeconds
	}
	if p.ArtifactPath != nil {
		r.ArtifactPath = *p.ArtifactPath
	}
	if p.InstanceCount != nil {
		r.InstanceCount = *p.InstanceCount
	}
	if p.ErrorKind != nil {
		r.ErrorKind = *p.ErrorKind
	}
	if p.RulesDecision != nil {
		r.RulesDecision = *p.RulesDecision
	}
}

// MarkSuccess is a thin wrapper over UpdateRun for a successful task.
func (s *Store) MarkSuccess(taskID, artifactPath string, instanceCount int, executionSeconds float64) error {
	success := types.StatusSuccess
	return s.UpdateRun(taskID, Patch{
		Status:           &success,
		ExecutionSeconds: &executionSeconds,
		ArtifactPath:     &artifactPath,
		InstanceCount:    &instanceCount,
	})
}

// MarkFailure is a thin wrapper over UpdateRun for a failed task.
func (s *Store) MarkFailure(taskID string, status types.Status, errorKind, rulesDecision string) error {
	return s.UpdateRun(taskID, Patch{
		Status:        &status,
		ErrorKind:     &errorKind,
		RulesDecision: &rulesDecision,
	})
}

// GetTasksByRunID returns all records for runID, in insertion order.
func (s *Store) GetTasksByRunID(runID string) ([]types.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []types.RunRecord
	for _, r := range doc.Runs {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetLastRunForAlgoAndData scans in reverse insertion order and returns
// the first record with status=Success and exact equality on
// (algorithm, params, fingerprint, rows, cols). Returns nil, nil if
// fingerprint is empty or no match is found -- dedup is disabled for
// fingerprint-less tables, per spec.md §4.5.
func (s *Store) GetLastRunForAlgoAndData(algorithm string, params map[string]any, fingerprint string, rows, cols int) (*types.RunRecord, error) {
	if fingerprint == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := len(doc.Runs) - 1; i >= 0; i-- {
		r := doc.Runs[i]
		if r.Status != types.StatusSuccess {
			continue
		}
		if r.Algorithm != algorithm || r.Fingerprint != fingerprint || r.Rows != rows || r.Cols != cols {
			continue
		}
		if !paramsEqual(r.Params, params) {
			continue
		}
		record := r
		return &record, nil
	}
	return nil, nil
}

// paramsEqual compares param maps via their canonical JSON encoding,
// since map key order is insignificant but value shape (including
// nested maps/lists) must match exactly.
func paramsEqual(a, b map[string]any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	var av, bv any
	if err := json.Unmarshal(aj, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(bj, &bv); err != nil {
		return false
	}
	return fmt.Sprintf("%v", av) == fmt.Sprintf("%v", bv)
}
