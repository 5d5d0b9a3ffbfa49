// Package types defines the core domain model for the profiler execution
// core: tasks, outcomes, run records, and the profile document.
package types

import "time"

// Family is a class of primitives mined from a table (e.g. functional
// dependency). The set is fixed per CONTRACT_PROFILE.md.
type Family string

// Family constants.
const (
	FamilyFD   Family = "fd"
	FamilyAFD  Family = "afd"
	FamilyCFD  Family = "cfd"
	FamilyIND  Family = "ind"
	FamilyAIND Family = "aind"
	FamilyUCC  Family = "ucc"
	FamilyAUCC Family = "aucc"
	FamilyDD   Family = "dd"
	FamilyAR   Family = "ar"
	FamilyOD   Family = "od"
	FamilyNAR  Family = "nar"
	FamilyDC   Family = "dc"
	FamilyAC   Family = "ac"
	FamilySFD  Family = "sfd"
	FamilyMD   Family = "md"
)

// Strategy is the recovery strategy tag attached to a task.
type Strategy string

// Strategy constants.
const (
	StrategyAutoDecision Strategy = "auto_decision"
	StrategyAsk          Strategy = "ask"
	StrategyTimeoutGrow  Strategy = "timeout_grow"
	StrategyShrinkSearch Strategy = "shrink_search"
	StrategySingleRun    Strategy = "single_run"
)

// Status is the final or intermediate state of a task's execution.
type Status string

// Status constants per spec.md TaskOutcome.
const (
	StatusNotStarted     Status = "not_started"
	StatusRunning        Status = "running"
	StatusSuccess        Status = "success"
	StatusMemoryError    Status = "memory_error"
	StatusTimeout        Status = "timeout"
	StatusGlobalTimeout   Status = "global_timeout"
	StatusCancelled      Status = "cancelled"
	StatusKilled         Status = "killed"
	StatusStartingFailure Status = "starting_failure"
	StatusError          Status = "error"
)

// IsTerminal returns true if the status represents a finished task (no
// further scheduler action will change it).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusNotStarted, StatusRunning:
		return false
	default:
		return true
	}
}

// IsFailure returns true if the status represents anything other than a
// clean success.
func (s Status) IsFailure() bool {
	return s.IsTerminal() && s != StatusSuccess
}

// InfiniteTimeout is the sentinel used when a task carries no explicit
// per-task timeout. A large but finite value keeps deadline arithmetic
// simple (no special-casing of "unbounded" at every comparison site).
const InfiniteTimeout = 1_000_000_000 * time.Second

// Table is the in-memory handle to the loaded dataset a task runs
// against. Algorithms only ever see a Table, never a raw file path.
type Table struct {
	// Name is a human-readable identifier (usually the source file name).
	Name string
	// Rows is the row-major cell data, already capped per Profile
	// global_settings at load time.
	Rows [][]string
	// Header is the column header, empty if the dataset has none.
	Header []string
	// Fingerprint is the hex SHA-256 digest of the source file, or "" if
	// unavailable (disables dedup for tasks referencing this table).
	Fingerprint string
}

// RowCount returns the number of data rows (excluding header).
func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColCount returns the number of columns.
func (t *Table) ColCount() int {
	if t == nil || len(t.Header) == 0 {
		if t != nil && len(t.Rows) > 0 {
			return len(t.Rows[0])
		}
		return 0
	}
	return len(t.Header)
}

// Slice returns a new Table containing only the first n rows. Column
// shape and fingerprint are preserved; only the row prefix changes.
func (t *Table) Slice(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	rows := make([][]string, n)
	copy(rows, t.Rows[:n])
	return &Table{
		Name:        t.Name,
		Rows:        rows,
		Header:      t.Header,
		Fingerprint: t.Fingerprint,
	}
}

// Task is an immutable unit of work. A retry always creates a new Task
// with a new ID and Stage+1; it never mutates the original.
type Task struct {
	// ID is unique per attempt, globally unique across the history
	// store's lifetime.
	ID string
	// Family is the primitive family this task mines.
	Family Family
	// Algorithm is the algorithm name within Family.
	Algorithm string
	// Params is the parameter mapping passed to the algorithm. Values are
	// JSON-like scalars (string, float64, bool, nil) or nested maps/lists.
	Params map[string]any
	// Table is the input table reference.
	Table *Table
	// Rows and Cols are cached from Table at task-creation time. A retry
	// with a shrunk table carries the shrunk row count; Cols never
	// changes.
	Rows int
	Cols int
	// Fingerprint is the input fingerprint, copied from Table at
	// creation time. May be empty.
	Fingerprint string
	// Timeout is the per-task wall-clock budget. Zero means "use
	// InfiniteTimeout".
	Timeout time.Duration
	// Strategy is the recovery strategy this task's failures consult.
	Strategy Strategy
	// Stage is the retry generation count; the first attempt is stage 1.
	Stage int
}

// EffectiveTimeout returns Timeout, or InfiniteTimeout if Timeout is zero.
func (t *Task) EffectiveTimeout() time.Duration {
	if t.Timeout <= 0 {
		return InfiniteTimeout
	}
	return t.Timeout
}

// PrimitiveList is the set of mined instances for one primitive kind
// (e.g. "functional_dependency" -> list of FD descriptions). Each
// element is an opaque, msgpack-encodable value produced by an
// Algorithm's Results().
type PrimitiveList []any

// Payload is a Success outcome's result set, keyed by primitive kind.
type Payload map[string]PrimitiveList

// TaskOutcome is the result of running one Task to completion (or to
// forced termination).
type TaskOutcome struct {
	TaskID           string
	Status           Status
	Payload          Payload
	ErrorKind        string
	ExecutionSeconds float64
}

// InstanceCount returns the total number of mined instances across all
// primitive kinds in a Success payload.
func (o *TaskOutcome) InstanceCount() int {
	n := 0
	for _, list := range o.Payload {
		n += len(list)
	}
	return n
}
