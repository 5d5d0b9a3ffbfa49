package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/justapithecus/profiler/internal/artifact"
	"github.com/justapithecus/profiler/internal/history"
	"github.com/justapithecus/profiler/internal/report"
	"github.com/justapithecus/profiler/internal/rules"
	"github.com/justapithecus/profiler/internal/types"
)

// fakeScheduler scripts outcomes per call, so tests can drive the
// iterate-until-drained loop without a real Scheduler/Runner.
type fakeScheduler struct {
	calls   int
	outcome func(call int, tasks []*types.Task) []types.TaskOutcome
}

func (f *fakeScheduler) Run(_ context.Context, tasks []*types.Task, _ bool, _ int, _ int64, _ time.Duration) ([]types.TaskOutcome, []time.Duration, error) {
	f.calls++
	return f.outcome(f.calls, tasks), make([]time.Duration, len(tasks)), nil
}

func newStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("history.Open failed: %v", err)
	}
	return s
}

func baseTask(id string) *types.Task {
	return &types.Task{
		ID: id, Algorithm: "hyfd", Family: types.FamilyFD,
		Table: &types.Table{Rows: make([][]string, 100)}, Rows: 100, Cols: 4,
		Fingerprint: "fp1", Strategy: types.StrategySingleRun,
	}
}

func TestExecute_AllSuccessSingleIteration(t *testing.T) {
	store := newStore(t)
	results := report.NewResultWriter(filepath.Join(t.TempDir(), "result.txt"))
	artifacts := artifact.NewStubStore()

	sched := &fakeScheduler{outcome: func(call int, tasks []*types.Task) []types.TaskOutcome {
		out := make([]types.TaskOutcome, len(tasks))
		for i, task := range tasks {
			out[i] = types.TaskOutcome{TaskID: task.ID, Status: types.StatusSuccess, Payload: types.Payload{"fd": {1, 2}}}
		}
		return out
	}}

	mgr := New(sched, store, artifacts, results, nil, nil, nil)
	tasks := []*types.Task{baseTask("t1"), baseTask("t2")}
	records, err := mgr.Execute(context.Background(), tasks, Options{RunID: "run1", RunDir: "run1dir"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		if r.Status != types.StatusSuccess {
			t.Errorf("record %s status = %s, want success", r.TaskID, r.Status)
		}
		if r.InstanceCount != 2 {
			t.Errorf("record %s instance count = %d, want 2", r.TaskID, r.InstanceCount)
		}
	}
	if sched.calls != 1 {
		t.Errorf("scheduler calls = %d, want 1", sched.calls)
	}
	if len(artifacts.Written) != 2 {
		t.Errorf("artifacts written = %d, want 2", len(artifacts.Written))
	}
}

func TestExecute_RetryFeedsNextIteration(t *testing.T) {
	store := newStore(t)
	results := report.NewResultWriter(filepath.Join(t.TempDir(), "result.txt"))

	task := baseTask("t1")
	task.Strategy = types.StrategyTimeoutGrow
	task.Timeout = 100 * time.Second

	sched := &fakeScheduler{outcome: func(call int, tasks []*types.Task) []types.TaskOutcome {
		out := make([]types.TaskOutcome, len(tasks))
		for i, task := range tasks {
			if call == 1 {
				out[i] = types.TaskOutcome{TaskID: task.ID, Status: types.StatusTimeout, ErrorKind: string(types.StatusTimeout)}
			} else {
				out[i] = types.TaskOutcome{TaskID: task.ID, Status: types.StatusSuccess, Payload: types.Payload{"fd": {1}}}
			}
		}
		return out
	}}

	mgr := New(sched, store, artifact.NewStubStore(), results, nil, nil, nil)
	tuning := rules.Tuning{TimeoutStep: 100, TimeoutMax: 1000}
	records, err := mgr.Execute(context.Background(), []*types.Task{task}, Options{RunID: "run1", RunDir: "d", Tuning: tuning})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if sched.calls != 2 {
		t.Fatalf("scheduler calls = %d, want 2", sched.calls)
	}
	// history should have 2 records: the original's start (updated in place
	// with its failure) and the retry's start (updated in place with its success).
	if len(records) != 2 {
		t.Fatalf("expected 2 records (original + retry), got %d: %+v", len(records), records)
	}
}

func TestExecute_TryParallelOnlyFirstIteration(t *testing.T) {
	store := newStore(t)
	results := report.NewResultWriter(filepath.Join(t.TempDir(), "result.txt"))

	task := baseTask("t1")
	task.Strategy = types.StrategyAutoDecision
	task.Timeout = 100 * time.Second

	var sawParallel []bool
	sched := &fakeScheduler{}
	sched.outcome = func(call int, tasks []*types.Task) []types.TaskOutcome {
		out := make([]types.TaskOutcome, len(tasks))
		status := types.StatusMemoryError
		if call >= 3 {
			status = types.StatusSuccess
		}
		for i, t := range tasks {
			out[i] = types.TaskOutcome{TaskID: t.ID, Status: status, ErrorKind: string(types.StatusMemoryError)}
		}
		return out
	}
	wrapped := &tryParallelRecorder{inner: sched, seen: &sawParallel}

	mgr := New(wrapped, store, artifact.NewStubStore(), results, nil, nil, nil)
	tuning := rules.Tuning{PruneFactor: 0.5, MinRows: 1}
	_, err := mgr.Execute(context.Background(), []*types.Task{task}, Options{RunID: "run1", RunDir: "d", TryParallel: true, Tuning: tuning})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(sawParallel) < 2 {
		t.Fatalf("expected at least 2 iterations, got %d", len(sawParallel))
	}
	if !sawParallel[0] {
		t.Errorf("first iteration should honor try_parallel")
	}
	for i, v := range sawParallel[1:] {
		if v {
			t.Errorf("iteration %d should run serially, got try_parallel=true", i+2)
		}
	}
}

type tryParallelRecorder struct {
	inner Scheduler
	seen  *[]bool
}

func (r *tryParallelRecorder) Run(ctx context.Context, tasks []*types.Task, tryParallel bool, workers int, memLimitBytes int64, globalTimeout time.Duration) ([]types.TaskOutcome, []time.Duration, error) {
	*r.seen = append(*r.seen, tryParallel)
	return r.inner.Run(ctx, tasks, tryParallel, workers, memLimitBytes, globalTimeout)
}

func TestExecute_DedupHitSkipsScheduler(t *testing.T) {
	store := newStore(t)
	results := report.NewResultWriter(filepath.Join(t.TempDir(), "result.txt"))

	// Seed history with a prior success for the same (algo, params, fp, rows, cols).
	if err := store.AddRun(types.RunRecord{
		RunID: "run0", TaskID: "orig", Algorithm: "hyfd", Family: types.FamilyFD,
		Fingerprint: "fp1", Rows: 100, Cols: 4, Status: types.StatusSuccess,
		ArtifactPath: "run0dir/serialized_data/hyfd_orig", InstanceCount: 7,
	}); err != nil {
		t.Fatalf("seed AddRun failed: %v", err)
	}

	sched := &fakeScheduler{outcome: func(call int, tasks []*types.Task) []types.TaskOutcome {
		t.Fatal("scheduler should not be invoked on a full dedup hit")
		return nil
	}}

	mgr := New(sched, store, artifact.NewStubStore(), results, nil, nil, nil)
	records, err := mgr.Execute(context.Background(), []*types.Task{baseTask("t1")}, Options{RunID: "run1", RunDir: "run1dir"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Status != types.StatusSuccess || records[0].ArtifactPath != "run0dir/serialized_data/hyfd_orig" {
		t.Errorf("unexpected deduped record: %+v", records[0])
	}
}

func TestExecute_SkipDedupForcesExecution(t *testing.T) {
	store := newStore(t)
	results := report.NewResultWriter(filepath.Join(t.TempDir(), "result.txt"))

	if err := store.AddRun(types.RunRecord{
		RunID: "run0", TaskID: "orig", Algorithm: "hyfd", Family: types.FamilyFD,
		Fingerprint: "fp1", Rows: 100, Cols: 4, Status: types.StatusSuccess,
	}); err != nil {
		t.Fatalf("seed AddRun failed: %v", err)
	}

	invoked := false
	sched := &fakeScheduler{outcome: func(call int, tasks []*types.Task) []types.TaskOutcome {
		invoked = true
		out := make([]types.TaskOutcome, len(tasks))
		for i, task := range tasks {
			out[i] = types.TaskOutcome{TaskID: task.ID, Status: types.StatusSuccess, Payload: types.Payload{}}
		}
		return out
	}}

	mgr := New(sched, store, artifact.NewStubStore(), results, nil, nil, nil)
	_, err := mgr.Execute(context.Background(), []*types.Task{baseTask("t1")}, Options{RunID: "run1", RunDir: "d", SkipDedup: true})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !invoked {
		t.Error("expected scheduler to be invoked when dedup is skipped")
	}
}

func TestExecute_SkipActionTerminatesWithoutRetry(t *testing.T) {
	store := newStore(t)
	results := report.NewResultWriter(filepath.Join(t.TempDir(), "result.txt"))

	task := baseTask("t1")
	task.Strategy = types.StrategySingleRun

	sched := &fakeScheduler{outcome: func(call int, tasks []*types.Task) []types.TaskOutcome {
		out := make([]types.TaskOutcome, len(tasks))
		for i, task := range tasks {
			out[i] = types.TaskOutcome{TaskID: task.ID, Status: types.StatusTimeout, ErrorKind: string(types.StatusTimeout)}
		}
		return out
	}}

	mgr := New(sched, store, artifact.NewStubStore(), results, nil, nil, nil)
	records, err := mgr.Execute(context.Background(), []*types.Task{task}, Options{RunID: "run1", RunDir: "d"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if sched.calls != 1 {
		t.Errorf("scheduler calls = %d, want 1 (single_run never retries)", sched.calls)
	}
	if len(records) != 1 || records[0].Status != types.StatusTimeout {
		t.Errorf("unexpected records: %+v", records)
	}
}
