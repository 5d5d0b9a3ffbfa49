package rules

import (
	"testing"
	"time"

	"github.com/justapithecus/profiler/internal/types"
)

func baseTask(strategy types.Strategy) *types.Task {
	return &types.Task{
		ID:        "t1",
		Family:    types.FamilyFD,
		Algorithm: "hyfd",
		Params:    map[string]any{"threads": 1},
		Table:     &types.Table{Rows: make([][]string, 100), Fingerprint: "abc"},
		Rows:      100,
		Cols:      4,
		Timeout:   600 * time.Second,
		Strategy:  strategy,
		Stage:     1,
	}
}

func TestDecide_SingleRunAlwaysSkips(t *testing.T) {
	d := Decide(baseTask(types.StrategySingleRun), string(types.StatusTimeout), Tuning{}, nil)
	if d.Action != ActionSkip {
		t.Fatalf("Action = %v, want skip", d.Action)
	}
}

func TestDecide_TimeoutGrow(t *testing.T) {
	tuning := Tuning{TimeoutStep: 300, TimeoutMax: 2000}
	task := baseTask(types.StrategyTimeoutGrow)

	d := Decide(task, string(types.StatusTimeout), tuning, nil)
	if d.Action != ActionRetry {
		t.Fatalf("Action = %v, want retry", d.Action)
	}
	wantTimeout := 900 * time.Second
	if d.RetryTask.Timeout != wantTimeout {
		t.Errorf("Timeout = %v, want %v", d.RetryTask.Timeout, wantTimeout)
	}
	if d.RetryTask.Stage != 2 {
		t.Errorf("Stage = %d, want 2", d.RetryTask.Stage)
	}

	// Non-timeout errors always skip.
	if got := Decide(task, string(types.StatusMemoryError), tuning, nil); got.Action != ActionSkip {
		t.Errorf("memory_error under timeout_grow: Action = %v, want skip", got.Action)
	}
}

func TestDecide_TimeoutGrowStopsAtMax(t *testing.T) {
	tuning := Tuning{TimeoutStep: 300, TimeoutMax: 1000}
	task := baseTask(types.StrategyTimeoutGrow)
	task.Timeout = 900 * time.Second

	d := Decide(task, string(types.StatusTimeout), tuning, nil)
	if d.Action != ActionSkip {
		t.Fatalf("Action = %v, want skip (900+300=1200 > 1000 max)", d.Action)
	}
}

func TestDecide_ShrinkSearch(t *testing.T) {
	tuning := Tuning{PruneFactor: 0.7, MinRows: 10}
	task := baseTask(types.StrategyShrinkSearch)
	task.Rows = 100
	task.Table = &types.Table{Rows: make([][]string, 100)}

	d := Decide(task, string(types.StatusTimeout), tuning, nil)
	if d.Action != ActionRetry {
		t.Fatalf("Action = %v, want retry", d.Action)
	}
	if d.RetryTask.Rows != 70 {
		t.Errorf("Rows = %d, want 70", d.RetryTask.Rows)
	}
	if got := len(d.RetryTask.Table.Rows); got != 70 {
		t.Errorf("Table row count = %d, want 70", got)
	}

	d = Decide(task, string(types.StatusMemoryError), tuning, nil)
	if d.Action != ActionRetry {
		t.Fatalf("MemoryError under shrink_search: Action = %v, want retry", d.Action)
	}
}

func TestDecide_ShrinkSearchBelowMinRowsSkips(t *testing.T) {
	tuning := Tuning{PruneFactor: 0.1, MinRows: 50}
	task := baseTask(types.StrategyShrinkSearch)
	task.Rows = 100
	task.Table = &types.Table{Rows: make([][]string, 100)}

	d := Decide(task, string(types.StatusTimeout), tuning, nil)
	if d.Action != ActionSkip {
		t.Fatalf("Action = %v, want skip (10 < 50 min_rows)", d.Action)
	}
}

func TestDecide_AutoDecisionStopsAtMaxStages(t *testing.T) {
	tuning := Tuning{PruneFactor: 0.7, MinRows: 1}
	task := baseTask(types.StrategyAutoDecision)
	task.Stage = MaxStages

	d := Decide(task, string(types.StatusTimeout), tuning, nil)
	if d.Action != ActionSkip {
		t.Fatalf("Action = %v, want skip at MaxStages", d.Action)
	}
}

func TestDecide_AutoDecisionShrinksBelowMaxStages(t *testing.T) {
	tuning := Tuning{PruneFactor: 0.5, MinRows: 1}
	task := baseTask(types.StrategyAutoDecision)
	task.Stage = 1
	task.Rows = 20
	task.Table = &types.Table{Rows: make([][]string, 20)}

	d := Decide(task, string(types.StatusMemoryError), tuning, nil)
	if d.Action != ActionRetry {
		t.Fatalf("Action = %v, want retry", d.Action)
	}
	if d.RetryTask.Rows != 10 {
		t.Errorf("Rows = %d, want 10", d.RetryTask.Rows)
	}
}

func TestDecide_AnyOtherErrorSkipsRegardlessOfStrategy(t *testing.T) {
	tuning := Tuning{TimeoutStep: 300, TimeoutMax: 2000, PruneFactor: 0.7, MinRows: 1}
	for _, strategy := range []types.Strategy{
		types.StrategyTimeoutGrow, types.StrategyShrinkSearch, types.StrategyAutoDecision, types.StrategyAsk,
	} {
		task := baseTask(strategy)
		d := Decide(task, "error", tuning, nil)
		if d.Action != ActionSkip {
			t.Errorf("strategy=%s errKind=error: Action = %v, want skip", strategy, d.Action)
		}
	}
}

type scriptedPrompter struct {
	choice      Choice
	choiceErr   error
	pruneFactor float64
	pruneErr    error
}

func (p scriptedPrompter) PromptChoice(*types.Task, string) (Choice, error) {
	return p.choice, p.choiceErr
}

func (p scriptedPrompter) PromptPruneFactor(*types.Task) (float64, error) {
	return p.pruneFactor, p.pruneErr
}

func TestDecide_AskDefaultsToNonInteractiveSkip(t *testing.T) {
	task := baseTask(types.StrategyAsk)
	d := Decide(task, string(types.StatusTimeout), Tuning{}, nil)
	if d.Action != ActionSkip {
		t.Fatalf("Action = %v, want skip with nil prompter", d.Action)
	}
}

func TestDecide_AskRetry(t *testing.T) {
	task := baseTask(types.StrategyAsk)
	d := Decide(task, string(types.StatusTimeout), Tuning{}, scriptedPrompter{choice: ChoiceRetry})
	if d.Action != ActionRetry {
		t.Fatalf("Action = %v, want retry", d.Action)
	}
	if d.RetryTask.Stage != task.Stage+1 {
		t.Errorf("Stage = %d, want %d", d.RetryTask.Stage, task.Stage+1)
	}
}

func TestDecide_AskPrune(t *testing.T) {
	task := baseTask(types.StrategyAsk)
	task.Rows = 100
	task.Table = &types.Table{Rows: make([][]string, 100)}

	d := Decide(task, string(types.StatusTimeout), Tuning{MinRows: 1}, scriptedPrompter{choice: ChoicePrune, pruneFactor: 0.25})
	if d.Action != ActionRetry {
		t.Fatalf("Action = %v, want retry", d.Action)
	}
	if d.RetryTask.Rows != 25 {
		t.Errorf("Rows = %d, want 25", d.RetryTask.Rows)
	}
}

func TestDecide_AskPruneInvalidFactorFallsBackToTuning(t *testing.T) {
	task := baseTask(types.StrategyAsk)
	task.Rows = 100
	task.Table = &types.Table{Rows: make([][]string, 100)}

	d := Decide(task, string(types.StatusTimeout), Tuning{PruneFactor: 0.5, MinRows: 1}, scriptedPrompter{choice: ChoicePrune, pruneFactor: 2})
	if d.Action != ActionRetry {
		t.Fatalf("Action = %v, want retry", d.Action)
	}
	if d.RetryTask.Rows != 50 {
		t.Errorf("Rows = %d, want 50 (fallback to tuning.PruneFactor)", d.RetryTask.Rows)
	}
}

func TestRetryTaskPreservesIdentityFields(t *testing.T) {
	task := baseTask(types.StrategyTimeoutGrow)
	r := retryTask(task)
	if r.Algorithm != task.Algorithm || r.Family != task.Family || r.Fingerprint != task.Fingerprint || r.Strategy != task.Strategy {
		t.Error("retry task must preserve algorithm, family, fingerprint, strategy")
	}
	if r.ID == task.ID {
		t.Error("retry task must have a new ID")
	}
	if r.Stage != task.Stage+1 {
		t.Errorf("Stage = %d, want %d", r.Stage, task.Stage+1)
	}
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	rec.Record(Decision{Action: ActionRetry})
	rec.Record(Decision{Action: ActionSkip})
	rec.Record(Decision{Action: ActionSkip})

	snap := rec.Snapshot()
	if snap.Retries != 1 || snap.Skips != 2 {
		t.Errorf("Snapshot = %+v, want Retries=1 Skips=2", snap)
	}
}
