// Package rules implements the recovery controller body (component E):
// a pure decision function over a failed task, its error kind, and a
// set of tuning knobs, per spec.md §4.3's policy table.
package rules

import (
	"fmt"
	"math"
	"time"

	"github.com/justapithecus/profiler/internal/types"
)

// MaxStages is the auto_decision strategy's stage ceiling.
const MaxStages = 3

// Action is the recovery decision for one failed task.
type Action string

// Action constants.
const (
	ActionRetry Action = "retry"
	ActionSkip  Action = "skip"
)

// Tuning holds the global knobs the policy table consults.
type Tuning struct {
	// TimeoutStep is added to the current timeout on each timeout_grow
	// retry.
	TimeoutStep float64
	// TimeoutMax caps how far timeout_grow will grow a timeout; a retry
	// whose new timeout would exceed this is skipped instead.
	TimeoutMax float64
	// PruneFactor is the fraction of rows kept on a shrink_search retry,
	// in (0, 1).
	PruneFactor float64
	// MinRows is the floor below which a shrunk table is abandoned
	// (skip instead of retry).
	MinRows int
}

// Decision is the outcome of applying the policy table to one failure.
type Decision struct {
	Action Action
	// RetryTask is set only when Action == ActionRetry: a new Task ready
	// for the next iteration (new ID, Stage+1, everything else carried
	// forward per spec.md §4.3).
	RetryTask *types.Task
}

// Decide applies spec.md §4.3's policy table to one failed task. It is
// pure except for the ask strategy, which consults prompter for the
// {skip, retry, prune} choice and, on prune, a custom factor.
func Decide(task *types.Task, errKind string, tuning Tuning, prompter Prompter) Decision {
	switch task.Strategy {
	case types.StrategySingleRun:
		return Decision{Action: ActionSkip}

	case types.StrategyTimeoutGrow:
		if errKind != string(types.StatusTimeout) {
			return Decision{Action: ActionSkip}
		}
		return decideTimeoutGrow(task, tuning)

	case types.StrategyShrinkSearch:
		if !isRetryableErrKind(errKind) {
			return Decision{Action: ActionSkip}
		}
		return decideShrinkSearch(task, tuning.PruneFactor, tuning.MinRows)

	case types.StrategyAutoDecision:
		if !isRetryableErrKind(errKind) {
			return Decision{Action: ActionSkip}
		}
		if task.Stage >= MaxStages {
			return Decision{Action: ActionSkip}
		}
		return decideShrinkSearch(task, tuning.PruneFactor, tuning.MinRows)

	case types.StrategyAsk:
		if !isRetryableErrKind(errKind) {
			return Decision{Action: ActionSkip}
		}
		return decideAsk(task, errKind, tuning, prompter)

	default:
		return Decision{Action: ActionSkip}
	}
}

func isRetryableErrKind(errKind string) bool {
	return errKind == string(types.StatusTimeout) || errKind == string(types.StatusMemoryError)
}

// decideTimeoutGrow implements: new_timeout = (current or step) + step;
// retry if <= timeout_max, else skip.
func decideTimeoutGrow(task *types.Task, tuning Tuning) Decision {
	current := task.Timeout.Seconds()
	if current <= 0 {
		current = tuning.TimeoutStep
	}
	newTimeout := current + tuning.TimeoutStep
	if newTimeout > tuning.TimeoutMax {
		return Decision{Action: ActionSkip}
	}
	retry := retryTask(task)
	retry.Timeout = time.Duration(newTimeout * float64(time.Second))
	return Decision{Action: ActionRetry, RetryTask: retry}
}

// decideShrinkSearch implements: new_rows = ceil(rows * prune_factor);
// retry with the first new_rows rows if >= min_rows, else skip.
func decideShrinkSearch(task *types.Task, pruneFactor float64, minRows int) Decision {
	newRows := int(math.Ceil(float64(task.Rows) * pruneFactor))
	if newRows < minRows {
		return Decision{Action: ActionSkip}
	}
	retry := retryTask(task)
	retry.Table = task.Table.Slice(newRows)
	retry.Rows = newRows
	return Decision{Action: ActionRetry, RetryTask: retry}
}

// decideAsk prompts for {skip, retry, prune}; on prune, it further
// prompts for a factor in (0, 1) and applies a row-slice with that
// factor rather than the global PruneFactor.
func decideAsk(task *types.Task, errKind string, tuning Tuning, prompter Prompter) Decision {
	if prompter == nil {
		prompter = NonInteractivePrompter{}
	}
	choice, err := prompter.PromptChoice(task, errKind)
	if err != nil {
		return Decision{Action: ActionSkip}
	}
	switch choice {
	case ChoiceRetry:
		retry := retryTask(task)
		return Decision{Action: ActionRetry, RetryTask: retry}
	case ChoicePrune:
		factor, err := prompter.PromptPruneFactor(task)
		if err != nil || factor <= 0 || factor >= 1 {
			factor = tuning.PruneFactor
		}
		return decideShrinkSearch(task, factor, tuning.MinRows)
	default:
		return Decision{Action: ActionSkip}
	}
}

// retryTask builds the next-stage Task per spec.md §4.3: a new ID,
// Stage+1, everything else (algorithm, family, params, fingerprint,
// strategy) carried forward. Callers further adjust Timeout or Table as
// their strategy requires.
func retryTask(task *types.Task) *types.Task {
	next := *task
	next.ID = fmt.Sprintf("%s-r%d", task.ID, task.Stage+1)
	next.Stage = task.Stage + 1
	return &next
}
