package rules

import "github.com/justapithecus/profiler/internal/types"

// Choice is the user's answer to the ask strategy's interactive prompt.
type Choice string

// Choice constants.
const (
	ChoiceSkip  Choice = "skip"
	ChoiceRetry Choice = "retry"
	ChoicePrune Choice = "prune"
)

// Prompter asks a human what to do about one failed ask-strategy task.
// Factored behind an interface so tests and non-interactive runs never
// block on stdin; internal/rules/tui supplies the real implementation.
type Prompter interface {
	// PromptChoice asks for {skip, retry, prune} given the failed task
	// and its error kind.
	PromptChoice(task *types.Task, errKind string) (Choice, error)
	// PromptPruneFactor asks for a row-keep factor in (0, 1), used only
	// after a PromptChoice of prune.
	PromptPruneFactor(task *types.Task) (float64, error)
}

// NonInteractivePrompter always answers skip without blocking. Decide
// falls back to it when the ask strategy is given a nil Prompter.
type NonInteractivePrompter struct{}

// PromptChoice always returns ChoiceSkip.
func (NonInteractivePrompter) PromptChoice(*types.Task, string) (Choice, error) {
	return ChoiceSkip, nil
}

// PromptPruneFactor is never called in practice since PromptChoice never
// returns ChoicePrune, but is implemented for interface completeness.
func (NonInteractivePrompter) PromptPruneFactor(*types.Task) (float64, error) {
	return 0, nil
}
