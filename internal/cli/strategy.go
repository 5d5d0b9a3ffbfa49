package cli

import (
	"fmt"

	"github.com/justapithecus/profiler/internal/types"
)

// strategyFromFlag maps the --strategy flag's spelling onto
// types.Strategy. The CLI spells the shrink-search strategy
// "prune_search" (spec.md §6); the internal constant is
// types.StrategyShrinkSearch ("shrink_search") to match its actual
// effect (shrinking the search space, i.e. the table). The other four
// values already agree.
func strategyFromFlag(value string) (types.Strategy, error) {
	switch value {
	case "auto_decision":
		return types.StrategyAutoDecision, nil
	case "ask":
		return types.StrategyAsk, nil
	case "timeout_grow":
		return types.StrategyTimeoutGrow, nil
	case "prune_search":
		return types.StrategyShrinkSearch, nil
	case "single_run":
		return types.StrategySingleRun, nil
	default:
		return "", fmt.Errorf("unknown --strategy value %q", value)
	}
}
