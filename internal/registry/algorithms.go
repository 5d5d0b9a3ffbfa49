package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/justapithecus/profiler/internal/types"
)

// genericAlgorithm is a deterministic, registrable stand-in for the real
// mining/verification libraries named in spec.md's Algorithm Registry.
// It records params["threads"] (without otherwise using it), does not
// read params["error"], and derives its output from an exact
// column-to-column check over the loaded rows, so the scheduler, runner,
// and rules engine have real work to drive and verify against, without
// this module taking on the numerical mining it explicitly excludes.
type genericAlgorithm struct {
	family    types.Family
	algorithm string

	table   *types.Table
	threads int
}

func newGenericAlgorithm(family types.Family) Factory {
	return func(name string) Algorithm {
		return &genericAlgorithm{family: family, algorithm: name}
	}
}

func (a *genericAlgorithm) Load(table *types.Table) error {
	if table == nil {
		return fmt.Errorf("registry: %s/%s: nil table", a.family, a.algorithm)
	}
	a.table = table
	return nil
}

func (a *genericAlgorithm) Execute(params map[string]any) error {
	if a.table == nil {
		return fmt.Errorf("registry: %s/%s: Execute called before Load", a.family, a.algorithm)
	}
	a.threads = intParam(params, "threads", 1)

	// Test/deterministic-scenario hooks: a profile task may request a
	// simulated sleep (to exercise per-task/global deadlines) or a
	// simulated failure (to exercise the rules engine), since the real
	// mining libraries are out of scope and this stand-in otherwise
	// always succeeds instantly.
	if seconds := floatParam(params, "force_sleep_seconds", 0); seconds > 0 {
		time.Sleep(time.Duration(seconds * float64(time.Second)))
	}
	switch forceError(params) {
	case "memory_error":
		return fmt.Errorf("registry: %s/%s: memory limit exceeded", a.family, a.algorithm)
	case "error":
		return fmt.Errorf("registry: %s/%s: simulated failure", a.family, a.algorithm)
	}
	return nil
}

func (a *genericAlgorithm) Results() (map[string]types.PrimitiveList, error) {
	if a.table == nil {
		return nil, fmt.Errorf("registry: %s/%s: Results called before Load", a.family, a.algorithm)
	}

	kind := resultKind(a.family)
	cols := a.table.ColCount()
	if cols < 1 {
		return map[string]types.PrimitiveList{kind: {}}, nil
	}

	header := a.table.Header
	colName := func(i int) string {
		if i < len(header) {
			return header[i]
		}
		return fmt.Sprintf("col%d", i)
	}

	var instances types.PrimitiveList
	for lhs := 0; lhs < cols; lhs++ {
		for rhs := 0; rhs < cols; rhs++ {
			if lhs == rhs {
				continue
			}
			if !columnDeterminesPrefix(a.table, lhs, rhs) {
				continue
			}
			instances = append(instances, fmt.Sprintf("%s -> %s", colName(lhs), colName(rhs)))
		}
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].(string) < instances[j].(string)
	})

	return map[string]types.PrimitiveList{kind: instances}, nil
}

// columnDeterminesPrefix reports whether, within the loaded row prefix,
// column lhs's value always maps to the same column rhs value -- a
// literal functional dependency check over the (possibly shrunk) table,
// used as the deterministic substitute for a real mining algorithm.
func columnDeterminesPrefix(table *types.Table, lhs, rhs int) bool {
	seen := make(map[string]string, len(table.Rows))
	for _, row := range table.Rows {
		if lhs >= len(row) || rhs >= len(row) {
			continue
		}
		prev, ok := seen[row[lhs]]
		if ok && prev != row[rhs] {
			return false
		}
		seen[row[lhs]] = row[rhs]
	}
	return len(table.Rows) > 0
}

// resultKind names the primitive kind produced per family, matching the
// vocabulary spec.md's GLOSSARY and result.txt format use.
func resultKind(family types.Family) string {
	switch family {
	case types.FamilyFD, types.FamilyAFD:
		return "functional_dependency"
	case types.FamilyCFD:
		return "conditional_functional_dependency"
	case types.FamilyIND, types.FamilyAIND:
		return "inclusion_dependency"
	case types.FamilyUCC, types.FamilyAUCC:
		return "unique_column_combination"
	case types.FamilyDD:
		return "differential_dependency"
	case types.FamilyAR, types.FamilyNAR:
		return "association_rule"
	case types.FamilyOD:
		return "order_dependency"
	case types.FamilyDC:
		return "denial_constraint"
	case types.FamilyAC:
		return "algebraic_constraint"
	case types.FamilySFD:
		return "soft_functional_dependency"
	case types.FamilyMD:
		return "matching_dependency"
	default:
		return "primitive"
	}
}

func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

func floatParam(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

func forceError(params map[string]any) string {
	v, ok := params["force_error"]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func init() {
	for _, family := range []types.Family{
		types.FamilyFD, types.FamilyAFD, types.FamilyCFD, types.FamilyIND,
		types.FamilyAIND, types.FamilyUCC, types.FamilyAUCC, types.FamilyDD,
		types.FamilyAR, types.FamilyOD, types.FamilyNAR, types.FamilyDC,
		types.FamilyAC, types.FamilySFD, types.FamilyMD,
	} {
		register(family, newGenericAlgorithm(family))
	}
}
