// Package registry implements the Algorithm Registry (component A): a
// pure mapping from (family, name) to a constructed Algorithm, plus
// family inference and default-algorithm lookup for profiles that only
// specify one of the two.
package registry

import (
	"fmt"
	"strings"

	"github.com/justapithecus/profiler/internal/types"
)

// Algorithm is the capability interface every mining/verification
// binding exposes. Out of scope per spec.md §1 ("black boxes exposing
// load/execute/get_results"); this module's job is dispatch, not math.
type Algorithm interface {
	Load(table *types.Table) error
	Execute(params map[string]any) error
	Results() (map[string]types.PrimitiveList, error)
}

// Factory constructs an Algorithm for one (family, algorithm name) pair.
type Factory func(name string) Algorithm

// defaultAlgorithms mirrors the original's DEFAULT_ALGORITHMS table: the
// algorithm used when a profile task names only a family.
var defaultAlgorithms = map[types.Family]string{
	types.FamilyFD:   "hyfd",
	types.FamilyAFD:  "pyro",
	types.FamilyCFD:  "fd_first",
	types.FamilyIND:  "spider",
	types.FamilyAIND: "spider",
	types.FamilyUCC:  "hpivalid",
	types.FamilyAUCC: "pyroucc",
	types.FamilyDD:   "split",
	types.FamilyAR:   "apriori",
	types.FamilyOD:   "fastod",
	types.FamilyNAR:  "des",
	types.FamilyDC:   "default",
	types.FamilyAC:   "default",
	types.FamilySFD:  "default",
	types.FamilyMD:   "default",
}

// algorithmFamilies mirrors get_family_by_algorithm: the reverse lookup
// used when a profile task names only an algorithm. Algorithms shared
// between an exact family and an approximate family (pyro/tane,
// spider, pyroucc) are resolved by the approximate-variant branch
// below, not listed here.
var algorithmFamilies = map[string]types.Family{
	"hyfd":     types.FamilyFD,
	"fd_mine":  types.FamilyFD,
	"dfd":      types.FamilyFD,
	"fd_first": types.FamilyCFD,
	"faida":    types.FamilyAIND,
	"hpivalid": types.FamilyUCC,
	"hyucc":    types.FamilyUCC,
	"split":    types.FamilyDD,
	"apriori":  types.FamilyAR,
	"fastod":   types.FamilyOD,
	"order":    types.FamilyOD,
	"des":      types.FamilyNAR,
}

// approximateVariants maps an algorithm that has both an exact and an
// approximate family to the pair of families it can resolve to, keyed
// [exact, approximate], per get_family_by_algorithm's "error > 0" branch
// for pyro/tane (fd/afd), spider (ind/aind), and pyroucc (ucc/aucc).
var approximateVariants = map[string][2]types.Family{
	"pyro":    {types.FamilyFD, types.FamilyAFD},
	"tane":    {types.FamilyFD, types.FamilyAFD},
	"spider":  {types.FamilyIND, types.FamilyAIND},
	"pyroucc": {types.FamilyUCC, types.FamilyAUCC},
}

// DefaultAlgorithm returns the default algorithm name for a family, as
// the original's get_algorithm_name_by_family does.
func DefaultAlgorithm(family types.Family) (string, error) {
	name, ok := defaultAlgorithms[family]
	if !ok {
		return "", fmt.Errorf("registry: no default algorithm for family %q", family)
	}
	return name, nil
}

// InferFamily returns the family an algorithm belongs to, consulting
// params["error"] for algorithms with both an exact and approximate
// variant (spec.md §8's "taking the approximate-variant branch iff
// error > 0 is in parameters").
func InferFamily(algorithm string, params map[string]any) (types.Family, error) {
	name := strings.ToLower(algorithm)

	if pair, ok := approximateVariants[name]; ok {
		if hasPositiveError(params) {
			return pair[1], nil
		}
		return pair[0], nil
	}

	family, ok := algorithmFamilies[name]
	if !ok {
		return "", fmt.Errorf("registry: unsupported algorithm %q", algorithm)
	}
	return family, nil
}

func hasPositiveError(params map[string]any) bool {
	if params == nil {
		return false
	}
	v, ok := params["error"]
	if !ok {
		return false
	}
	switch n := v.(type) {
	case float64:
		return n > 0
	case int:
		return n > 0
	case bool:
		return n
	default:
		return false
	}
}

// registryTable maps a family to the Factory that constructs its
// algorithms. Populated by init() in algorithms.go, where the stand-in
// algorithm bodies live.
var registryTable = map[types.Family]Factory{}

// register is called from algorithms.go's init to populate the family
// dispatch table.
func register(family types.Family, factory Factory) {
	registryTable[family] = factory
}

// New constructs the Algorithm for (family, name). If name is empty, the
// family's default algorithm is used.
func New(family types.Family, name string) (Algorithm, error) {
	if name == "" {
		def, err := DefaultAlgorithm(family)
		if err != nil {
			return nil, err
		}
		name = def
	}

	factory, ok := registryTable[family]
	if !ok {
		return nil, fmt.Errorf("registry: unregistered family %q", family)
	}
	return factory(name), nil
}
