// Package plan implements the Pipeline Planner of spec.md §4.4: it takes a
// raw, already-validated pipeline (there is no surface grammar, spec §1
// Non-goals) and produces an ordered list of compiled stage descriptors
// plus incrementality flags, applying canonicalization, pushdown, fusion,
// dedup, and non-incremental tainting.
//
// Grounded on other_examples' script-weaver incremental planner
// (BuildIncrementalPlan): a plan is a pure function of a canonical
// snapshot, never executes anything itself, and is content-hashed for
// caching.
package plan

import "github.com/malbeclabs/lake/internal/ivm/expr"

// StageKind is the closed enumeration of pipeline stage kinds spec §6
// names: filter, reshape, add_fields, group, sort, limit, skip, unwind,
// join.
type StageKind int

const (
	StageFilter StageKind = iota
	StageReshape
	StageAddFields
	StageGroup
	StageSort
	StageLimit
	StageSkip
	StageUnwind
	StageJoin
)

func (k StageKind) String() string {
	switch k {
	case StageFilter:
		return "filter"
	case StageReshape:
		return "reshape"
	case StageAddFields:
		return "add_fields"
	case StageGroup:
		return "group"
	case StageSort:
		return "sort"
	case StageLimit:
		return "limit"
	case StageSkip:
		return "skip"
	case StageUnwind:
		return "unwind"
	case StageJoin:
		return "join"
	default:
		return "unknown"
	}
}

// AccumulatorArg names one output field of a group stage.
type AccumulatorArg struct {
	Name string
	Kind expr.AccKind
	Expr *expr.Node
}

// SortKeyArg is one field of a compound sort key.
type SortKeyArg struct {
	Field string
	Desc  bool
}

// JoinArg is the equality-join configuration of spec §4.5.8. Foreign names
// a collection the engine resolves at compile time; SubPipeline, when
// non-empty, is the "configurable-subpipeline form" that always taints the
// plan non-incremental (spec §4.4 rule 5, §8 S6) — this planner does not
// attempt to maintain it incrementally regardless of its contents.
type JoinArg struct {
	Foreign      string
	LocalField   string
	ForeignField string
	OutputField  string
	SubPipeline  Pipeline
}

// Stage is one tagged pipeline stage. Exactly one of the kind-specific
// fields is populated, selected by Kind.
type Stage struct {
	Kind StageKind

	// filter
	Predicate *expr.Node

	// reshape / add_fields: output field name -> expression
	Fields map[string]*expr.Node

	// group
	GroupKey     *expr.Node
	Accumulators []AccumulatorArg

	// sort; TopK > 0 means the planner fused a trailing limit into this
	// stage (spec §4.4 rule 3, §4.5.5).
	SortKeys []SortKeyArg
	TopK     int

	// limit / skip
	K int

	// unwind
	UnwindField string

	// join
	Join *JoinArg
}

func Filter(pred *expr.Node) Stage { return Stage{Kind: StageFilter, Predicate: pred} }
func Reshape(fields map[string]*expr.Node) Stage {
	return Stage{Kind: StageReshape, Fields: fields}
}
func AddFields(fields map[string]*expr.Node) Stage {
	return Stage{Kind: StageAddFields, Fields: fields}
}
func Group(key *expr.Node, accs []AccumulatorArg) Stage {
	return Stage{Kind: StageGroup, GroupKey: key, Accumulators: accs}
}
func Sort(keys []SortKeyArg) Stage { return Stage{Kind: StageSort, SortKeys: keys} }
func Limit(k int) Stage            { return Stage{Kind: StageLimit, K: k} }
func Skip(k int) Stage             { return Stage{Kind: StageSkip, K: k} }
func Unwind(field string) Stage    { return Stage{Kind: StageUnwind, UnwindField: field} }
func Join(j JoinArg) Stage         { return Stage{Kind: StageJoin, Join: &j} }

// Pipeline is an ordered sequence of stages — the abstract pipeline shape
// of spec §6.
type Pipeline []Stage
