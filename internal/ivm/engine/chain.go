package engine

import (
	"fmt"

	"github.com/malbeclabs/lake/internal/ivm/dimension"
	"github.com/malbeclabs/lake/internal/ivm/expr"
	"github.com/malbeclabs/lake/internal/ivm/op"
	"github.com/malbeclabs/lake/internal/ivm/plan"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

// chain is one compiled pipeline: the ordered operator stack (index 0 is
// closest to the store) plus the field paths whose dimensions this chain's
// filter stages probe.
type chain struct {
	// stages holds every operator in upstream-to-downstream order, so the
	// driver can feed a raw delta through stage 0 and pipe each stage's
	// output into the next (spec §5 "visits stages in plan order").
	stages   []op.Operator
	terminal op.Operator
	usedDims []string
	planRef  *plan.Plan
}

func compileFieldMap(fields map[string]*expr.Node) (map[string]expr.Compiled, error) {
	out := make(map[string]expr.Compiled, len(fields))
	for name, n := range fields {
		c, err := expr.Compile(n)
		if err != nil {
			return nil, fmt.Errorf("ivm: compiling field %q: %w", name, err)
		}
		out[name] = c
	}
	return out, nil
}

// buildChain compiles a planner-rewritten pipeline into an ordered
// operator stack, per spec §4.6 "compile(pipeline)". Dimensions a filter
// probes are built lazily via e.dimensionFor; join stages resolve their
// foreign collection's current live snapshot via e.foreignSnapshot.
func (e *Engine) buildChain(stages plan.Pipeline) (*chain, error) {
	var up op.Operator
	var usedDims []string
	var built []op.Operator

	for i, s := range stages {
		switch s.Kind {
		case plan.StageFilter:
			pred, hint, err := expr.CompilePredicate(s.Predicate)
			if err != nil {
				return nil, fmt.Errorf("ivm: compiling filter predicate: %w", err)
			}
			var dim *dimension.Dimension
			if hint.OK {
				dim = e.dimensionFor(hint.Field)
				usedDims = append(usedDims, hint.Field)
			}
			up = op.NewFilter(up, pred, hint, dim)

		case plan.StageReshape:
			fields, err := compileFieldMap(s.Fields)
			if err != nil {
				return nil, err
			}
			up = op.NewReshape(up, fields)

		case plan.StageAddFields:
			fields, err := compileFieldMap(s.Fields)
			if err != nil {
				return nil, err
			}
			up = op.NewAddFields(up, fields)

		case plan.StageGroup:
			keyC, err := expr.Compile(s.GroupKey)
			if err != nil {
				return nil, fmt.Errorf("ivm: compiling group key: %w", err)
			}
			accs := make(map[string]op.AccumulatorSpec, len(s.Accumulators))
			for _, a := range s.Accumulators {
				c, err := expr.Compile(a.Expr)
				if err != nil {
					return nil, fmt.Errorf("ivm: compiling accumulator %q: %w", a.Name, err)
				}
				accs[a.Name] = op.AccumulatorSpec{Kind: a.Kind, Expr: c}
			}
			up = op.NewGroup(up, i, keyC, accs)

		case plan.StageSort:
			keys := make([]op.SortKey, len(s.SortKeys))
			for j, k := range s.SortKeys {
				acc, err := expr.Compile(expr.Field(k.Field))
				if err != nil {
					return nil, fmt.Errorf("ivm: compiling sort key %q: %w", k.Field, err)
				}
				keys[j] = op.SortKey{Field: k.Field, Desc: k.Desc, Acc: acc}
			}
			up = op.NewSort(up, keys, s.TopK)

		case plan.StageLimit:
			up = op.NewLimit(up, s.K)

		case plan.StageSkip:
			up = op.NewSkip(up, s.K)

		case plan.StageUnwind:
			up = op.NewUnwind(up, i, s.UnwindField)

		case plan.StageJoin:
			foreign, err := e.foreignSnapshot(s.Join.Foreign)
			if err != nil {
				return nil, err
			}
			up = op.NewJoin(up, s.Join.LocalField, s.Join.ForeignField, s.Join.OutputField, foreign)

		default:
			return nil, fmt.Errorf("ivm: unknown stage kind %v", s.Kind)
		}
		built = append(built, up)
	}

	return &chain{stages: built, terminal: up, usedDims: usedDims}, nil
}

// foreignSnapshot materializes the current live records of a named
// collection registered on the engine, for a join stage's probe index
// (spec §4.5.8 "built once on compile").
func (e *Engine) foreignSnapshot(name string) ([]value.Value, error) {
	coll, ok := e.collections[name]
	if !ok {
		return nil, fmt.Errorf("ivm: join references unknown foreign collection %q", name)
	}
	ids := coll.LiveIDs()
	out := make([]value.Value, 0, len(ids))
	for _, id := range ids {
		if rec, ok := coll.Get(id); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// foreignResolver adapts foreignSnapshot to the fallback executor's
// ForeignResolver signature.
func (e *Engine) foreignResolver(name string) ([]value.Value, error) {
	return e.foreignSnapshot(name)
}
