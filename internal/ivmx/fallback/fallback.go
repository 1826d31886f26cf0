// Package fallback implements the whole-collection reference executor spec
// §7 calls for when a plan is tainted non-incremental (join via the
// configurable-subpipeline form, per §4.4 rule 5 and §8 S6): it runs the
// pipeline directly over a batch of records instead of propagating deltas
// through the op package's stateful operators.
//
// Grounded on the teacher's dataset/query.go full-scan-then-filter style
// (indexer/pkg/clickhouse/dataset): re-derive the answer from source data
// rather than maintain it.
package fallback

import (
	"fmt"
	"sort"

	"github.com/malbeclabs/lake/internal/ivm/expr"
	"github.com/malbeclabs/lake/internal/ivm/plan"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

// ForeignResolver looks up a named collection's current records for a join
// stage, the batch-mode equivalent of engine.foreignSnapshot.
type ForeignResolver func(name string) ([]value.Value, error)

// Execute runs pipeline over records from scratch and returns the batch
// result (spec P1 "IVM-equals-batch": this is the "full_execute" side of
// that equivalence).
func Execute(pipeline plan.Pipeline, records []value.Value, foreign ForeignResolver) ([]value.Value, error) {
	cur := append([]value.Value(nil), records...)
	for _, s := range pipeline {
		var err error
		cur, err = applyStage(s, cur, foreign)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func applyStage(s plan.Stage, in []value.Value, foreign ForeignResolver) ([]value.Value, error) {
	switch s.Kind {
	case plan.StageFilter:
		pred, _, err := expr.CompilePredicate(s.Predicate)
		if err != nil {
			return nil, err
		}
		out := in[:0:0]
		for _, rec := range in {
			if pred(expr.NewContext(rec)) {
				out = append(out, rec)
			}
		}
		return out, nil

	case plan.StageReshape:
		fields, err := compileFields(s.Fields)
		if err != nil {
			return nil, err
		}
		out := make([]value.Value, len(in))
		for i, rec := range in {
			ctx := expr.NewContext(rec)
			m := make(map[string]value.Value, len(fields))
			for name, c := range fields {
				m[name] = c(ctx)
			}
			out[i] = value.Map(m)
		}
		return out, nil

	case plan.StageAddFields:
		fields, err := compileFields(s.Fields)
		if err != nil {
			return nil, err
		}
		out := make([]value.Value, len(in))
		for i, rec := range in {
			ctx := expr.NewContext(rec)
			result := rec
			for name, c := range fields {
				result = value.Compile(name).Set(result, c(ctx))
			}
			out[i] = result
		}
		return out, nil

	case plan.StageGroup:
		return applyGroup(s, in)

	case plan.StageSort:
		return applySort(s, in)

	case plan.StageLimit:
		if s.K >= len(in) {
			return in, nil
		}
		return in[:s.K], nil

	case plan.StageSkip:
		if s.K >= len(in) {
			return nil, nil
		}
		return in[s.K:], nil

	case plan.StageUnwind:
		return applyUnwind(s, in)

	case plan.StageJoin:
		return applyJoin(s, in, foreign)

	default:
		return nil, fmt.Errorf("ivmx/fallback: unknown stage kind %v", s.Kind)
	}
}

func compileFields(fields map[string]*expr.Node) (map[string]expr.Compiled, error) {
	out := make(map[string]expr.Compiled, len(fields))
	for name, n := range fields {
		c, err := expr.Compile(n)
		if err != nil {
			return nil, fmt.Errorf("ivmx/fallback: compiling field %q: %w", name, err)
		}
		out[name] = c
	}
	return out, nil
}

func applyGroup(s plan.Stage, in []value.Value) ([]value.Value, error) {
	keyC, err := expr.Compile(s.GroupKey)
	if err != nil {
		return nil, err
	}
	type groupAcc struct {
		key  value.Value
		regs map[string]expr.Register
	}
	order := make([]string, 0)
	groups := make(map[string]*groupAcc)
	accExprs := make(map[string]expr.Compiled, len(s.Accumulators))
	for _, a := range s.Accumulators {
		c, err := expr.Compile(a.Expr)
		if err != nil {
			return nil, err
		}
		accExprs[a.Name] = c
	}
	for _, rec := range in {
		ctx := expr.NewContext(rec)
		key := keyC(ctx)
		k := key.Key()
		g, ok := groups[k]
		if !ok {
			g = &groupAcc{key: key, regs: make(map[string]expr.Register, len(s.Accumulators))}
			for _, a := range s.Accumulators {
				g.regs[a.Name] = expr.NewRegister(a.Kind)
			}
			groups[k] = g
			order = append(order, k)
		}
		for name, c := range accExprs {
			g.regs[name].Add(c(ctx))
		}
	}
	out := make([]value.Value, 0, len(order))
	for _, k := range order {
		g := groups[k]
		m := make(map[string]value.Value, len(g.regs)+1)
		m["_id"] = g.key
		for name, reg := range g.regs {
			m[name] = reg.Value()
		}
		out = append(out, value.Map(m))
	}
	return out, nil
}

func applySort(s plan.Stage, in []value.Value) ([]value.Value, error) {
	accs := make([]expr.Compiled, len(s.SortKeys))
	for i, k := range s.SortKeys {
		c, err := expr.Compile(expr.Field(k.Field))
		if err != nil {
			return nil, err
		}
		accs[i] = c
	}
	out := append([]value.Value(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := expr.NewContext(out[i]), expr.NewContext(out[j])
		for k, acc := range accs {
			c := value.Compare(acc(ci), acc(cj))
			if s.SortKeys[k].Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	if s.TopK > 0 && s.TopK < len(out) {
		out = out[:s.TopK]
	}
	return out, nil
}

func applyUnwind(s plan.Stage, in []value.Value) ([]value.Value, error) {
	acc := value.Compile(s.UnwindField)
	var out []value.Value
	for _, rec := range in {
		arr := acc.Get(rec)
		if arr.Tag() != value.TagArray {
			continue
		}
		for _, e := range arr.Array() {
			out = append(out, acc.Set(rec, e))
		}
	}
	return out, nil
}

func applyJoin(s plan.Stage, in []value.Value, foreign ForeignResolver) ([]value.Value, error) {
	if foreign == nil {
		return nil, fmt.Errorf("ivmx/fallback: join requires a foreign resolver")
	}
	foreignRecs, err := foreign(s.Join.Foreign)
	if err != nil {
		return nil, err
	}
	if len(s.Join.SubPipeline) > 0 {
		foreignRecs, err = Execute(s.Join.SubPipeline, foreignRecs, foreign)
		if err != nil {
			return nil, err
		}
	}
	foreignAcc := value.Compile(s.Join.ForeignField)
	probe := make(map[string][]value.Value)
	for _, r := range foreignRecs {
		k := foreignAcc.Get(r).Key()
		probe[k] = append(probe[k], r)
	}
	localAcc := value.Compile(s.Join.LocalField)
	outputAcc := value.Compile(s.Join.OutputField)
	out := make([]value.Value, len(in))
	for i, rec := range in {
		matches := probe[localAcc.Get(rec).Key()]
		arr := make([]value.Value, len(matches))
		copy(arr, matches)
		out[i] = outputAcc.Set(rec, value.Array(arr))
	}
	return out, nil
}
