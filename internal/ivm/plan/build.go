package plan

import "github.com/malbeclabs/lake/internal/ivm/expr"

// Fusions counts which optimizations applied during Build, reported
// through statistics() per spec §6 "counters for planned fusions applied".
type Fusions struct {
	FilterReshape int
	SortTopK      int
	Dedup         int
	Pushdown      int
}

// Plan is the Pipeline Planner's output (spec §4.4): a rewritten stage
// list, incrementality flags, the field paths that need dimensions built,
// and diagnostics.
type Plan struct {
	Stages       Pipeline
	CanIncrement bool
	CanDecrement bool
	// Dimensions lists the field paths filter comparisons reference (see
	// probeField). The engine does not read it: buildChain builds a
	// dimension for each filter whose compiled predicate yields a probe hint.
	Dimensions []string
	Fusions    Fusions
	hash       string
}

// Hash returns the canonical cache key for the pre-rewrite pipeline this
// plan was built from.
func (p *Plan) Hash() string { return p.hash }

// Build runs the rewrite-rule fixpoint of spec §4.4 over raw and returns
// the resulting Plan. raw is never mutated.
func Build(raw Pipeline) *Plan {
	key := Hash(raw)
	stages := append(Pipeline(nil), raw...)

	var f Fusions
	for {
		changed := false
		f.FilterReshape = 0 // fusePass recounts every adjacent pair on each pass

		if pushdownPass(stages, &f) {
			changed = true
		}
		if s, ok := fusePass(stages, &f); ok {
			stages = s
			changed = true
		}
		if s, ok := dedupPass(stages, &f); ok {
			stages = s
			changed = true
		}
		if !changed {
			break
		}
	}

	canInc, canDec, dims := taint(stages)

	return &Plan{
		Stages:       stages,
		CanIncrement: canInc,
		CanDecrement: canDec,
		Dimensions:   dims,
		Fusions:      f,
		hash:         key,
	}
}

// pushdownPass implements spec §4.4 rule 2: move a filter up past an
// immediately preceding reshape when the filter only reads fields the
// reshape preserves unchanged (i.e. fields whose reshape expression is a
// bare passthrough of the same-named input field). Mutates stages in
// place and reports whether anything moved.
func pushdownPass(stages Pipeline, f *Fusions) bool {
	moved := false
	for i := 1; i < len(stages); i++ {
		reshape := stages[i-1]
		filter := stages[i]
		if reshape.Kind != StageReshape || filter.Kind != StageFilter {
			continue
		}
		if !predicateSurvivesReshape(filter.Predicate, reshape.Fields) {
			continue
		}
		stages[i-1], stages[i] = filter, reshape
		f.Pushdown++
		moved = true
	}
	return moved
}

// predicateSurvivesReshape reports whether every field pred reads is
// preserved unchanged by a reshape whose output fields are outFields.
func predicateSurvivesReshape(pred *expr.Node, outFields map[string]*expr.Node) bool {
	if pred == nil {
		return true
	}
	switch pred.Kind {
	case expr.KindField:
		out, ok := outFields[pred.Field]
		return ok && out.Kind == expr.KindField && out.Field == pred.Field
	case expr.KindOp:
		for _, a := range pred.Args {
			if !predicateSurvivesReshape(a, outFields) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// fusePass implements spec §4.4 rule 3: adjacent sort+limit fuse into a
// single sort stage bounded by TopK. Filter+reshape fusion needs no
// structural rewrite — the operator chain already evaluates the predicate
// and projection in one pass per delta — so it is only counted here for
// the statistics() diagnostic.
func fusePass(stages Pipeline, f *Fusions) (Pipeline, bool) {
	out := make(Pipeline, 0, len(stages))
	changed := false
	for i := 0; i < len(stages); i++ {
		if i+1 < len(stages) && stages[i].Kind == StageSort && stages[i+1].Kind == StageLimit && stages[i].TopK == 0 {
			s := stages[i]
			s.TopK = stages[i+1].K
			out = append(out, s)
			f.SortTopK++
			changed = true
			i++
			continue
		}
		if i+1 < len(stages) && stages[i].Kind == StageFilter && stages[i+1].Kind == StageReshape {
			f.FilterReshape++
		}
		out = append(out, stages[i])
	}
	if !changed {
		return stages, false
	}
	return out, true
}

// dedupPass implements spec §4.4 rule 4: drop an adjacent stage that is an
// exact duplicate of its predecessor (same canonical serialization).
func dedupPass(stages Pipeline, f *Fusions) (Pipeline, bool) {
	if len(stages) < 2 {
		return stages, false
	}
	out := make(Pipeline, 0, len(stages))
	out = append(out, stages[0])
	changed := false
	for i := 1; i < len(stages); i++ {
		if sameStage(stages[i], stages[i-1]) {
			f.Dedup++
			changed = true
			continue
		}
		out = append(out, stages[i])
	}
	if !changed {
		return stages, false
	}
	return out, true
}

func sameStage(a, b Stage) bool {
	return Hash(Pipeline{a}) == Hash(Pipeline{b})
}

// taint implements spec §4.4 rule 5: joins using the configurable
// subpipeline form clear both incrementality flags (§8 S6); any stage
// referencing a field via a filter's dimension-probe hint is collected
// into the dimensions-to-build list.
func taint(stages Pipeline) (canInc, canDec bool, dims []string) {
	canInc, canDec = true, true
	seen := make(map[string]bool)
	for _, s := range stages {
		if s.Kind == StageJoin && len(s.Join.SubPipeline) > 0 {
			canInc, canDec = false, false
		}
		if s.Kind == StageFilter {
			if field, ok := probeField(s.Predicate); ok && !seen[field] {
				seen[field] = true
				dims = append(dims, field)
			}
		}
	}
	return canInc, canDec, dims
}

// probeField extracts the field name of a two-argument comparison with a
// bare field on either side. It is looser than expr.CompilePredicate's hint
// extraction: it does not check that the other operand is constant, and it
// accepts in/nin with the field on the right.
func probeField(n *expr.Node) (string, bool) {
	if n == nil || n.Kind != expr.KindOp || len(n.Args) != 2 {
		return "", false
	}
	switch n.Op {
	case expr.OpEq, expr.OpGt, expr.OpGte, expr.OpLt, expr.OpLte, expr.OpIn, expr.OpNotIn:
	default:
		return "", false
	}
	a, b := n.Args[0], n.Args[1]
	if a.Kind == expr.KindField {
		return a.Field, true
	}
	if b.Kind == expr.KindField {
		return b.Field, true
	}
	return "", false
}
