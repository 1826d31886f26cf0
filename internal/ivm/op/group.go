package op

import (
	"github.com/malbeclabs/lake/internal/ivm/expr"
	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/value"
	"github.com/malbeclabs/lake/internal/ivmx/pool"
)

// AccumulatorSpec names one output field of a group stage: the accumulator
// kind and the expression it is fed (spec §6 "group(key expr, { name ->
// accumulator(expr) })").
type AccumulatorSpec struct {
	Kind expr.AccKind
	Expr expr.Compiled
}

type groupState struct {
	key     value.Value
	virt    rowid.RowID
	members map[string]bool
	regs    map[string]expr.Register
}

// Group implements spec §4.5.4: groups upstream records by a compiled key
// expression, maintaining a reversible accumulator register per output
// field per group. Emits one downstream row per distinct key, keyed by a
// deterministic virtual row id so group membership survives re-compilation
// (P6).
type Group struct {
	Up           Operator
	StageIndex   int
	KeyExpr      expr.Compiled
	Accumulators map[string]AccumulatorSpec

	states map[string]*groupState // key.Key() -> state
	byVirt map[string]*groupState // virtual row id string -> state

	// slotOf/changed track which groups were touched since the last
	// ResetChanged, for statistics()'s "groups changed this batch" figure
	// (spec §6), backed by a bitset scratch set rather than a second map.
	slotOf   map[string]uint
	nextSlot uint
	changed  *pool.ChangeSet
}

func NewGroup(up Operator, stageIndex int, keyExpr expr.Compiled, accs map[string]AccumulatorSpec) *Group {
	return &Group{
		Up:           up,
		StageIndex:   stageIndex,
		KeyExpr:      keyExpr,
		Accumulators: accs,
		states:       make(map[string]*groupState),
		byVirt:       make(map[string]*groupState),
		slotOf:       make(map[string]uint),
		changed:      pool.NewChangeSet(0),
	}
}

// slotFor returns the stable bitset slot for key, assigning one on first
// use.
func (g *Group) slotFor(key string) uint {
	s, ok := g.slotOf[key]
	if !ok {
		s = g.nextSlot
		g.nextSlot++
		g.slotOf[key] = s
	}
	return s
}

// ChangedCount reports how many distinct groups were touched since the
// last ResetChanged.
func (g *Group) ChangedCount() uint { return g.changed.Count() }

// ResetChanged clears the changed-group tracking, called after
// statistics() reads it.
func (g *Group) ResetChanged() { g.changed.Reset() }

func (g *Group) stateFor(ctx *expr.Context) (*groupState, value.Value, bool) {
	key := g.KeyExpr(ctx)
	st, exists := g.states[key.Key()]
	return st, key, exists
}

func (g *Group) newState(key value.Value) *groupState {
	virt := rowid.Virtual(g.StageIndex, "group", key.Key())
	st := &groupState{
		key:     key,
		virt:    virt,
		members: make(map[string]bool),
		regs:    make(map[string]expr.Register, len(g.Accumulators)),
	}
	for name, spec := range g.Accumulators {
		st.regs[name] = expr.NewRegister(spec.Kind)
	}
	g.states[key.Key()] = st
	g.byVirt[virt.String()] = st
	return st
}

func (g *Group) OnAdd(d Delta, sv StoreView) []Delta {
	rec, ok := upstreamEffectiveRecord(g.Up, d.Row, sv)
	if !ok {
		return nil
	}
	ctx := expr.NewContext(rec)
	st, key, exists := g.stateFor(ctx)
	var out []Delta
	if !exists {
		st = g.newState(key)
		out = append(out, AddDelta(st.virt))
	}
	st.members[d.Row.String()] = true
	for name, spec := range g.Accumulators {
		st.regs[name].Add(spec.Expr(ctx))
	}
	g.changed.Mark(g.slotFor(key.Key()))
	return out
}

func (g *Group) OnRemove(d Delta, sv StoreView) []Delta {
	rec, ok := upstreamEffectiveRecord(g.Up, d.Row, sv)
	if !ok {
		return nil
	}
	ctx := expr.NewContext(rec)
	st, key, exists := g.stateFor(ctx)
	if !exists || !st.members[d.Row.String()] {
		return nil
	}
	delete(st.members, d.Row.String())
	for name, spec := range g.Accumulators {
		st.regs[name].Remove(spec.Expr(ctx))
	}
	g.changed.Mark(g.slotFor(key.Key()))
	if len(st.members) == 0 {
		delete(g.states, key.Key())
		delete(g.byVirt, st.virt.String())
		return []Delta{RemoveDelta(st.virt)}
	}
	return nil
}

func (g *Group) Snapshot(sv StoreView) []rowid.RowID {
	out := make([]rowid.RowID, 0, len(g.states))
	for _, st := range g.states {
		out = append(out, st.virt)
	}
	return out
}

func (g *Group) EffectiveRecord(row rowid.RowID, sv StoreView) (value.Value, bool) {
	st, ok := g.byVirt[row.String()]
	if !ok {
		return value.Null, false
	}
	out := make(map[string]value.Value, len(st.regs)+1)
	out["_id"] = st.key
	for name, reg := range st.regs {
		out[name] = reg.Value()
	}
	return value.Map(out), true
}
