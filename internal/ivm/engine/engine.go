// Package engine implements the Engine Driver of spec.md §4.6: the single
// owner of the record store, the dimension registry, the plan cache, and
// every pipeline's compiled operator chain.
//
// Grounded on the teacher's indexer.Indexer (indexer/pkg/indexer/indexer.go):
// one owner struct that validates configuration, then wires independently
// constructed sub-components (here: store, dimensions, plan cache) behind
// a small public surface.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/malbeclabs/lake/internal/ivm/dimension"
	"github.com/malbeclabs/lake/internal/ivm/op"
	"github.com/malbeclabs/lake/internal/ivm/plan"
	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/store"
	"github.com/malbeclabs/lake/internal/ivm/value"
	"github.com/malbeclabs/lake/internal/ivmx/fallback"
)

// Engine is one independent IVM instance (spec §5: "multiple engine
// instances are fully independent and may run on separate threads without
// synchronization" — there is deliberately no engine-level lock; callers
// own their own single-threaded access discipline).
type Engine struct {
	log *slog.Logger

	store       *store.Store
	dims        map[string]*dimension.Dimension
	collections map[string]*store.Store // named foreign collections, for joins
	plans       *plan.Cache
	chains      map[string]*chain // plan.Handle.String() -> compiled chain

	prefilterMaxElements uint64
	prefilterFPRate      float64
}

// New returns an empty engine. log may be nil, in which case a disabled
// logger is used (spec §3 ambient stack: the engine never logs at a level
// above debug on its own — callers decide verbosity).
func New(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		log:         log,
		store:       store.New(),
		dims:        make(map[string]*dimension.Dimension),
		collections: make(map[string]*store.Store),
		plans:       plan.NewCache(),
		chains:      make(map[string]*chain),
	}
}

// RegisterCollection exposes store as a named foreign collection other
// pipelines' join stages may reference (spec §4.5.8). The caller must hold
// it immutable for the lifetime of any plan compiled against it.
func (e *Engine) RegisterCollection(name string, s *store.Store) {
	e.collections[name] = s
}

// Self registers the engine's own store under name, letting a pipeline
// join against records in the same engine instance.
func (e *Engine) Self(name string) { e.collections[name] = e.store }

func (e *Engine) dimensionFor(path string) *dimension.Dimension {
	d, ok := e.dims[path]
	if !ok {
		d = dimension.New(path)
		if e.prefilterMaxElements > 0 {
			d.EnablePrefilter(e.prefilterMaxElements, e.prefilterFPRate)
		}
		e.dims[path] = d
		e.store.IterLive(func(id int64, record value.Value) {
			d.Add(id, value.Compile(path).Get(record))
		})
	}
	return d
}

// EnablePrefilter turns on the bloomx prefilter (spec §9(b)) for every
// dimension built from this point on. Disabled by default; callers that
// never call this never pay for the bloom filter.
func (e *Engine) EnablePrefilter(maxElements uint64, falsePositiveRate float64) {
	e.prefilterMaxElements = maxElements
	e.prefilterFPRate = falsePositiveRate
}

// sv returns a StoreView over the engine's own record store.
func (e *Engine) sv() op.StoreView { return op.StoreViewOf(e.store) }

// Add stores record, indexes it into every built dimension, and feeds
// (row_id, +1) through every compiled chain (spec §4.6 add).
func (e *Engine) Add(record value.Value) int64 {
	id := e.store.Add(record)
	for _, d := range e.dims {
		d.Add(id, value.Compile(d.Path()).Get(record))
	}
	row := rowid.Physical(id)
	for _, c := range e.chains {
		propagate(c.stages, op.AddDelta(row), e.sv())
	}
	return id
}

// AddMany adds records in order and returns their assigned row ids.
func (e *Engine) AddMany(records []value.Value) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = e.Add(r)
	}
	return ids
}

// Remove tombstones id, updates dimensions, and feeds (row_id, -1) through
// every compiled chain. Returns false if id was not live (spec §7 "Invalid
// row id").
func (e *Engine) Remove(id int64) bool {
	if !e.store.Remove(id) {
		return false
	}
	for _, d := range e.dims {
		d.Remove(id)
	}
	row := rowid.Physical(id)
	for _, c := range e.chains {
		propagate(c.stages, op.RemoveDelta(row), e.sv())
	}
	return true
}

// RemoveMany removes every id and returns the count actually removed.
func (e *Engine) RemoveMany(ids []int64) int {
	n := 0
	for _, id := range ids {
		if e.Remove(id) {
			n++
		}
	}
	return n
}

// Compile resolves raw to a plan handle, building and caching a new
// compiled chain on first use (spec §4.6 compile). A freshly built chain
// is seeded with the current live-set so a late compile observes existing
// data (spec §4.6, §4.4).
func (e *Engine) Compile(raw plan.Pipeline) (plan.Handle, error) {
	handle, p, fresh := e.plans.Compile(raw)
	if !fresh {
		return handle, nil
	}
	c, err := e.buildChain(p.Stages)
	if err != nil {
		return plan.Handle{}, fmt.Errorf("ivm: compile: %w", err)
	}
	c.planRef = p
	e.chains[handle.String()] = c

	sv := e.sv()
	e.store.IterLive(func(id int64, _ value.Value) {
		propagate(c.stages, op.AddDelta(rowid.Physical(id)), sv)
	})
	return handle, nil
}

// Snapshot materializes the current output of the plan behind handle, in
// the terminal operator's snapshot order (spec §4.6 snapshot). A plan the
// planner tainted non-incremental falls back to full re-execution over the
// live-set instead of trusting operator state (spec §7, §8 S6).
func (e *Engine) Snapshot(handle plan.Handle) ([]value.Value, error) {
	c, ok := e.chains[handle.String()]
	if !ok {
		return nil, fmt.Errorf("ivm: unknown plan handle %s", handle)
	}
	if c.planRef != nil && !c.planRef.CanIncrement {
		var live []value.Value
		e.store.IterLive(func(_ int64, rec value.Value) { live = append(live, rec) })
		return fallback.Execute(c.planRef.Stages, live, e.foreignResolver)
	}
	sv := e.sv()
	var terminal op.Operator
	if len(c.stages) > 0 {
		terminal = c.stages[len(c.stages)-1]
	}
	if terminal == nil {
		// Empty pipeline: the plan's output is just the live record set.
		var out []value.Value
		e.store.IterLive(func(_ int64, rec value.Value) { out = append(out, rec) })
		return out, nil
	}
	rows := terminal.Snapshot(sv)
	out := make([]value.Value, 0, len(rows))
	for _, row := range rows {
		if rec, ok := terminal.EffectiveRecord(row, sv); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ApplyDelta is the convenience operation of spec §6: applies a single
// add/remove to the store and returns the resulting snapshot of one plan.
func (e *Engine) ApplyDelta(rec *value.Value, removeID int64, isAdd bool, handle plan.Handle) ([]value.Value, error) {
	if isAdd {
		e.Add(*rec)
	} else {
		e.Remove(removeID)
	}
	return e.Snapshot(handle)
}

// Clear drops all store, dimension, plan, and chain state — the only
// reclamation point (spec §5 Resource bounds).
func (e *Engine) Clear() {
	e.store.Clear()
	e.dims = make(map[string]*dimension.Dimension)
	e.plans.Clear()
	e.chains = make(map[string]*chain)
}

// Statistics returns the diagnostic map of spec §6. groups_changed counts
// distinct groups touched since the previous call to Statistics, then
// resets that tracking (a read-and-reset counter, like the teacher's
// promauto counters being scraped and left to accumulate again). The
// fusions_* entries sum each compiled plan's planner fusion counters.
func (e *Engine) Statistics() map[string]any {
	activeGroups := 0
	var groupsChanged uint
	var fusions plan.Fusions
	for _, c := range e.chains {
		if c.planRef != nil {
			fusions.FilterReshape += c.planRef.Fusions.FilterReshape
			fusions.SortTopK += c.planRef.Fusions.SortTopK
			fusions.Dedup += c.planRef.Fusions.Dedup
			fusions.Pushdown += c.planRef.Fusions.Pushdown
		}
		for _, st := range c.stages {
			if g, ok := st.(*op.Group); ok {
				activeGroups += len(g.Snapshot(e.sv()))
				groupsChanged += g.ChangedCount()
				g.ResetChanged()
			}
		}
	}
	return map[string]any{
		"total_records":    e.store.Total(),
		"live_records":     e.store.Cardinality(),
		"dimensions_built": len(e.dims),
		"active_groups":    activeGroups,
		"groups_changed":   groupsChanged,
		"compiled_plans":   e.plans.Len(),

		"fusions_filter_reshape": fusions.FilterReshape,
		"fusions_sort_top_k":     fusions.SortTopK,
		"fusions_dedup":          fusions.Dedup,
		"fusions_pushdown":       fusions.Pushdown,
	}
}

// propagate feeds a single delta through stages in upstream-to-downstream
// order, dispatching each delta a stage emits to the next stage's on_add or
// on_remove by its own sign — a stage like Sort's top-K window can emit a
// mixed +1/-1 batch from a single on_add call (an entering row evicting a
// prior member), and each must be routed independently. Spec §5 requires
// this depth-first per individual delta; since every stage's on_add/
// on_remove updates state keyed independently per row id, processing a
// stage's whole delta batch before moving to the next stage yields the
// same final state as strict per-delta depth-first recursion, and is the
// simpler loop.
func propagate(stages []op.Operator, d op.Delta, sv op.StoreView) {
	cur := []op.Delta{d}
	for _, st := range stages {
		var next []op.Delta
		for _, in := range cur {
			if in.Sign > 0 {
				next = append(next, st.OnAdd(in, sv)...)
			} else {
				next = append(next, st.OnRemove(in, sv)...)
			}
		}
		cur = next
	}
}
