// Package dimension implements the Dimension Index of spec.md §4.2: for
// one field path, a three-way index — value→row-ids, row-id→value, and a
// sorted value list — kept consistent on every store add/remove (I2).
//
// The sorted list is backed by google/btree, giving range scans and
// min/max for free; this is the dimension-index btree named in
// SPEC_FULL.md §4, distinct from the Sort operator's own ordered view.
package dimension

import (
	"sort"

	"github.com/google/btree"

	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/value"
	"github.com/malbeclabs/lake/internal/ivmx/bloomx"
)

type entry struct {
	v     value.Value
	order int64 // insertion sequence, for the btree's Less total order
}

func lessEntry(a, b entry) bool {
	if c := value.Compare(a.v, b.v); c != 0 {
		return c < 0
	}
	return a.order < b.order
}

// Dimension is the per-field index described by spec §4.2.
type Dimension struct {
	path string

	valueOf     map[int64]value.Value // row id -> value
	rowsByValue map[string]map[int64]bool
	sorted      *btree.BTreeG[entry]
	orderOf     map[int64]int64
	idOfOrder   map[int64]int64
	seq         int64

	// prefilter is nil unless EnablePrefilter was called (spec §9(b): the
	// bloom-filter prefilter optimization is off by default).
	prefilter *bloomx.Prefilter
}

// New builds an empty dimension for the given field path. Dimensions are
// built lazily by the planner on first compile demand (spec §4.2).
func New(path string) *Dimension {
	return &Dimension{
		path:        path,
		valueOf:     make(map[int64]value.Value),
		rowsByValue: make(map[string]map[int64]bool),
		sorted:      btree.NewG(32, lessEntry),
		orderOf:     make(map[int64]int64),
		idOfOrder:   make(map[int64]int64),
	}
}

// Path returns the field path this dimension indexes.
func (d *Dimension) Path() string { return d.path }

// EnablePrefilter turns on the optional bloom-filter prefilter ahead of
// RowsEqual/RowsIn (spec §9 open question (b)): once enabled, a probed
// value the filter can prove was never indexed skips the value→row-ids
// map lookup entirely. Disabled by default; every property test runs without it.
func (d *Dimension) EnablePrefilter(maxElements uint64, falsePositiveRate float64) {
	d.prefilter = bloomx.New(maxElements, falsePositiveRate)
	for _, v := range d.valueOf {
		d.prefilter.Add(v)
	}
}

// Add indexes row id with the given value, in O(log n). Idempotent: a
// duplicate Add for an already-indexed row id is a no-op remove+add.
func (d *Dimension) Add(id int64, v value.Value) {
	if _, exists := d.valueOf[id]; exists {
		d.Remove(id)
	}
	d.seq++
	order := d.seq
	d.valueOf[id] = v
	d.orderOf[id] = order
	d.idOfOrder[order] = id

	key := v.Key()
	set, ok := d.rowsByValue[key]
	if !ok {
		set = make(map[int64]bool)
		d.rowsByValue[key] = set
	}
	set[id] = true
	d.sorted.ReplaceOrInsert(entry{v: v, order: order})
	d.prefilter.Add(v)
}

// Remove drops row id from all three maps. Dropping the last row id for a
// value removes the value from the sorted list (spec §4.2).
func (d *Dimension) Remove(id int64) {
	v, ok := d.valueOf[id]
	if !ok {
		return
	}
	order := d.orderOf[id]
	delete(d.valueOf, id)
	delete(d.orderOf, id)
	delete(d.idOfOrder, order)

	key := v.Key()
	if set, ok := d.rowsByValue[key]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(d.rowsByValue, key)
		}
	}
	d.sorted.Delete(entry{v: v, order: order})
}

// ValueOf returns the indexed value for id, if present.
func (d *Dimension) ValueOf(id int64) (value.Value, bool) {
	v, ok := d.valueOf[id]
	return v, ok
}

// RowsEqual returns the row ids currently indexed under v, in a
// deterministic (sorted) order.
func (d *Dimension) RowsEqual(v value.Value) []int64 {
	if !d.prefilter.MaybeContains(v) {
		return nil
	}
	set, ok := d.rowsByValue[v.Key()]
	if !ok {
		return nil
	}
	return sortedIDs(set)
}

// RowsIn returns the union of RowsEqual across vs, deduplicated.
func (d *Dimension) RowsIn(vs []value.Value) []int64 {
	seen := make(map[int64]bool)
	for _, v := range vs {
		if !d.prefilter.MaybeContains(v) {
			continue
		}
		if set, ok := d.rowsByValue[v.Key()]; ok {
			for id := range set {
				seen[id] = true
			}
		}
	}
	return sortedIDs(seen)
}

// RowsInRange returns row ids whose indexed value v satisfies lo <= v <=
// hi (each bound optional), walking the sorted btree — the mechanism a
// Filter dimension-probe hint uses instead of a full scan (spec §4.3,
// §4.5.1).
func (d *Dimension) RowsInRange(lo, hi *value.Value, loInclusive, hiInclusive bool) []int64 {
	var out []int64
	d.sorted.Ascend(func(e entry) bool {
		if lo != nil {
			c := value.Compare(e.v, *lo)
			if c < 0 || (c == 0 && !loInclusive) {
				return true
			}
		}
		if hi != nil {
			c := value.Compare(e.v, *hi)
			if c > 0 || (c == 0 && !hiInclusive) {
				return false
			}
		}
		out = append(out, d.rowIDForEntry(e))
		return true
	})
	return out
}

// rowIDForEntry recovers which row id an entry belongs to via the
// insertion-order index, in O(1).
func (d *Dimension) rowIDForEntry(e entry) int64 {
	return d.idOfOrder[e.order]
}

// Cardinality returns the number of distinct values currently indexed.
func (d *Dimension) Cardinality() int { return len(d.rowsByValue) }

// Min and Max return the smallest/largest indexed value, for the
// planner's cardinality/selectivity estimates (spec §4.2, §4.4).
func (d *Dimension) Min() (value.Value, bool) {
	var out value.Value
	found := false
	d.sorted.Ascend(func(e entry) bool {
		out, found = e.v, true
		return false
	})
	return out, found
}

func (d *Dimension) Max() (value.Value, bool) {
	var out value.Value
	found := false
	d.sorted.Descend(func(e entry) bool {
		out, found = e.v, true
		return false
	})
	return out, found
}

// Verify checks invariant I2: every indexed row's value_of entry equals
// resolve(id) and appears in the inverted map, and the sorted list holds
// as many entries as value_of. Used by the
// property test suite (P7), not by production code paths.
func (d *Dimension) Verify(resolve func(id int64) (value.Value, bool)) []string {
	var problems []string
	for id, v := range d.valueOf {
		actual, ok := resolve(id)
		if !ok || !value.Equal(actual, v) {
			problems = append(problems, d.path+": row "+itoa(id)+" value mismatch")
		}
		set, ok := d.rowsByValue[v.Key()]
		if !ok || !set[id] {
			problems = append(problems, d.path+": row "+itoa(id)+" missing from inverted map")
		}
	}
	count := 0
	d.sorted.Ascend(func(entry) bool { count++; return true })
	if count != len(d.valueOf) {
		problems = append(problems, d.path+": sorted list cardinality mismatch")
	}
	return problems
}

func sortedIDs(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func itoa(n int64) string {
	return rowid.Physical(n).String()
}
