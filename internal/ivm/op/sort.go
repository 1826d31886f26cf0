package op

import (
	"github.com/tidwall/btree"

	"github.com/malbeclabs/lake/internal/ivm/expr"
	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

// SortKey is one field of a compound sort key, with its direction.
type SortKey struct {
	Field string
	Desc  bool
	Acc   expr.Compiled // the compiled field accessor for this key
}

type sortEntry struct {
	row  rowid.RowID
	vals []value.Value
	seq  int64 // insertion sequence, tie-breaks per P5
}

// Sort implements spec §4.5.5: a dimension-backed ordered view over the
// upstream snapshot using a compound key, maintained incrementally in
// O(log n) per add/remove via a second, independently-chosen btree
// (tidwall/btree) so this concern doesn't share a type with the
// Dimension's own sorted index (google/btree).
//
// When TopK > 0 the planner has fused a following limit into this stage
// (spec §4.5.5 "top-K"): only the first TopK entries in sort order are
// ever forwarded downstream, and entries falling outside that window are
// still tracked in the full tree so a later remove can promote the next
// eligible row.
type Sort struct {
	Up   Operator
	Keys []SortKey
	TopK int

	tree    *btree.BTreeG[sortEntry]
	byRow   map[string]sortEntry
	visible map[string]bool
	seq     int64
}

func NewSort(up Operator, keys []SortKey, topK int) *Sort {
	s := &Sort{
		Up:      up,
		Keys:    keys,
		TopK:    topK,
		byRow:   make(map[string]sortEntry),
		visible: make(map[string]bool),
	}
	s.tree = btree.NewBTreeG(s.less)
	return s
}

// less implements the compound comparator of spec §4.5.5: field by field,
// nulls sort below any value (handled by value.Compare's total order),
// mixed types fall back to stringification, and insertion sequence breaks
// remaining ties for stability (P5).
func (s *Sort) less(a, b sortEntry) bool {
	for i := range s.Keys {
		c := value.Compare(a.vals[i], b.vals[i])
		if s.Keys[i].Desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
	}
	return a.seq < b.seq
}

func (s *Sort) keyValues(rec value.Value) []value.Value {
	ctx := expr.NewContext(rec)
	vals := make([]value.Value, len(s.Keys))
	for i, k := range s.Keys {
		vals[i] = k.Acc(ctx)
	}
	return vals
}

// firstN returns up to n row strings in ascending tree (i.e. sort) order.
func (s *Sort) firstN(n int) []string {
	var out []string
	s.tree.Scan(func(e sortEntry) bool {
		out = append(out, e.row.String())
		return len(out) < n
	})
	return out
}

// recomputeVisible diffs the current top-TopK window against the previous
// one and returns the deltas needed to converge downstream.
func (s *Sort) recomputeVisible() []Delta {
	if s.TopK <= 0 {
		return nil
	}
	newOrder := s.firstN(s.TopK)
	newSet := make(map[string]bool, len(newOrder))
	for _, r := range newOrder {
		newSet[r] = true
	}
	var out []Delta
	for r := range s.visible {
		if !newSet[r] {
			out = append(out, RemoveDelta(s.byRow[r].row))
		}
	}
	for _, r := range newOrder {
		if !s.visible[r] {
			out = append(out, AddDelta(s.byRow[r].row))
		}
	}
	s.visible = newSet
	return out
}

func (s *Sort) OnAdd(d Delta, sv StoreView) []Delta {
	rec, ok := upstreamEffectiveRecord(s.Up, d.Row, sv)
	if !ok {
		return nil
	}
	s.seq++
	e := sortEntry{row: d.Row, vals: s.keyValues(rec), seq: s.seq}
	s.tree.Set(e)
	s.byRow[d.Row.String()] = e
	if s.TopK <= 0 {
		s.visible[d.Row.String()] = true
		return []Delta{AddDelta(d.Row)}
	}
	return s.recomputeVisible()
}

func (s *Sort) OnRemove(d Delta, sv StoreView) []Delta {
	key := d.Row.String()
	e, ok := s.byRow[key]
	if !ok {
		return nil
	}
	s.tree.Delete(e)
	delete(s.byRow, key)
	if s.TopK <= 0 {
		if s.visible[key] {
			delete(s.visible, key)
			return []Delta{RemoveDelta(d.Row)}
		}
		return nil
	}
	return s.recomputeVisible()
}

func (s *Sort) Snapshot(sv StoreView) []rowid.RowID {
	limit := s.TopK
	if limit <= 0 {
		limit = s.tree.Len()
	}
	ids := s.firstN(limit)
	out := make([]rowid.RowID, len(ids))
	for i, r := range ids {
		out[i] = s.byRow[r].row
	}
	return out
}

func (s *Sort) EffectiveRecord(row rowid.RowID, sv StoreView) (value.Value, bool) {
	return upstreamEffectiveRecord(s.Up, row, sv)
}
