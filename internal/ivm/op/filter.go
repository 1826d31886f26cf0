package op

import (
	"github.com/malbeclabs/lake/internal/ivm/dimension"
	"github.com/malbeclabs/lake/internal/ivm/expr"
	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

// Filter implements spec §4.5.1: stateless pass-through of rows whose
// effective upstream record satisfies a compiled predicate.
type Filter struct {
	Up        Operator
	Predicate expr.Predicate
	Hint      expr.ProbeHint
	// Dim is the Dimension backing Hint.Field, when the planner attached
	// one; nil disables the probe path and falls back to a full scan.
	Dim *dimension.Dimension
}

func NewFilter(up Operator, predicate expr.Predicate, hint expr.ProbeHint, dim *dimension.Dimension) *Filter {
	return &Filter{Up: up, Predicate: predicate, Hint: hint, Dim: dim}
}

func (f *Filter) eval(row rowid.RowID, sv StoreView) bool {
	rec, ok := f.EffectiveRecord(row, sv)
	if !ok {
		return false
	}
	return f.Predicate(expr.NewContext(rec))
}

func (f *Filter) OnAdd(d Delta, sv StoreView) []Delta {
	if f.eval(d.Row, sv) {
		return []Delta{d}
	}
	return nil
}

func (f *Filter) OnRemove(d Delta, sv StoreView) []Delta {
	// Idempotent against double-remove: if the row no longer evaluates
	// true (e.g. already tombstoned upstream), emitting the remove is
	// still correct — downstream dedupes via its own membership state.
	return []Delta{d}
}

func (f *Filter) Snapshot(sv StoreView) []rowid.RowID {
	if f.Dim != nil && f.Hint.OK {
		if ids := f.probeSnapshot(sv); ids != nil {
			return ids
		}
	}
	var out []rowid.RowID
	for _, row := range upstreamSnapshot(f.Up, sv) {
		if f.eval(row, sv) {
			out = append(out, row)
		}
	}
	return out
}

// probeSnapshot drives the dimension-probe hint instead of a full
// upstream scan, per spec §4.5.1. Only applies to physical-row upstream
// dimensions; returns nil (meaning "fall back") if the hint's op isn't
// scan-shaped for this dimension.
func (f *Filter) probeSnapshot(sv StoreView) []rowid.RowID {
	var ids []int64
	switch f.Hint.Op {
	case expr.OpEq:
		ids = f.Dim.RowsEqual(f.Hint.Lit)
	case expr.OpIn:
		if f.Hint.Lit.Tag() == value.TagArray {
			ids = f.Dim.RowsIn(f.Hint.Lit.Array())
		}
	case expr.OpGt:
		ids = f.Dim.RowsInRange(&f.Hint.Lit, nil, false, false)
	case expr.OpGte:
		ids = f.Dim.RowsInRange(&f.Hint.Lit, nil, true, false)
	case expr.OpLt:
		ids = f.Dim.RowsInRange(nil, &f.Hint.Lit, false, false)
	case expr.OpLte:
		ids = f.Dim.RowsInRange(nil, &f.Hint.Lit, false, true)
	default:
		return nil
	}
	out := make([]rowid.RowID, 0, len(ids))
	for _, id := range ids {
		row := rowid.Physical(id)
		if sv.IsLive(id) && f.eval(row, sv) {
			out = append(out, row)
		}
	}
	return out
}

func (f *Filter) EffectiveRecord(row rowid.RowID, sv StoreView) (value.Value, bool) {
	return upstreamEffectiveRecord(f.Up, row, sv)
}
