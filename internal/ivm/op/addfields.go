package op

import (
	"github.com/malbeclabs/lake/internal/ivm/expr"
	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

// AddFields implements spec §4.5.3: as Reshape, except every upstream field
// is preserved and the computed fields are merged in, overwriting any
// field of the same name.
type AddFields struct {
	Up     Operator
	Fields map[string]expr.Compiled

	cache map[string]value.Value
}

func NewAddFields(up Operator, fields map[string]expr.Compiled) *AddFields {
	return &AddFields{Up: up, Fields: fields, cache: make(map[string]value.Value)}
}

func (a *AddFields) OnAdd(d Delta, sv StoreView) []Delta {
	delete(a.cache, d.Row.String())
	return []Delta{d}
}

func (a *AddFields) OnRemove(d Delta, sv StoreView) []Delta {
	delete(a.cache, d.Row.String())
	return []Delta{d}
}

func (a *AddFields) Snapshot(sv StoreView) []rowid.RowID {
	return upstreamSnapshot(a.Up, sv)
}

func (a *AddFields) EffectiveRecord(row rowid.RowID, sv StoreView) (value.Value, bool) {
	key := row.String()
	if rec, ok := a.cache[key]; ok {
		return rec, true
	}
	upRec, ok := upstreamEffectiveRecord(a.Up, row, sv)
	if !ok {
		return value.Null, false
	}
	ctx := expr.NewContext(upRec)
	rec := upRec
	for name, compiled := range a.Fields {
		rec = value.Compile(name).Set(rec, compiled(ctx))
	}
	a.cache[key] = rec
	return rec, true
}
