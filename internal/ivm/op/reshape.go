package op

import (
	"github.com/malbeclabs/lake/internal/ivm/expr"
	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/value"
	"github.com/malbeclabs/lake/internal/ivmx/pool"
)

// Reshape implements spec §4.5.2: projects each upstream record through a
// set of computed fields, replacing the record's shape entirely. Row ids
// pass through unchanged — reshape never adds or drops rows.
type Reshape struct {
	Up     Operator
	Fields map[string]expr.Compiled

	cache map[string]value.Value // row id string -> reshaped record
}

func NewReshape(up Operator, fields map[string]expr.Compiled) *Reshape {
	return &Reshape{Up: up, Fields: fields, cache: make(map[string]value.Value)}
}

func (r *Reshape) OnAdd(d Delta, sv StoreView) []Delta {
	delete(r.cache, d.Row.String())
	return []Delta{d}
}

func (r *Reshape) OnRemove(d Delta, sv StoreView) []Delta {
	delete(r.cache, d.Row.String())
	return []Delta{d}
}

func (r *Reshape) Snapshot(sv StoreView) []rowid.RowID {
	return upstreamSnapshot(r.Up, sv)
}

func (r *Reshape) EffectiveRecord(row rowid.RowID, sv StoreView) (value.Value, bool) {
	key := row.String()
	if rec, ok := r.cache[key]; ok {
		return rec, true
	}
	upRec, ok := upstreamEffectiveRecord(r.Up, row, sv)
	if !ok {
		return value.Null, false
	}
	ctx := expr.NewContext(upRec)
	scratch := pool.GetRecordMap()
	for name, compiled := range r.Fields {
		scratch[name] = compiled(ctx)
	}
	out := make(map[string]value.Value, len(scratch))
	for k, v := range scratch {
		out[k] = v
	}
	pool.PutRecordMap(scratch)
	rec := value.Map(out)
	r.cache[key] = rec
	return rec, true
}
