package op

import (
	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

// Join implements spec §4.5.8: a left-outer equality join against a
// foreign collection snapshot taken once at compile time. The foreign
// probe index never changes for the lifetime of the plan — callers must
// hold the foreign collection immutable (spec §7 "Foreign-collection
// mutation"); the configurable-subpipeline join form is not modeled here
// and is the case the planner must taint non-incremental instead.
type Join struct {
	Up           Operator
	LocalField   string
	ForeignField string
	OutputField  string

	localAcc  *value.Accessor
	outputAcc *value.Accessor
	probe     map[string][]value.Value // foreign field value key -> matches
	cache     map[string]value.Value   // upstream row id -> joined record
}

// NewJoin builds the probe index from a foreign collection snapshot taken
// once, per spec §4.5.8 ("built once on compile").
func NewJoin(up Operator, localField, foreignField, outputField string, foreignRecords []value.Value) *Join {
	foreignAcc := value.Compile(foreignField)
	probe := make(map[string][]value.Value)
	for _, r := range foreignRecords {
		key := foreignAcc.Get(r).Key()
		probe[key] = append(probe[key], r)
	}
	return &Join{
		Up:           up,
		LocalField:   localField,
		ForeignField: foreignField,
		OutputField:  outputField,
		localAcc:     value.Compile(localField),
		outputAcc:    value.Compile(outputField),
		probe:        probe,
		cache:        make(map[string]value.Value),
	}
}

func (j *Join) OnAdd(d Delta, sv StoreView) []Delta {
	delete(j.cache, d.Row.String())
	return []Delta{d}
}

func (j *Join) OnRemove(d Delta, sv StoreView) []Delta {
	delete(j.cache, d.Row.String())
	return []Delta{d}
}

func (j *Join) Snapshot(sv StoreView) []rowid.RowID {
	return upstreamSnapshot(j.Up, sv)
}

func (j *Join) EffectiveRecord(row rowid.RowID, sv StoreView) (value.Value, bool) {
	key := row.String()
	if rec, ok := j.cache[key]; ok {
		return rec, true
	}
	upRec, ok := upstreamEffectiveRecord(j.Up, row, sv)
	if !ok {
		return value.Null, false
	}
	matches := j.probe[j.localAcc.Get(upRec).Key()]
	out := make([]value.Value, len(matches))
	copy(out, matches)
	rec := j.outputAcc.Set(upRec, value.Array(out))
	j.cache[key] = rec
	return rec, true
}
