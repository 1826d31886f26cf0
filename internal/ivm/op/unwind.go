package op

import (
	"strconv"

	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

type unwindElem struct {
	id  rowid.RowID
	rec value.Value
}

// Unwind implements spec §4.5.7: fans one upstream record out into one
// downstream record per element of an array field, minting a deterministic
// virtual row id from the upstream row id and element index (P6). Records
// whose target field is missing or not an array emit nothing, matching the
// "missing ≡ null" discipline rather than surfacing an error (spec §7).
type Unwind struct {
	Up         Operator
	StageIndex int
	Field      string

	accessor *value.Accessor
	counts   map[string]int // upstream row id string -> elements emitted
	elems    map[string]*unwindElem
}

func NewUnwind(up Operator, stageIndex int, field string) *Unwind {
	return &Unwind{
		Up:         up,
		StageIndex: stageIndex,
		Field:      field,
		accessor:   value.Compile(field),
		counts:     make(map[string]int),
		elems:      make(map[string]*unwindElem),
	}
}

func (u *Unwind) virtID(upRow rowid.RowID, index int) rowid.RowID {
	return rowid.Virtual(u.StageIndex, "unwind", upRow.String(), strconv.Itoa(index))
}

func (u *Unwind) OnAdd(d Delta, sv StoreView) []Delta {
	rec, ok := upstreamEffectiveRecord(u.Up, d.Row, sv)
	if !ok {
		return nil
	}
	arr := u.accessor.Get(rec)
	if arr.Tag() != value.TagArray {
		u.counts[d.Row.String()] = 0
		return nil
	}
	elements := arr.Array()
	u.counts[d.Row.String()] = len(elements)
	out := make([]Delta, 0, len(elements))
	for i, e := range elements {
		virt := u.virtID(d.Row, i)
		out_rec := u.accessor.Set(rec, e)
		u.elems[virt.String()] = &unwindElem{id: virt, rec: out_rec}
		out = append(out, AddDelta(virt))
	}
	return out
}

func (u *Unwind) OnRemove(d Delta, sv StoreView) []Delta {
	n := u.counts[d.Row.String()]
	delete(u.counts, d.Row.String())
	out := make([]Delta, 0, n)
	for i := 0; i < n; i++ {
		virt := u.virtID(d.Row, i)
		delete(u.elems, virt.String())
		out = append(out, RemoveDelta(virt))
	}
	return out
}

func (u *Unwind) Snapshot(sv StoreView) []rowid.RowID {
	out := make([]rowid.RowID, 0, len(u.elems))
	for _, e := range u.elems {
		out = append(out, e.id)
	}
	return out
}

func (u *Unwind) EffectiveRecord(row rowid.RowID, sv StoreView) (value.Value, bool) {
	e, ok := u.elems[row.String()]
	if !ok {
		return value.Null, false
	}
	return e.rec, true
}
