// Package op implements the per-stage operators of spec.md §4.5, each
// conforming to the shared Operator contract of §4.0: on_add/on_remove
// transform one upstream delta into zero or more downstream deltas, and
// snapshot/effective_record materialize the stage's current output.
//
// Layout mirrors the teacher's one-file-per-concern style in
// indexer/pkg/clickhouse/dataset (dim.go, dim_read.go, dim_write.go,
// fact_read.go, fact_write.go, pk.go, scan.go): one file per stage kind.
package op

import (
	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/store"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

// Delta is a single record's entry (+1) or exit (-1) at a stage (spec §3).
type Delta struct {
	Row  rowid.RowID
	Sign int8
}

func AddDelta(row rowid.RowID) Delta    { return Delta{Row: row, Sign: +1} }
func RemoveDelta(row rowid.RowID) Delta { return Delta{Row: row, Sign: -1} }

// StoreView is the read-only view of the record store that operators
// receive — operators hold no owning references (spec §3 "Ownership").
type StoreView interface {
	Get(id int64) (value.Value, bool)
	IsLive(id int64) bool
	LiveIDs() []int64
}

// Operator is the shared contract every stage implements (spec §4.0).
// None of its methods may block (§5).
type Operator interface {
	// OnAdd is called when the upstream record for delta.Row becomes
	// visible; it returns zero or more downstream deltas.
	OnAdd(delta Delta, sv StoreView) []Delta

	// OnRemove is called when the upstream record for delta.Row is
	// leaving. Must be idempotent against double-remove.
	OnRemove(delta Delta, sv StoreView) []Delta

	// Snapshot returns the row ids currently in this stage's output.
	// Order is unspecified unless the stage defines one (sort/top-K/limit).
	Snapshot(sv StoreView) []rowid.RowID

	// EffectiveRecord materializes this stage's transformation of row id,
	// walking upstream through stages that do not reshape. Returns
	// ok=false only if row is not resolvable at all (e.g. removed and
	// fully tombstoned with no trace left).
	EffectiveRecord(row rowid.RowID, sv StoreView) (value.Value, bool)
}

// storeViewAdapter lets the driver hand operators a StoreView backed by
// store.Store directly.
type storeViewAdapter struct{ s *store.Store }

func StoreViewOf(s *store.Store) StoreView { return storeViewAdapter{s} }

func (a storeViewAdapter) Get(id int64) (value.Value, bool) { return a.s.Get(id) }
func (a storeViewAdapter) IsLive(id int64) bool              { return a.s.IsLive(id) }
func (a storeViewAdapter) LiveIDs() []int64                  { return a.s.LiveIDs() }

// upstreamSnapshot is the shared base case for stateless pass-through
// stages (filter, reshape, add-fields, join) that otherwise just delegate
// Snapshot to their upstream: when up is nil, this is the first stage, and
// "upstream" is every physical row currently live in the store.
func upstreamSnapshot(up Operator, sv StoreView) []rowid.RowID {
	if up != nil {
		return up.Snapshot(sv)
	}
	ids := sv.LiveIDs()
	out := make([]rowid.RowID, len(ids))
	for i, id := range ids {
		out[i] = rowid.Physical(id)
	}
	return out
}

// upstreamEffectiveRecord is the shared base case every operator uses to
// read its input record (filter, sort, limit, skip for EffectiveRecord;
// reshape, add-fields, join before transforming; group in on_add/
// on_remove): if there is an upstream stage, ask it; otherwise this is the
// first stage and row must be a physical id resolvable directly from the
// store.
func upstreamEffectiveRecord(up Operator, row rowid.RowID, sv StoreView) (value.Value, bool) {
	if up != nil {
		return up.EffectiveRecord(row, sv)
	}
	if row.IsVirtual() {
		return value.Null, false
	}
	return sv.Get(row.PhysicalID())
}
