package op

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/lake/internal/ivm/dimension"
	"github.com/malbeclabs/lake/internal/ivm/expr"
	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/store"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

func mustCompilePredicate(t *testing.T, n *expr.Node) (expr.Predicate, expr.ProbeHint) {
	t.Helper()
	pred, hint, err := expr.CompilePredicate(n)
	require.NoError(t, err)
	return pred, hint
}

func TestLake_Filter_FullScanPassesMatchingRows(t *testing.T) {
	t.Parallel()

	s := store.New()
	id0 := s.Add(value.Map(map[string]value.Value{"amount": value.Number(5)}))
	id1 := s.Add(value.Map(map[string]value.Value{"amount": value.Number(15)}))
	sv := StoreViewOf(s)

	pred, hint := mustCompilePredicate(t, expr.Call(expr.OpGt, expr.Field("amount"), expr.Literal(value.Number(10))))
	f := NewFilter(nil, pred, hint, nil)

	got := f.Snapshot(sv)
	require.Equal(t, []rowid.RowID{rowid.Physical(id1)}, got)
	_ = id0
}

func TestLake_Filter_DimensionProbeAgreeWithFullScan(t *testing.T) {
	t.Parallel()

	s := store.New()
	recs := []value.Value{
		value.Map(map[string]value.Value{"status": value.String("active")}),
		value.Map(map[string]value.Value{"status": value.String("inactive")}),
		value.Map(map[string]value.Value{"status": value.String("active")}),
	}
	ids := make([]int64, len(recs))
	for i, r := range recs {
		ids[i] = s.Add(r)
	}
	sv := StoreViewOf(s)

	dim := dimension.New("status")
	for i, id := range ids {
		dim.Add(id, value.Compile("status").Get(recs[i]))
	}

	pred, hint := mustCompilePredicate(t, expr.Call(expr.OpEq, expr.Field("status"), expr.Literal(value.String("active"))))
	require.True(t, hint.OK)

	probed := NewFilter(nil, pred, hint, dim)
	full := NewFilter(nil, pred, hint, nil)

	require.ElementsMatch(t, full.Snapshot(sv), probed.Snapshot(sv))
	require.ElementsMatch(t, []rowid.RowID{rowid.Physical(ids[0]), rowid.Physical(ids[2])}, probed.Snapshot(sv))
}

func TestLake_Filter_OnAddOnRemove(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	id := s.Add(value.Map(map[string]value.Value{"amount": value.Number(20)}))

	pred, hint := mustCompilePredicate(t, expr.Call(expr.OpGt, expr.Field("amount"), expr.Literal(value.Number(10))))
	f := NewFilter(nil, pred, hint, nil)

	out := f.OnAdd(AddDelta(rowid.Physical(id)), sv)
	require.Equal(t, []Delta{AddDelta(rowid.Physical(id))}, out)

	rejected := s.Add(value.Map(map[string]value.Value{"amount": value.Number(1)}))
	out = f.OnAdd(AddDelta(rowid.Physical(rejected)), sv)
	require.Empty(t, out)

	out = f.OnRemove(RemoveDelta(rowid.Physical(id)), sv)
	require.Equal(t, []Delta{RemoveDelta(rowid.Physical(id))}, out)
}
