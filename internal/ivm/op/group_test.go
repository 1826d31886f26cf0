package op

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/lake/internal/ivm/expr"
	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/store"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

func compileExprT(t *testing.T, n *expr.Node) expr.Compiled {
	t.Helper()
	c, err := expr.Compile(n)
	require.NoError(t, err)
	return c
}

func newTestGroup(t *testing.T) *Group {
	return NewGroup(nil, 0, compileExprT(t, expr.Field("cat")), map[string]AccumulatorSpec{
		"total": {Kind: expr.AccSum, Expr: compileExprT(t, expr.Field("amount"))},
		"count": {Kind: expr.AccCount, Expr: compileExprT(t, expr.Field("amount"))},
	})
}

func TestLake_Group_NewGroupCreatesStateAndAccumulates(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	g := newTestGroup(t)

	id := s.Add(value.Map(map[string]value.Value{"cat": value.String("a"), "amount": value.Number(10)}))
	out := g.OnAdd(AddDelta(rowid.Physical(id)), sv)
	require.Len(t, out, 1)
	require.EqualValues(t, 1, out[0].Sign)

	snap := g.Snapshot(sv)
	require.Len(t, snap, 1)
	rec, ok := g.EffectiveRecord(snap[0], sv)
	require.True(t, ok)
	require.Equal(t, value.Number(10), rec.Map()["total"])
	require.Equal(t, value.Number(1), rec.Map()["count"])
}

func TestLake_Group_SecondMemberOfSameKeyDoesNotEmitNewDelta(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	g := newTestGroup(t)

	id0 := s.Add(value.Map(map[string]value.Value{"cat": value.String("a"), "amount": value.Number(10)}))
	id1 := s.Add(value.Map(map[string]value.Value{"cat": value.String("a"), "amount": value.Number(5)}))

	g.OnAdd(AddDelta(rowid.Physical(id0)), sv)
	out := g.OnAdd(AddDelta(rowid.Physical(id1)), sv)
	require.Empty(t, out)

	snap := g.Snapshot(sv)
	require.Len(t, snap, 1)
	rec, _ := g.EffectiveRecord(snap[0], sv)
	require.Equal(t, value.Number(15), rec.Map()["total"])
	require.Equal(t, value.Number(2), rec.Map()["count"])
}

func TestLake_Group_RemovingLastMemberEmitsRemoveDelta(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	g := newTestGroup(t)

	id := s.Add(value.Map(map[string]value.Value{"cat": value.String("a"), "amount": value.Number(10)}))
	g.OnAdd(AddDelta(rowid.Physical(id)), sv)

	out := g.OnRemove(RemoveDelta(rowid.Physical(id)), sv)
	require.Len(t, out, 1)
	require.EqualValues(t, -1, out[0].Sign)
	require.Empty(t, g.Snapshot(sv))
}

func TestLake_Group_RemoveThenReAddOnSameKeyRestoresAccumulatorExactly(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	g := newTestGroup(t)

	id0 := s.Add(value.Map(map[string]value.Value{"cat": value.String("a"), "amount": value.Number(10)}))
	id1 := s.Add(value.Map(map[string]value.Value{"cat": value.String("a"), "amount": value.Number(5)}))
	g.OnAdd(AddDelta(rowid.Physical(id0)), sv)
	g.OnAdd(AddDelta(rowid.Physical(id1)), sv)

	g.OnRemove(RemoveDelta(rowid.Physical(id1)), sv)
	g.OnAdd(AddDelta(rowid.Physical(id1)), sv)

	snap := g.Snapshot(sv)
	require.Len(t, snap, 1)
	rec, _ := g.EffectiveRecord(snap[0], sv)
	require.Equal(t, value.Number(15), rec.Map()["total"])
	require.Equal(t, value.Number(2), rec.Map()["count"])
}

func TestLake_Group_ChangedCountTracksDistinctGroupsTouched(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	g := newTestGroup(t)

	idA := s.Add(value.Map(map[string]value.Value{"cat": value.String("a"), "amount": value.Number(1)}))
	idB := s.Add(value.Map(map[string]value.Value{"cat": value.String("b"), "amount": value.Number(2)}))
	idA2 := s.Add(value.Map(map[string]value.Value{"cat": value.String("a"), "amount": value.Number(3)}))

	g.OnAdd(AddDelta(rowid.Physical(idA)), sv)
	g.OnAdd(AddDelta(rowid.Physical(idB)), sv)
	g.OnAdd(AddDelta(rowid.Physical(idA2)), sv)

	require.EqualValues(t, 2, g.ChangedCount())
	g.ResetChanged()
	require.EqualValues(t, 0, g.ChangedCount())
}
