package op

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/store"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

func TestLake_Limit_ForwardsOnlyFirstK(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	l := NewLimit(nil, 2)

	_, d1 := addRow(t, s, 1)
	_, d2 := addRow(t, s, 2)
	_, d3 := addRow(t, s, 3)

	out1 := l.OnAdd(d1, sv)
	out2 := l.OnAdd(d2, sv)
	out3 := l.OnAdd(d3, sv)

	require.Len(t, out1, 1)
	require.Len(t, out2, 1)
	require.Empty(t, out3)
	require.ElementsMatch(t, []rowid.RowID{d1.Row, d2.Row}, l.Snapshot(sv))
}

func TestLake_Limit_RemovingForwardedRowPromotesNextPending(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	l := NewLimit(nil, 1)

	_, d1 := addRow(t, s, 1)
	_, d2 := addRow(t, s, 2)
	l.OnAdd(d1, sv)
	l.OnAdd(d2, sv)

	out := l.OnRemove(RemoveDelta(d1.Row), sv)
	require.Len(t, out, 2)
	require.Equal(t, RemoveDelta(d1.Row), out[0])
	require.Equal(t, AddDelta(d2.Row), out[1])
	require.Equal(t, []rowid.RowID{d2.Row}, l.Snapshot(sv))
}

func TestLake_Limit_RemovingPendingRowEmitsNoDelta(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	l := NewLimit(nil, 1)

	_, d1 := addRow(t, s, 1)
	_, d2 := addRow(t, s, 2)
	l.OnAdd(d1, sv)
	l.OnAdd(d2, sv)

	out := l.OnRemove(RemoveDelta(d2.Row), sv)
	require.Empty(t, out)
	require.Equal(t, []rowid.RowID{d1.Row}, l.Snapshot(sv))
}

func TestLake_Skip_DropsFirstKForwardsRest(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	sk := NewSkip(nil, 1)

	_, d1 := addRow(t, s, 1)
	_, d2 := addRow(t, s, 2)

	out1 := sk.OnAdd(d1, sv)
	out2 := sk.OnAdd(d2, sv)
	require.Empty(t, out1)
	require.Len(t, out2, 1)
	require.Equal(t, []rowid.RowID{d2.Row}, sk.Snapshot(sv))
}

func TestLake_Skip_RemovingSkippedRowWithdrawsEarliestForwarded(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	sk := NewSkip(nil, 1)

	_, d1 := addRow(t, s, 1)
	_, d2 := addRow(t, s, 2)
	_, d3 := addRow(t, s, 3)
	sk.OnAdd(d1, sv)
	sk.OnAdd(d2, sv)
	sk.OnAdd(d3, sv)
	require.ElementsMatch(t, []rowid.RowID{d2.Row, d3.Row}, sk.Snapshot(sv))

	out := sk.OnRemove(RemoveDelta(d1.Row), sv)
	require.Equal(t, []Delta{RemoveDelta(d2.Row)}, out)
	require.Equal(t, []rowid.RowID{d3.Row}, sk.Snapshot(sv))
}

func TestLake_Skip_RemovingForwardedRowEmitsRemoveDelta(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	sk := NewSkip(nil, 1)

	_, d1 := addRow(t, s, 1)
	_, d2 := addRow(t, s, 2)
	sk.OnAdd(d1, sv)
	sk.OnAdd(d2, sv)

	out := sk.OnRemove(RemoveDelta(d2.Row), sv)
	require.Equal(t, []Delta{RemoveDelta(d2.Row)}, out)
}

func TestLake_LimitSkip_EffectiveRecordDelegatesToStore(t *testing.T) {
	t.Parallel()

	s := store.New()
	sv := StoreViewOf(s)
	id, d := addRow(t, s, 42)
	l := NewLimit(nil, 1)
	l.OnAdd(d, sv)

	rec, ok := l.EffectiveRecord(rowid.Physical(id), sv)
	require.True(t, ok)
	require.Equal(t, value.Number(42), rec.Map()["amount"])
}
