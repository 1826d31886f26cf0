package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/lake/internal/ivm/value"
)

func TestLake_Pool_RecordMapRoundTripIsEmptyAndReusable(t *testing.T) {
	t.Parallel()

	m := GetRecordMap()
	require.Empty(t, m)
	m["a"] = value.Number(1)
	PutRecordMap(m)

	m2 := GetRecordMap()
	require.Empty(t, m2)
}

func TestLake_Pool_SlicePoolGetReturnsZeroLengthReusableSlice(t *testing.T) {
	t.Parallel()

	p := NewSlicePool[int](4)
	s := p.Get()
	require.Empty(t, s)
	s = append(s, 1, 2, 3)
	p.Put(s)

	s2 := p.Get()
	require.Empty(t, s2)
}

func TestLake_Pool_ChangeSetCountsDistinctMarkedSlots(t *testing.T) {
	t.Parallel()

	cs := NewChangeSet(8)
	cs.Mark(1)
	cs.Mark(3)
	cs.Mark(1)
	require.EqualValues(t, 2, cs.Count())

	cs.Reset()
	require.EqualValues(t, 0, cs.Count())
}

func TestLake_Pool_NilChangeSetIsSafeNoOp(t *testing.T) {
	t.Parallel()

	var cs *ChangeSet
	cs.Mark(0)
	require.EqualValues(t, 0, cs.Count())
	cs.Reset()
}
