package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/lake/internal/ivm/value"
)

func TestLake_Store_AddAssignsMonotoneIDs(t *testing.T) {
	t.Parallel()

	s := New()
	id0 := s.Add(value.String("a"))
	id1 := s.Add(value.String("b"))
	require.Equal(t, int64(0), id0)
	require.Equal(t, int64(1), id1)
	require.Equal(t, 2, s.Total())
	require.Equal(t, 2, s.Cardinality())
}

func TestLake_Store_RemoveTombstonesRatherThanDeletes(t *testing.T) {
	t.Parallel()

	s := New()
	id := s.Add(value.String("a"))

	require.True(t, s.Remove(id))
	require.False(t, s.IsLive(id))
	require.Equal(t, 0, s.Cardinality())
	require.Equal(t, 1, s.Total())

	rec, ok := s.Get(id)
	require.True(t, ok)
	require.Equal(t, value.String("a"), rec)
}

func TestLake_Store_RemoveUnknownIDReturnsFalse(t *testing.T) {
	t.Parallel()

	s := New()
	require.False(t, s.Remove(0))
	require.False(t, s.Remove(-1))

	s.Add(value.String("a"))
	require.False(t, s.Remove(99))
}

func TestLake_Store_RemoveTwiceReturnsFalseSecondTime(t *testing.T) {
	t.Parallel()

	s := New()
	id := s.Add(value.String("a"))
	require.True(t, s.Remove(id))
	require.False(t, s.Remove(id))
}

func TestLake_Store_GetOutOfRangeIsNotOK(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok := s.Get(0)
	require.False(t, ok)

	_, ok = s.Get(-1)
	require.False(t, ok)
}

func TestLake_Store_IterLiveSkipsTombstones(t *testing.T) {
	t.Parallel()

	s := New()
	id0 := s.Add(value.Number(1))
	id1 := s.Add(value.Number(2))
	s.Add(value.Number(3))
	require.True(t, s.Remove(id1))

	var seen []int64
	s.IterLive(func(id int64, _ value.Value) { seen = append(seen, id) })
	require.Equal(t, []int64{id0, 2}, seen)
}

func TestLake_Store_LiveIDsMatchesIterLive(t *testing.T) {
	t.Parallel()

	s := New()
	s.Add(value.Number(1))
	id1 := s.Add(value.Number(2))
	s.Remove(id1)
	s.Add(value.Number(3))

	require.Equal(t, []int64{0, 2}, s.LiveIDs())
}

func TestLake_Store_ClearResetsEverything(t *testing.T) {
	t.Parallel()

	s := New()
	s.Add(value.Number(1))
	s.Add(value.Number(2))
	s.Clear()

	require.Equal(t, 0, s.Total())
	require.Equal(t, 0, s.Cardinality())

	// IDs are reused from zero after Clear, per the "only reclamation
	// point" contract.
	id := s.Add(value.Number(9))
	require.Equal(t, int64(0), id)
}
