package dimension

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/lake/internal/ivm/value"
)

func TestLake_Dimension_AddIndexesAllThreeWays(t *testing.T) {
	t.Parallel()

	d := New("category")
	d.Add(1, value.String("east"))
	d.Add(2, value.String("west"))
	d.Add(3, value.String("east"))

	require.ElementsMatch(t, []int64{1, 3}, d.RowsEqual(value.String("east")))
	require.ElementsMatch(t, []int64{2}, d.RowsEqual(value.String("west")))

	v, ok := d.ValueOf(2)
	require.True(t, ok)
	require.Equal(t, value.String("west"), v)
}

func TestLake_Dimension_AddIsIdempotentPerRowID(t *testing.T) {
	t.Parallel()

	d := New("category")
	d.Add(1, value.String("east"))
	d.Add(1, value.String("west")) // re-add moves the row, doesn't duplicate it

	require.Empty(t, d.RowsEqual(value.String("east")))
	require.Equal(t, []int64{1}, d.RowsEqual(value.String("west")))
	require.Equal(t, 1, d.Cardinality())
}

func TestLake_Dimension_RemoveDropsValueWhenLastRow(t *testing.T) {
	t.Parallel()

	d := New("category")
	d.Add(1, value.String("east"))
	d.Remove(1)

	require.Empty(t, d.RowsEqual(value.String("east")))
	require.Equal(t, 0, d.Cardinality())
	_, ok := d.ValueOf(1)
	require.False(t, ok)
}

func TestLake_Dimension_RowsInUnionsAndDedupes(t *testing.T) {
	t.Parallel()

	d := New("category")
	d.Add(1, value.String("east"))
	d.Add(2, value.String("west"))
	d.Add(3, value.String("north"))

	got := d.RowsIn([]value.Value{value.String("east"), value.String("west"), value.String("east")})
	require.ElementsMatch(t, []int64{1, 2}, got)
}

func TestLake_Dimension_RowsInRangeRespectsInclusivity(t *testing.T) {
	t.Parallel()

	d := New("amount")
	for i, n := range []float64{1, 2, 3, 4, 5} {
		d.Add(int64(i), value.Number(n))
	}

	lo, hi := value.Number(2), value.Number(4)
	got := d.RowsInRange(&lo, &hi, true, true)
	require.Len(t, got, 3)

	got = d.RowsInRange(&lo, &hi, false, false)
	require.Len(t, got, 1)
}

func TestLake_Dimension_MinMax(t *testing.T) {
	t.Parallel()

	d := New("amount")
	d.Add(0, value.Number(5))
	d.Add(1, value.Number(1))
	d.Add(2, value.Number(9))

	min, ok := d.Min()
	require.True(t, ok)
	require.Equal(t, value.Number(1), min)

	max, ok := d.Max()
	require.True(t, ok)
	require.Equal(t, value.Number(9), max)
}

func TestLake_Dimension_VerifyCleanOnConsistentState(t *testing.T) {
	t.Parallel()

	values := map[int64]value.Value{0: value.Number(1), 1: value.Number(2)}
	d := New("amount")
	for id, v := range values {
		d.Add(id, v)
	}

	problems := d.Verify(func(id int64) (value.Value, bool) {
		v, ok := values[id]
		return v, ok
	})
	require.Empty(t, problems)
}

func TestLake_Dimension_VerifyCatchesStaleValue(t *testing.T) {
	t.Parallel()

	d := New("amount")
	d.Add(0, value.Number(1))

	problems := d.Verify(func(id int64) (value.Value, bool) {
		return value.Number(999), true // disagrees with what was indexed
	})
	require.NotEmpty(t, problems)
}

// The prefilter is an optional, off-by-default optimization (spec §9(b)):
// it must never change what RowsEqual/RowsIn return, only sometimes skip
// the map lookup early. Every test above runs without it; this test
// exercises it explicitly and checks it stays transparent.
func TestLake_Dimension_PrefilterNeverChangesResults(t *testing.T) {
	t.Parallel()

	d := New("category")
	d.EnablePrefilter(1024, 0.01)
	d.Add(1, value.String("east"))
	d.Add(2, value.String("west"))

	require.Equal(t, []int64{1}, d.RowsEqual(value.String("east")))
	require.Empty(t, d.RowsEqual(value.String("north")))
	require.ElementsMatch(t, []int64{1, 2}, d.RowsIn([]value.Value{value.String("east"), value.String("west")}))
}

func TestLake_Dimension_PrefilterEnabledAfterRowsAlreadyIndexed(t *testing.T) {
	t.Parallel()

	d := New("category")
	d.Add(1, value.String("east"))
	d.EnablePrefilter(1024, 0.01) // must backfill existing rows, not just future Adds
	require.Equal(t, []int64{1}, d.RowsEqual(value.String("east")))
}
