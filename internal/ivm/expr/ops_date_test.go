package expr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/lake/internal/ivm/value"
)

func TestLake_Expr_DateOps(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, time.March, 5, 13, 45, 30, 250_000_000, time.UTC)
	lit := Literal(value.Time(ts))

	require.Equal(t, value.Number(2026), eval(t, Call(OpYear, lit), value.Null))
	require.Equal(t, value.Number(3), eval(t, Call(OpMonth, lit), value.Null))
	require.Equal(t, value.Number(5), eval(t, Call(OpDayOfMonth, lit), value.Null))
	require.Equal(t, value.Number(13), eval(t, Call(OpHour, lit), value.Null))
	require.Equal(t, value.Number(45), eval(t, Call(OpMinute, lit), value.Null))
	require.Equal(t, value.Number(30), eval(t, Call(OpSecond, lit), value.Null))
	require.Equal(t, value.Number(250), eval(t, Call(OpMillisecond, lit), value.Null))
}

func TestLake_Expr_DateOpsOnNonTimeIsNull(t *testing.T) {
	t.Parallel()

	require.True(t, eval(t, Call(OpYear, Literal(value.Number(1))), value.Null).IsNull())
}
