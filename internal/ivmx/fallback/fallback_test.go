package fallback

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/lake/internal/ivm/expr"
	"github.com/malbeclabs/lake/internal/ivm/plan"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

func recv(fields map[string]value.Value) value.Value { return value.Map(fields) }

func TestLake_Fallback_FilterGroupSortLimitPipeline(t *testing.T) {
	t.Parallel()

	records := []value.Value{
		recv(map[string]value.Value{"cat": value.String("a"), "amount": value.Number(5)}),
		recv(map[string]value.Value{"cat": value.String("b"), "amount": value.Number(50)}),
		recv(map[string]value.Value{"cat": value.String("a"), "amount": value.Number(20)}),
	}

	pipeline := plan.Pipeline{
		plan.Filter(expr.Call(expr.OpGt, expr.Field("amount"), expr.Literal(value.Number(1)))),
		plan.Group(expr.Field("cat"), []plan.AccumulatorArg{
			{Name: "total", Kind: expr.AccSum, Expr: expr.Field("amount")},
		}),
		plan.Sort([]plan.SortKeyArg{{Field: "total", Desc: true}}),
		plan.Limit(1),
	}

	out, err := Execute(pipeline, records, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, value.String("b"), out[0].Map()["_id"])
	require.Equal(t, value.Number(50), out[0].Map()["total"])
}

func TestLake_Fallback_UnwindFansOutArrayField(t *testing.T) {
	t.Parallel()

	records := []value.Value{
		recv(map[string]value.Value{"tags": value.Array([]value.Value{value.String("x"), value.String("y")})}),
		recv(map[string]value.Value{"tags": value.String("not-an-array")}),
	}

	out, err := Execute(plan.Pipeline{plan.Unwind("tags")}, records, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestLake_Fallback_JoinWithoutSubPipelineMatchesAllForeignRows(t *testing.T) {
	t.Parallel()

	local := []value.Value{recv(map[string]value.Value{"userID": value.Number(1)})}
	foreign := []value.Value{
		recv(map[string]value.Value{"id": value.Number(1), "amount": value.Number(10)}),
		recv(map[string]value.Value{"id": value.Number(1), "amount": value.Number(20)}),
	}
	resolver := func(name string) ([]value.Value, error) { return foreign, nil }

	out, err := Execute(plan.Pipeline{plan.Join(plan.JoinArg{
		Foreign: "orders", LocalField: "userID", ForeignField: "id", OutputField: "orders",
	})}, local, resolver)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].Map()["orders"].Array(), 2)
}

func TestLake_Fallback_JoinWithSubPipelineFiltersForeignSideBeforeMatching(t *testing.T) {
	t.Parallel()

	local := []value.Value{recv(map[string]value.Value{"userID": value.Number(1)})}
	foreign := []value.Value{
		recv(map[string]value.Value{"id": value.Number(1), "amount": value.Number(10)}),
		recv(map[string]value.Value{"id": value.Number(1), "amount": value.Number(200)}),
	}
	resolver := func(name string) ([]value.Value, error) { return foreign, nil }

	out, err := Execute(plan.Pipeline{plan.Join(plan.JoinArg{
		Foreign: "orders", LocalField: "userID", ForeignField: "id", OutputField: "orders",
		SubPipeline: plan.Pipeline{
			plan.Filter(expr.Call(expr.OpGt, expr.Field("amount"), expr.Literal(value.Number(100)))),
		},
	})}, local, resolver)
	require.NoError(t, err)
	require.Len(t, out, 1)
	matches := out[0].Map()["orders"].Array()
	require.Len(t, matches, 1)
	require.Equal(t, value.Number(200), matches[0].Map()["amount"])
}

func TestLake_Fallback_JoinWithoutResolverErrors(t *testing.T) {
	t.Parallel()

	local := []value.Value{recv(map[string]value.Value{"userID": value.Number(1)})}
	_, err := Execute(plan.Pipeline{plan.Join(plan.JoinArg{
		Foreign: "orders", LocalField: "userID", ForeignField: "id", OutputField: "orders",
	})}, local, nil)
	require.Error(t, err)
}

func TestLake_Fallback_ExecuteNeverMutatesInputSlice(t *testing.T) {
	t.Parallel()

	records := []value.Value{
		recv(map[string]value.Value{"amount": value.Number(1)}),
		recv(map[string]value.Value{"amount": value.Number(2)}),
	}
	_, err := Execute(plan.Pipeline{plan.Limit(1)}, records, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
}
