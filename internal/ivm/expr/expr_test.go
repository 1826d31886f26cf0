package expr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/lake/internal/ivm/value"
)

func eval(t *testing.T, n *Node, record value.Value) value.Value {
	t.Helper()
	c, err := Compile(n)
	require.NoError(t, err)
	return c(NewContext(record))
}

func TestLake_Expr_CompileLiteral(t *testing.T) {
	t.Parallel()

	got := eval(t, Literal(value.Number(7)), value.Null)
	require.Equal(t, value.Number(7), got)
}

func TestLake_Expr_CompileField(t *testing.T) {
	t.Parallel()

	rec := value.Map(map[string]value.Value{"amount": value.Number(42)})
	got := eval(t, Field("amount"), rec)
	require.Equal(t, value.Number(42), got)
}

func TestLake_Expr_CompileMissingFieldIsNull(t *testing.T) {
	t.Parallel()

	rec := value.Map(map[string]value.Value{"amount": value.Number(42)})
	got := eval(t, Field("missing"), rec)
	require.True(t, got.IsNull())
}

func TestLake_Expr_ConstantFoldingEvaluatesOnce(t *testing.T) {
	t.Parallel()

	n := Call(OpAdd, Literal(value.Number(1)), Literal(value.Number(2)))
	got := eval(t, n, value.Null)
	require.Equal(t, value.Number(3), got)
}

func TestLake_Expr_ArithmeticDivideByZeroYieldsNaN(t *testing.T) {
	t.Parallel()

	n := Call(OpDivide, Literal(value.Number(1)), Literal(value.Number(0)))
	got := eval(t, n, value.Null)
	require.True(t, got.IsNaN())
}

func TestLake_Expr_ArithmeticNonNumericOperandYieldsNull(t *testing.T) {
	t.Parallel()

	n := Call(OpAdd, Field("a"), Literal(value.Number(1)))
	rec := value.Map(map[string]value.Value{"a": value.String("not-a-number")})
	got := eval(t, n, rec)
	require.True(t, got.IsNull())
}

func TestLake_Expr_LogicalAndShortCircuitsToFalse(t *testing.T) {
	t.Parallel()

	n := Call(OpAnd, Literal(value.Bool(false)), Literal(value.Bool(true)))
	got := eval(t, n, value.Null)
	require.Equal(t, value.Bool(false), got)
}

func TestLake_Expr_ExistsUsesFieldAccessorNotValue(t *testing.T) {
	t.Parallel()

	// A field present but explicitly null must still count as existing;
	// exists is about presence, not truthiness.
	rec := value.Map(map[string]value.Value{"a": value.Null})
	got := eval(t, Call(OpExists, Field("a")), rec)
	require.Equal(t, value.Bool(true), got)

	got = eval(t, Call(OpExists, Field("missing")), rec)
	require.Equal(t, value.Bool(false), got)
}

func TestLake_Expr_ComparisonOps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		op   Op
		a, b value.Value
		want bool
	}{
		{"eq true", OpEq, value.Number(1), value.Number(1), true},
		{"eq false", OpEq, value.Number(1), value.Number(2), false},
		{"gt", OpGt, value.Number(2), value.Number(1), true},
		{"lte equal", OpLte, value.Number(1), value.Number(1), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := eval(t, Call(tc.op, Literal(tc.a), Literal(tc.b)), value.Null)
			require.Equal(t, value.Bool(tc.want), got)
		})
	}
}

func TestLake_Expr_InAndNotIn(t *testing.T) {
	t.Parallel()

	haystack := Literal(value.Array([]value.Value{value.Number(1), value.Number(2)}))
	require.Equal(t, value.Bool(true), eval(t, Call(OpIn, Literal(value.Number(1)), haystack), value.Null))
	require.Equal(t, value.Bool(false), eval(t, Call(OpNotIn, Literal(value.Number(1)), haystack), value.Null))
}

func TestLake_Expr_CompilePredicateTruthiness(t *testing.T) {
	t.Parallel()

	pred, _, err := CompilePredicate(Call(OpGt, Field("amount"), Literal(value.Number(10))))
	require.NoError(t, err)

	rec := value.Map(map[string]value.Value{"amount": value.Number(20)})
	require.True(t, pred(NewContext(rec)))

	rec = value.Map(map[string]value.Value{"amount": value.Number(5)})
	require.False(t, pred(NewContext(rec)))
}

func TestLake_Expr_ProbeHintExtractedForFieldLiteralComparison(t *testing.T) {
	t.Parallel()

	_, hint, err := CompilePredicate(Call(OpEq, Field("status"), Literal(value.String("active"))))
	require.NoError(t, err)
	require.True(t, hint.OK)
	require.Equal(t, "status", hint.Field)
	require.Equal(t, OpEq, hint.Op)
	require.Equal(t, value.String("active"), hint.Lit)
}

func TestLake_Expr_ProbeHintIsOrderIndependent(t *testing.T) {
	t.Parallel()

	_, hint, err := CompilePredicate(Call(OpEq, Literal(value.String("active")), Field("status")))
	require.NoError(t, err)
	require.True(t, hint.OK)
	require.Equal(t, "status", hint.Field)
}

func TestLake_Expr_ProbeHintAbsentForNonFieldLiteralShape(t *testing.T) {
	t.Parallel()

	_, hint, err := CompilePredicate(Call(OpAnd, Literal(value.Bool(true)), Literal(value.Bool(true))))
	require.NoError(t, err)
	require.False(t, hint.OK)

	_, hint, err = CompilePredicate(Call(OpEq, Field("a"), Field("b")))
	require.NoError(t, err)
	require.False(t, hint.OK)
}

func TestLake_Expr_ProbeHintAbsentForUnsupportedOp(t *testing.T) {
	t.Parallel()

	_, hint, err := CompilePredicate(Call(OpNe, Field("status"), Literal(value.String("inactive"))))
	require.NoError(t, err)
	require.False(t, hint.OK)
}

func TestLake_Expr_ContextWithCurrentPreservesRoot(t *testing.T) {
	t.Parallel()

	root := value.Map(map[string]value.Value{"id": value.Number(1)})
	ctx := NewContext(root)
	nested := ctx.WithCurrent(value.Number(99))

	require.Equal(t, value.Number(99), nested.Current)
	require.Equal(t, root, nested.Root)
}
