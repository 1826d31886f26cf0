package ivmd

import (
	"github.com/malbeclabs/lake/internal/ivm/expr"
	"github.com/malbeclabs/lake/internal/ivm/plan"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

// demoPipeline builds the illustrative pipeline this host maintains
// incrementally: keep only "active" records carrying a numeric "amount",
// group by "category" summing and counting amount, and surface the ten
// largest categories by total — exercising filter (both a dimension-probe
// equality and a plain existence check), group, sort, and limit in one
// chain (spec §4.5). The status == "active" filter is what builds a
// dimension on "status", so an ivmd started with -prefilter-max-elements
// actually exercises the bloom prefilter.
func demoPipeline() plan.Pipeline {
	return plan.Pipeline{
		plan.Filter(expr.Call(expr.OpEq, expr.Field("status"), expr.Literal(value.String("active")))),
		plan.Filter(expr.Call(expr.OpExists, expr.Field("amount"))),
		plan.Group(
			expr.Field("category"),
			[]plan.AccumulatorArg{
				{Name: "total", Kind: expr.AccSum, Expr: expr.Field("amount")},
				{Name: "count", Kind: expr.AccCount, Expr: expr.Field("amount")},
			},
		),
		plan.Sort([]plan.SortKeyArg{{Field: "total", Desc: true}}),
		plan.Limit(10),
	}
}
