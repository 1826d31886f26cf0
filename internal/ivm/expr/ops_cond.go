package expr

import "github.com/malbeclabs/lake/internal/ivm/value"

// compileConditional handles $cond (if/then/else) and $ifNull, both of
// which must short-circuit (spec §4.3) and so compile their branches
// without eagerly evaluating them.
func compileConditional(n *Node) (Compiled, error) {
	switch n.Op {
	case OpCond:
		ifC, err := Compile(n.Args[0])
		if err != nil {
			return nil, err
		}
		thenC, err := Compile(n.Args[1])
		if err != nil {
			return nil, err
		}
		elseC, err := Compile(n.Args[2])
		if err != nil {
			return nil, err
		}
		return func(ctx *Context) value.Value {
			if ifC(ctx).Truthy() {
				return thenC(ctx)
			}
			return elseC(ctx)
		}, nil
	case OpIfNull:
		compiled := make([]Compiled, len(n.Args))
		for i, a := range n.Args {
			c, err := Compile(a)
			if err != nil {
				return nil, err
			}
			compiled[i] = c
		}
		return func(ctx *Context) value.Value {
			for _, c := range compiled {
				if v := c(ctx); !v.IsNull() {
					return v
				}
			}
			return value.Null
		}, nil
	}
	return nil, nil
}
