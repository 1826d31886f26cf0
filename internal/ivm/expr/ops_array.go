package expr

import "github.com/malbeclabs/lake/internal/ivm/value"

func compileArray(n *Node, args []Compiled) (Compiled, error) {
	switch n.Op {
	case OpSize:
		return func(ctx *Context) value.Value {
			v := args[0](ctx)
			if v.Tag() != value.TagArray {
				return value.Null
			}
			return value.Number(float64(len(v.Array())))
		}, nil
	case OpElementAt:
		return func(ctx *Context) value.Value {
			v := args[0](ctx)
			idx, ok := value.ToNumber(args[1](ctx))
			if v.Tag() != value.TagArray || !ok {
				return value.Null
			}
			arr := v.Array()
			i := int(idx)
			if i < 0 {
				i += len(arr)
			}
			if i < 0 || i >= len(arr) {
				return value.Null
			}
			return arr[i]
		}, nil
	case OpSlice:
		return func(ctx *Context) value.Value {
			v := args[0](ctx)
			if v.Tag() != value.TagArray {
				return value.Null
			}
			arr := v.Array()
			start, ok := value.ToNumber(args[1](ctx))
			if !ok {
				return value.Null
			}
			lo := clampIndex(int(start), len(arr))
			hi := len(arr)
			if len(args) > 2 {
				count, ok := value.ToNumber(args[2](ctx))
				if !ok {
					return value.Null
				}
				hi = clampIndex(lo+int(count), len(arr))
			}
			if hi < lo {
				hi = lo
			}
			out := append([]value.Value(nil), arr[lo:hi]...)
			return value.Array(out)
		}, nil
	case OpArrayConcat:
		return func(ctx *Context) value.Value {
			var out []value.Value
			for _, a := range args {
				v := a(ctx)
				if v.Tag() != value.TagArray {
					return value.Null
				}
				out = append(out, v.Array()...)
			}
			return value.Array(out)
		}, nil
	case OpIndexOf:
		return func(ctx *Context) value.Value {
			v := args[0](ctx)
			needle := args[1](ctx)
			if v.Tag() != value.TagArray {
				return value.Null
			}
			for i, e := range v.Array() {
				if value.Equal(e, needle) {
					return value.Number(float64(i))
				}
			}
			return value.Number(-1)
		}, nil
	case OpReverse:
		return func(ctx *Context) value.Value {
			v := args[0](ctx)
			if v.Tag() != value.TagArray {
				return value.Null
			}
			src := v.Array()
			out := make([]value.Value, len(src))
			for i, e := range src {
				out[len(src)-1-i] = e
			}
			return value.Array(out)
		}, nil
	case OpContains:
		return func(ctx *Context) value.Value {
			v := args[0](ctx)
			needle := args[1](ctx)
			if v.Tag() != value.TagArray {
				return value.Bool(false)
			}
			for _, e := range v.Array() {
				if value.Equal(e, needle) {
					return value.Bool(true)
				}
			}
			return value.Bool(false)
		}, nil
	case OpArrayFilter, OpArrayMap:
		return compileArrayLambda(n)
	}
	return nil, nil
}

// compileArrayLambda handles $filter/$map-shaped nodes, whose second
// argument is evaluated once per element with that element bound as the
// nested-iteration "this" variable (spec §4.3's scratch context for
// nested-iteration variables).
func compileArrayLambda(n *Node) (Compiled, error) {
	arrC, err := Compile(n.Args[0])
	if err != nil {
		return nil, err
	}
	bodyC, err := Compile(n.Args[1])
	if err != nil {
		return nil, err
	}
	isFilter := n.Op == OpArrayFilter
	return func(ctx *Context) value.Value {
		v := arrC(ctx)
		if v.Tag() != value.TagArray {
			return value.Null
		}
		src := v.Array()
		out := make([]value.Value, 0, len(src))
		for _, e := range src {
			elemCtx := ctx.pushThis(e).WithCurrent(e)
			result := bodyC(elemCtx)
			if isFilter {
				if result.Truthy() {
					out = append(out, e)
				}
			} else {
				out = append(out, result)
			}
		}
		return value.Array(out)
	}, nil
}
