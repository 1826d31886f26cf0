package expr

import "github.com/malbeclabs/lake/internal/ivm/value"

func compileLogical(n *Node, args []Compiled) (Compiled, error) {
	switch n.Op {
	case OpAnd:
		return func(ctx *Context) value.Value {
			for _, a := range args {
				if !a(ctx).Truthy() {
					return value.Bool(false)
				}
			}
			return value.Bool(true)
		}, nil
	case OpOr:
		return func(ctx *Context) value.Value {
			for _, a := range args {
				if a(ctx).Truthy() {
					return value.Bool(true)
				}
			}
			return value.Bool(false)
		}, nil
	case OpNor:
		return func(ctx *Context) value.Value {
			for _, a := range args {
				if a(ctx).Truthy() {
					return value.Bool(false)
				}
			}
			return value.Bool(true)
		}, nil
	case OpNot:
		return func(ctx *Context) value.Value {
			return value.Bool(!args[0](ctx).Truthy())
		}, nil
	case OpExists:
		acc := fieldAccessorOf(n.Args[0])
		return func(ctx *Context) value.Value {
			if acc != nil {
				return value.Bool(acc.Exists(ctx.Current))
			}
			return value.Bool(!args[0](ctx).IsNull())
		}, nil
	}
	return nil, nil
}

func compileComparison(n *Node, args []Compiled) (Compiled, error) {
	cmp := func(ctx *Context) (value.Value, value.Value) {
		return args[0](ctx), args[1](ctx)
	}
	switch n.Op {
	case OpEq:
		return func(ctx *Context) value.Value { a, b := cmp(ctx); return value.Bool(value.Equal(a, b)) }, nil
	case OpNe:
		return func(ctx *Context) value.Value { a, b := cmp(ctx); return value.Bool(!value.Equal(a, b)) }, nil
	case OpGt:
		return func(ctx *Context) value.Value { a, b := cmp(ctx); return value.Bool(value.Compare(a, b) > 0) }, nil
	case OpGte:
		return func(ctx *Context) value.Value { a, b := cmp(ctx); return value.Bool(value.Compare(a, b) >= 0) }, nil
	case OpLt:
		return func(ctx *Context) value.Value { a, b := cmp(ctx); return value.Bool(value.Compare(a, b) < 0) }, nil
	case OpLte:
		return func(ctx *Context) value.Value { a, b := cmp(ctx); return value.Bool(value.Compare(a, b) <= 0) }, nil
	case OpIn, OpNotIn:
		return func(ctx *Context) value.Value {
			needle, haystack := args[0](ctx), args[1](ctx)
			found := false
			if haystack.Tag() == value.TagArray {
				for _, e := range haystack.Array() {
					if value.Equal(needle, e) {
						found = true
						break
					}
				}
			}
			if n.Op == OpNotIn {
				return value.Bool(!found)
			}
			return value.Bool(found)
		}, nil
	}
	return nil, nil
}

// fieldAccessorOf returns the compiled Accessor for a bare field node, or
// nil if n is not a direct field reference (used by `exists` to skip the
// extra Compile indirection).
func fieldAccessorOf(n *Node) *value.Accessor {
	if n.Kind == KindField {
		return value.Compile(n.Field)
	}
	return nil
}
