package expr

import "github.com/malbeclabs/lake/internal/ivm/value"

func asSet(v value.Value) ([]value.Value, bool) {
	if v.Tag() != value.TagArray {
		return nil, false
	}
	return v.Array(), true
}

func setContains(set []value.Value, v value.Value) bool {
	for _, e := range set {
		if value.Equal(e, v) {
			return true
		}
	}
	return false
}

func compileSet(n *Node, args []Compiled) (Compiled, error) {
	switch n.Op {
	case OpSetEquals:
		return func(ctx *Context) value.Value {
			a, aok := asSet(args[0](ctx))
			b, bok := asSet(args[1](ctx))
			if !aok || !bok {
				return value.Null
			}
			if len(a) != len(b) {
				return value.Bool(false)
			}
			for _, e := range a {
				if !setContains(b, e) {
					return value.Bool(false)
				}
			}
			return value.Bool(true)
		}, nil
	case OpSetIntersect:
		return func(ctx *Context) value.Value {
			a, aok := asSet(args[0](ctx))
			b, bok := asSet(args[1](ctx))
			if !aok || !bok {
				return value.Null
			}
			var out []value.Value
			for _, e := range a {
				if setContains(b, e) && !setContains(out, e) {
					out = append(out, e)
				}
			}
			return value.Array(out)
		}, nil
	case OpSetUnion:
		return func(ctx *Context) value.Value {
			a, aok := asSet(args[0](ctx))
			b, bok := asSet(args[1](ctx))
			if !aok || !bok {
				return value.Null
			}
			var out []value.Value
			for _, e := range append(append([]value.Value{}, a...), b...) {
				if !setContains(out, e) {
					out = append(out, e)
				}
			}
			return value.Array(out)
		}, nil
	case OpSetDifference:
		return func(ctx *Context) value.Value {
			a, aok := asSet(args[0](ctx))
			b, bok := asSet(args[1](ctx))
			if !aok || !bok {
				return value.Null
			}
			var out []value.Value
			for _, e := range a {
				if !setContains(b, e) {
					out = append(out, e)
				}
			}
			return value.Array(out)
		}, nil
	case OpIsSubset:
		return func(ctx *Context) value.Value {
			a, aok := asSet(args[0](ctx))
			b, bok := asSet(args[1](ctx))
			if !aok || !bok {
				return value.Null
			}
			for _, e := range a {
				if !setContains(b, e) {
					return value.Bool(false)
				}
			}
			return value.Bool(true)
		}, nil
	case OpAnyTrue:
		return func(ctx *Context) value.Value {
			a, ok := asSet(args[0](ctx))
			if !ok {
				return value.Null
			}
			for _, e := range a {
				if e.Truthy() {
					return value.Bool(true)
				}
			}
			return value.Bool(false)
		}, nil
	case OpAllTrue:
		return func(ctx *Context) value.Value {
			a, ok := asSet(args[0](ctx))
			if !ok {
				return value.Null
			}
			for _, e := range a {
				if !e.Truthy() {
					return value.Bool(false)
				}
			}
			return value.Bool(true)
		}, nil
	}
	return nil, nil
}
