package expr

import (
	"fmt"

	"github.com/malbeclabs/lake/internal/ivm/value"
)

// Compiled is the closure form of a compiled expression (spec §4.3).
type Compiled func(ctx *Context) value.Value

// Predicate is the boolean specialization returned by CompilePredicate.
type Predicate func(ctx *Context) bool

// ProbeHint is the optional dimension-probe hint a compiled predicate can
// emit: "field op literal", which the planner may use to drive a
// Dimension range scan instead of a full filter pass (spec §4.3, §4.5.1).
type ProbeHint struct {
	Field string
	Op    Op
	Lit   value.Value
	OK    bool
}

// Compile turns a Node into a closure, applying constant folding: any
// subtree with no field/variable dependency is evaluated once, here, and
// replaced by a literal closure.
func Compile(n *Node) (Compiled, error) {
	if n == nil {
		return func(*Context) value.Value { return value.Null }, nil
	}
	if !hasFieldDependency(n) {
		v := mustEvalConst(n)
		return func(*Context) value.Value { return v }, nil
	}
	switch n.Kind {
	case KindLiteral:
		v := n.Lit
		return func(*Context) value.Value { return v }, nil
	case KindField:
		acc := value.Compile(n.Field)
		return func(ctx *Context) value.Value { return acc.Get(ctx.Current) }, nil
	case KindVar:
		switch n.Var {
		case VarCurrent:
			return func(ctx *Context) value.Value { return ctx.Current }, nil
		case VarRoot:
			return func(ctx *Context) value.Value { return ctx.Root }, nil
		case VarThis:
			return func(ctx *Context) value.Value { return ctx.this_() }, nil
		}
		return nil, fmt.Errorf("expr: unknown system variable %d", n.Var)
	case KindOp:
		return compileOp(n)
	default:
		return nil, fmt.Errorf("expr: unknown node kind %d", n.Kind)
	}
}

// mustEvalConst evaluates a field/variable-free subtree once, at compile
// time. Since it has no dependency on any record, any Context works.
func mustEvalConst(n *Node) value.Value {
	c, err := compileUnfolded(n)
	if err != nil {
		return value.Null
	}
	return c(&Context{})
}

// compileUnfolded compiles n without applying constant folding at this
// level (used to actually evaluate a constant subtree once, avoiding
// infinite recursion into Compile's own folding check).
func compileUnfolded(n *Node) (Compiled, error) {
	switch n.Kind {
	case KindLiteral:
		v := n.Lit
		return func(*Context) value.Value { return v }, nil
	case KindOp:
		return compileOp(n)
	default:
		return func(*Context) value.Value { return value.Null }, nil
	}
}

// CompilePredicate compiles n and specializes it to a boolean closure
// (truthiness per value.Value.Truthy), plus — when n is a simple
// comparison against a literal over a single field — a ProbeHint for the
// planner.
func CompilePredicate(n *Node) (Predicate, ProbeHint, error) {
	c, err := Compile(n)
	if err != nil {
		return nil, ProbeHint{}, err
	}
	hint := probeHint(n)
	return func(ctx *Context) bool { return c(ctx).Truthy() }, hint, nil
}

func probeHint(n *Node) ProbeHint {
	if n == nil || n.Kind != KindOp || len(n.Args) != 2 {
		return ProbeHint{}
	}
	switch n.Op {
	case OpEq, OpGt, OpGte, OpLt, OpLte, OpIn, OpNotIn:
	default:
		return ProbeHint{}
	}
	field, lit, ok := fieldAndLiteral(n.Args[0], n.Args[1])
	if !ok {
		return ProbeHint{}
	}
	op := n.Op
	if n.Args[0].Kind != KindField || hasFieldDependency(n.Args[1]) {
		// "literal op field": restate it as "field op' literal".
		switch op {
		case OpGt:
			op = OpLt
		case OpGte:
			op = OpLte
		case OpLt:
			op = OpGt
		case OpLte:
			op = OpGte
		case OpIn, OpNotIn:
			return ProbeHint{}
		}
	}
	return ProbeHint{Field: field, Op: op, Lit: lit, OK: true}
}

func fieldAndLiteral(a, b *Node) (string, value.Value, bool) {
	if a.Kind == KindField && !hasFieldDependency(b) {
		return a.Field, mustEvalConst(b), true
	}
	if b.Kind == KindField && !hasFieldDependency(a) {
		return b.Field, mustEvalConst(a), true
	}
	return "", value.Null, false
}
