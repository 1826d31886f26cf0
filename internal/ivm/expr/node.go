// Package expr implements the Expression & Predicate Compiler of spec.md
// §4.3: it turns a declarative, pre-validated expression tree into a Go
// closure, with constant folding, field-access interning, regex compile
// caching, and the short-circuit / error-discipline rules of §4.3 and §7.
//
// There is no surface grammar (spec §1 Non-goals): the input is already a
// Node tree, the Go-native equivalent of the decoded AST a parser would
// produce.
package expr

import "github.com/malbeclabs/lake/internal/ivm/value"

// Op is the closed enumeration of named operators from spec §6's
// "Predicate/expression vocabulary accepted". Spec §9 ("Dynamic operator
// registry") calls for a closed enum + compile-time dispatch table in a
// systems language, rather than a string-keyed map of functions.
type Op int

const (
	OpNone Op = iota

	// comparison
	OpEq
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNotIn

	// logical
	OpAnd
	OpOr
	OpNor
	OpNot
	OpExists

	// arithmetic
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpMod
	OpAbs
	OpCeil
	OpFloor
	OpRound
	OpSqrt
	OpPow

	// string
	OpConcat
	OpSubstring
	OpToUpper
	OpToLower
	OpSplit
	OpLength
	OpTrim
	OpRegexMatch

	// array
	OpSize
	OpElementAt
	OpArrayFilter
	OpArrayMap
	OpSlice
	OpArrayConcat
	OpIndexOf
	OpReverse
	OpContains

	// date
	OpYear
	OpMonth
	OpDayOfMonth
	OpDayOfWeek
	OpDayOfYear
	OpWeek
	OpHour
	OpMinute
	OpSecond
	OpMillisecond

	// conditional
	OpCond
	OpIfNull

	// set
	OpSetEquals
	OpSetIntersect
	OpSetUnion
	OpSetDifference
	OpIsSubset
	OpAnyTrue
	OpAllTrue
)

// NodeKind distinguishes the leaf and interior shapes spec §4.3 names:
// literals, field references, system variables, and named-operator
// interior nodes.
type NodeKind int

const (
	KindLiteral NodeKind = iota
	KindField
	KindVar
	KindOp
)

// SystemVar names one of the expression language's system variables.
type SystemVar int

const (
	VarCurrent SystemVar = iota // the record the expression is evaluated against
	VarRoot                     // the outermost record, visible inside nested array ops
	VarThis                     // the innermost array element bound by $filter/$map
)

// Node is the uncompiled expression tree. It is plain data — produced by
// whatever upstream validated the pipeline, per spec §1's "consumes
// already decoded records and a pre-validated pipeline."
type Node struct {
	Kind  NodeKind
	Lit   value.Value
	Field string
	Var   SystemVar
	Op    Op
	Args  []*Node

	// Lambda is a label for the per-element variable of an array
	// map/filter node (e.g. "this"). It is part of the plan's canonical
	// serialization only: compilation does not read it, and the element
	// is always bound as VarThis (and as the current record) while
	// evaluating Args[1].
	Lambda string
}

func Literal(v value.Value) *Node         { return &Node{Kind: KindLiteral, Lit: v} }
func Field(path string) *Node             { return &Node{Kind: KindField, Field: path} }
func Var(v SystemVar) *Node                { return &Node{Kind: KindVar, Var: v} }
func Call(op Op, args ...*Node) *Node      { return &Node{Kind: KindOp, Op: op, Args: args} }

// hasFieldDependency reports whether the subtree reads any field or
// system variable, directly determining whether constant folding (§4.3)
// applies.
func hasFieldDependency(n *Node) bool {
	switch n.Kind {
	case KindLiteral:
		return false
	case KindField, KindVar:
		return true
	case KindOp:
		for _, a := range n.Args {
			if hasFieldDependency(a) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
