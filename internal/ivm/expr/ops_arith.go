package expr

import (
	"math"

	"github.com/malbeclabs/lake/internal/ivm/value"
)

// binaryNumeric implements a two-argument arithmetic op. Per spec §4.3's
// error discipline, a non-numeric operand yields Null, and divide/modulo
// by zero yields the NaN sentinel rather than panicking.
func binaryNumeric(fn func(a, b float64) value.Value) func(args []Compiled) Compiled {
	return func(args []Compiled) Compiled {
		return func(ctx *Context) value.Value {
			a, aok := value.ToNumber(args[0](ctx))
			b, bok := value.ToNumber(args[1](ctx))
			if !aok || !bok {
				return value.Null
			}
			return fn(a, b)
		}
	}
}

func unaryNumeric(fn func(a float64) value.Value) func(args []Compiled) Compiled {
	return func(args []Compiled) Compiled {
		return func(ctx *Context) value.Value {
			a, ok := value.ToNumber(args[0](ctx))
			if !ok {
				return value.Null
			}
			return fn(a)
		}
	}
}

func compileArithmetic(n *Node, args []Compiled) (Compiled, error) {
	switch n.Op {
	case OpAdd:
		return binaryNumeric(func(a, b float64) value.Value { return value.Number(a + b) })(args), nil
	case OpSubtract:
		return binaryNumeric(func(a, b float64) value.Value { return value.Number(a - b) })(args), nil
	case OpMultiply:
		return binaryNumeric(func(a, b float64) value.Value { return value.Number(a * b) })(args), nil
	case OpDivide:
		return binaryNumeric(func(a, b float64) value.Value {
			if b == 0 {
				return value.NaN
			}
			return value.Number(a / b)
		})(args), nil
	case OpMod:
		return binaryNumeric(func(a, b float64) value.Value {
			if b == 0 {
				return value.NaN
			}
			return value.Number(math.Mod(a, b))
		})(args), nil
	case OpPow:
		return binaryNumeric(func(a, b float64) value.Value { return value.Number(math.Pow(a, b)) })(args), nil
	case OpAbs:
		return unaryNumeric(func(a float64) value.Value { return value.Number(math.Abs(a)) })(args), nil
	case OpCeil:
		return unaryNumeric(func(a float64) value.Value { return value.Number(math.Ceil(a)) })(args), nil
	case OpFloor:
		return unaryNumeric(func(a float64) value.Value { return value.Number(math.Floor(a)) })(args), nil
	case OpRound:
		return unaryNumeric(func(a float64) value.Value { return value.Number(math.Round(a)) })(args), nil
	case OpSqrt:
		return unaryNumeric(func(a float64) value.Value {
			if a < 0 {
				return value.NaN
			}
			return value.Number(math.Sqrt(a))
		})(args), nil
	}
	return nil, nil
}
