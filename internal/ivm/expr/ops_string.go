package expr

import (
	"strings"

	"github.com/malbeclabs/lake/internal/ivm/value"
)

func compileString(n *Node, args []Compiled) (Compiled, error) {
	switch n.Op {
	case OpConcat:
		return func(ctx *Context) value.Value {
			var b strings.Builder
			for _, a := range args {
				v := a(ctx)
				if v.IsNull() {
					return value.Null
				}
				b.WriteString(v.String())
			}
			return value.String(b.String())
		}, nil
	case OpSubstring:
		return func(ctx *Context) value.Value {
			s := args[0](ctx)
			if s.Tag() != value.TagString {
				return value.Null
			}
			start, ok := value.ToNumber(args[1](ctx))
			if !ok {
				return value.Null
			}
			runes := []rune(s.String())
			lo := clampIndex(int(start), len(runes))
			hi := len(runes)
			if len(args) > 2 {
				length, ok := value.ToNumber(args[2](ctx))
				if !ok {
					return value.Null
				}
				hi = clampIndex(lo+int(length), len(runes))
			}
			if hi < lo {
				hi = lo
			}
			return value.String(string(runes[lo:hi]))
		}, nil
	case OpToUpper:
		return func(ctx *Context) value.Value {
			v := args[0](ctx)
			if v.Tag() != value.TagString {
				return value.Null
			}
			return value.String(strings.ToUpper(v.String()))
		}, nil
	case OpToLower:
		return func(ctx *Context) value.Value {
			v := args[0](ctx)
			if v.Tag() != value.TagString {
				return value.Null
			}
			return value.String(strings.ToLower(v.String()))
		}, nil
	case OpSplit:
		return func(ctx *Context) value.Value {
			s := args[0](ctx)
			sep := args[1](ctx)
			if s.Tag() != value.TagString || sep.Tag() != value.TagString {
				return value.Null
			}
			parts := strings.Split(s.String(), sep.String())
			out := make([]value.Value, len(parts))
			for i, p := range parts {
				out[i] = value.String(p)
			}
			return value.Array(out)
		}, nil
	case OpLength:
		return func(ctx *Context) value.Value {
			v := args[0](ctx)
			switch v.Tag() {
			case value.TagString:
				return value.Number(float64(len([]rune(v.String()))))
			case value.TagArray:
				return value.Number(float64(len(v.Array())))
			default:
				return value.Null
			}
		}, nil
	case OpTrim:
		return func(ctx *Context) value.Value {
			v := args[0](ctx)
			if v.Tag() != value.TagString {
				return value.Null
			}
			return value.String(strings.TrimSpace(v.String()))
		}, nil
	case OpRegexMatch:
		return func(ctx *Context) value.Value {
			s := args[0](ctx)
			pat := args[1](ctx)
			if s.Tag() != value.TagString || pat.Tag() != value.TagString {
				return value.Null
			}
			flags := ""
			if len(args) > 2 {
				if f := args[2](ctx); f.Tag() == value.TagString {
					flags = f.String()
				}
			}
			re := compileRegex(pat.String(), flags)
			if re == nil {
				return value.Bool(false)
			}
			return value.Bool(re.MatchString(s.String()))
		}, nil
	}
	return nil, nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return i
}
