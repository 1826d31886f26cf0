package expr

import "github.com/malbeclabs/lake/internal/ivm/value"

func compileDate(n *Node, args []Compiled) (Compiled, error) {
	field := func(fn func(t value.Value) value.Value) Compiled {
		return func(ctx *Context) value.Value {
			v := args[0](ctx)
			if v.Tag() != value.TagTime {
				return value.Null
			}
			return fn(v)
		}
	}
	switch n.Op {
	case OpYear:
		return field(func(v value.Value) value.Value { return value.Number(float64(v.Time().Year())) }), nil
	case OpMonth:
		return field(func(v value.Value) value.Value { return value.Number(float64(v.Time().Month())) }), nil
	case OpDayOfMonth:
		return field(func(v value.Value) value.Value { return value.Number(float64(v.Time().Day())) }), nil
	case OpDayOfWeek:
		return field(func(v value.Value) value.Value { return value.Number(float64(v.Time().Weekday()) + 1) }), nil
	case OpDayOfYear:
		return field(func(v value.Value) value.Value { return value.Number(float64(v.Time().YearDay())) }), nil
	case OpWeek:
		return field(func(v value.Value) value.Value {
			_, w := v.Time().ISOWeek()
			return value.Number(float64(w))
		}), nil
	case OpHour:
		return field(func(v value.Value) value.Value { return value.Number(float64(v.Time().Hour())) }), nil
	case OpMinute:
		return field(func(v value.Value) value.Value { return value.Number(float64(v.Time().Minute())) }), nil
	case OpSecond:
		return field(func(v value.Value) value.Value { return value.Number(float64(v.Time().Second())) }), nil
	case OpMillisecond:
		return field(func(v value.Value) value.Value { return value.Number(float64(v.Time().Nanosecond() / 1_000_000)) }), nil
	}
	return nil, nil
}
