package expr

import "github.com/malbeclabs/lake/internal/ivm/value"

// Context is the evaluation-time scratch passed to a compiled closure: the
// record currently being evaluated, the outermost root record (for nested
// array operators that need to escape back out), and the innermost bound
// "this" element for array map/filter.
type Context struct {
	Current value.Value
	Root    value.Value
	this    []value.Value // stack of bound elements, innermost last
}

// NewContext seeds a Context for evaluating an expression against record.
func NewContext(record value.Value) *Context {
	return &Context{Current: record, Root: record}
}

// WithCurrent returns a shallow copy of ctx with Current replaced — used
// when a nested operator (array filter/map) evaluates its predicate
// against each element in turn while keeping Root fixed.
func (c *Context) WithCurrent(v value.Value) *Context {
	next := *c
	next.Current = v
	return &next
}

func (c *Context) pushThis(v value.Value) *Context {
	next := *c
	next.this = append(append([]value.Value{}, c.this...), v)
	return &next
}

func (c *Context) this_() value.Value {
	if len(c.this) == 0 {
		return value.Null
	}
	return c.this[len(c.this)-1]
}
