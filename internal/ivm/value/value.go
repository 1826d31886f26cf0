// Package value implements the tagged schemaless value that backs every
// record field: scalar, ordered sequence, nested map, timestamp, or null.
// Comparisons, coercions, and the "missing field == null" rule all route
// through this package so that every operator sees the same semantics.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Tag identifies the dynamic type carried by a Value.
type Tag uint8

const (
	TagNull Tag = iota
	TagBool
	TagNumber
	TagString
	TagTime
	TagArray
	TagMap
	// TagNaN is the not-a-number sentinel produced by invalid arithmetic
	// (division/modulo by zero). It is distinct from TagNumber so callers
	// can detect it without a NaN-specific float comparison.
	TagNaN
)

func (t Tag) String() string {
	switch t {
	case TagNull:
		return "null"
	case TagBool:
		return "bool"
	case TagNumber:
		return "number"
	case TagString:
		return "string"
	case TagTime:
		return "time"
	case TagArray:
		return "array"
	case TagMap:
		return "map"
	case TagNaN:
		return "nan"
	default:
		return "unknown"
	}
}

// Value is the closed sum type every record field and every expression
// result is expressed in. Exactly one of the typed fields is meaningful,
// selected by tag.
type Value struct {
	tag Tag
	b   bool
	n   float64
	s   string
	t   time.Time
	arr []Value
	m   map[string]Value
}

// Null is the zero Value and also the canonical null/missing sentinel.
var Null = Value{tag: TagNull}

// NaN is the sentinel produced by division/modulo by zero.
var NaN = Value{tag: TagNaN}

func Bool(b bool) Value           { return Value{tag: TagBool, b: b} }
func Number(n float64) Value      { return Value{tag: TagNumber, n: n} }
func String(s string) Value       { return Value{tag: TagString, s: s} }
func Time(t time.Time) Value      { return Value{tag: TagTime, t: t.UTC()} }
func Array(vs []Value) Value      { return Value{tag: TagArray, arr: vs} }
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{tag: TagMap, m: m}
}

func (v Value) Tag() Tag      { return v.tag }
func (v Value) IsNull() bool  { return v.tag == TagNull }
func (v Value) IsNaN() bool   { return v.tag == TagNaN }
func (v Value) Bool() bool    { return v.b }
func (v Value) Number() float64 { return v.n }
func (v Value) String() string {
	if v.tag == TagString {
		return v.s
	}
	return v.render()
}
func (v Value) Time() time.Time    { return v.t }
func (v Value) Array() []Value     { return v.arr }
func (v Value) Map() map[string]Value { return v.m }

// Truthy implements the engine's single notion of "falsy": null, false,
// zero, empty string, empty array/map are false; everything else is true.
func (v Value) Truthy() bool {
	switch v.tag {
	case TagNull, TagNaN:
		return false
	case TagBool:
		return v.b
	case TagNumber:
		return v.n != 0
	case TagString:
		return v.s != ""
	case TagArray:
		return len(v.arr) > 0
	case TagMap:
		return len(v.m) > 0
	case TagTime:
		return true
	default:
		return false
	}
}

func (v Value) render() string {
	switch v.tag {
	case TagNull:
		return "null"
	case TagNaN:
		return "NaN"
	case TagBool:
		if v.b {
			return "true"
		}
		return "false"
	case TagNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case TagString:
		return v.s
	case TagTime:
		return v.t.Format(time.RFC3339Nano)
	case TagArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.render()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case TagMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ":" + v.m[k].render()
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return fmt.Sprintf("<%v>", v.tag)
	}
}

// Key returns a canonical, collision-resistant string encoding of v
// suitable for use as a hash-map key (e.g. Dimension's rows_by_value
// index). It is tag-prefixed so values of different tags that render
// identically (e.g. the number 1 and the string "1") never collide.
func (v Value) Key() string {
	return v.tag.String() + ":" + v.render()
}

// FromAny converts a decoded, schemaless Go value (as would come off a JSON
// decoder: nil, bool, float64, string, time.Time, []any, map[string]any)
// into a Value. Unrecognized types fall back to their fmt string form
// rather than erroring, per the "type coercion failure never surfaces"
// discipline of spec §7.
func FromAny(a any) Value {
	switch x := a.(type) {
	case nil:
		return Null
	case Value:
		return x
	case bool:
		return Bool(x)
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case uint:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case string:
		return String(x)
	case time.Time:
		return Time(x)
	case []any:
		out := make([]Value, len(x))
		for i, e := range x {
			out[i] = FromAny(e)
		}
		return Array(out)
	case []Value:
		return Array(x)
	case map[string]any:
		out := make(map[string]Value, len(x))
		for k, e := range x {
			out[k] = FromAny(e)
		}
		return Map(out)
	case map[string]Value:
		return Map(x)
	default:
		return String(fmt.Sprintf("%v", x))
	}
}

// ToAny renders a Value back into a plain Go value suitable for JSON
// encoding or display — the inverse of FromAny for the tags it can
// represent losslessly.
func (v Value) ToAny() any {
	switch v.tag {
	case TagNull, TagNaN:
		return nil
	case TagBool:
		return v.b
	case TagNumber:
		return v.n
	case TagString:
		return v.s
	case TagTime:
		return v.t
	case TagArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToAny()
		}
		return out
	case TagMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}

// typeRank orders tags for cross-type comparison, per spec §4.5.5's
// comparator: null sorts below any value; same-type comparisons use
// natural order; mixed types fall back to lexicographic order of their
// stringification. This fallback is Open Question (c)'s resolution.
func typeRank(t Tag) int {
	switch t {
	case TagNull, TagNaN:
		return 0
	case TagBool:
		return 1
	case TagNumber:
		return 2
	case TagString:
		return 3
	case TagTime:
		return 4
	case TagArray:
		return 5
	case TagMap:
		return 6
	default:
		return 7
	}
}

// Compare implements the engine's one true comparator (§4.5.5, §9(c)).
// Returns -1, 0, or 1. Missing fields are passed in as Null by the caller
// (Open Question (a)), so Compare never distinguishes missing from null.
func Compare(a, b Value) int {
	if a.tag == b.tag {
		switch a.tag {
		case TagNull, TagNaN:
			return 0
		case TagBool:
			return boolCompare(a.b, b.b)
		case TagNumber:
			return numberCompare(a.n, b.n)
		case TagString:
			return strings.Compare(a.s, b.s)
		case TagTime:
			if a.t.Before(b.t) {
				return -1
			}
			if a.t.After(b.t) {
				return 1
			}
			return 0
		case TagArray:
			return arrayCompare(a.arr, b.arr)
		case TagMap:
			return strings.Compare(a.render(), b.render())
		}
	}
	// Mixed types: null/NaN always sorts lowest regardless of the other
	// side's type (needed so Null vs. anything is well-ordered, not just
	// Null vs. Null).
	if a.tag == TagNull || a.tag == TagNaN {
		if b.tag == TagNull || b.tag == TagNaN {
			return 0
		}
		return -1
	}
	if b.tag == TagNull || b.tag == TagNaN {
		return 1
	}
	ra, rb := typeRank(a.tag), typeRank(b.tag)
	if ra != rb {
		return strings.Compare(a.render(), b.render())
	}
	return strings.Compare(a.render(), b.render())
}

func boolCompare(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func numberCompare(a, b float64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func arrayCompare(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return numberCompare(float64(len(a)), float64(len(b)))
}

// Equal is Compare(a, b) == 0, except NaN never equals NaN (matching the
// not-a-number sentinel's usual semantics in the expression language).
func Equal(a, b Value) bool {
	if a.tag == TagNaN || b.tag == TagNaN {
		return false
	}
	return Compare(a, b) == 0
}

// ToNumber coerces a Value to a float64 per the coercion table; non-numeric
// values yield math.NaN with ok=false rather than erroring (spec §7).
func ToNumber(v Value) (float64, bool) {
	switch v.tag {
	case TagNumber:
		return v.n, true
	case TagBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case TagString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return math.NaN(), false
		}
		return f, true
	default:
		return math.NaN(), false
	}
}
