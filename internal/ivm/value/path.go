package value

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// inlineSegments is the number of dotted-path segments the field accessor
// walks without allocating a segment slice, per spec §4.3 ("walks ≤ 4
// segments inline and falls back to a loop past that").
const inlineSegments = 4

// Accessor is a compiled field-access closure: given a record (as a Value
// of TagMap), walk the dotted path and return the field's value, or Null
// if any segment is missing — missing and null are never distinguished
// (Open Question (a)).
type Accessor struct {
	path     string
	segments []string
}

// accessorCache interns compiled accessors by their canonical dotted path
// so that repeated compilation of the same predicate/projection across
// many pipelines shares one Accessor, per spec §4.3's "field-access
// interning".
var accessorCache, _ = lru.New[string, *Accessor](4096)

// Compile returns the interned Accessor for path, compiling and caching it
// on first use.
func Compile(path string) *Accessor {
	if a, ok := accessorCache.Get(path); ok {
		return a
	}
	a := &Accessor{path: path, segments: strings.Split(path, ".")}
	accessorCache.Add(path, a)
	return a
}

// Path returns the accessor's canonical dotted path.
func (a *Accessor) Path() string { return a.path }

// Get walks the record along the accessor's path. A record must be a
// TagMap value (or Null, in which case Get always yields Null).
func (a *Accessor) Get(record Value) Value {
	cur := record
	segs := a.segments
	// First up to inlineSegments walk without any extra allocation beyond
	// the map lookup itself.
	n := len(segs)
	if n > inlineSegments {
		n = inlineSegments
	}
	i := 0
	for ; i < n; i++ {
		if cur.tag != TagMap {
			return Null
		}
		next, ok := cur.m[segs[i]]
		if !ok {
			return Null
		}
		cur = next
	}
	for ; i < len(segs); i++ {
		if cur.tag != TagMap {
			return Null
		}
		next, ok := cur.m[segs[i]]
		if !ok {
			return Null
		}
		cur = next
	}
	return cur
}

// Set returns a new record with the accessor's path set to v, creating
// intermediate maps as needed. The input record is never mutated in
// place — reshape/add-fields operators rely on this to keep the store's
// records immutable once stored (spec §3 "Immutable once stored").
func (a *Accessor) Set(record Value, v Value) Value {
	return setPath(record, a.segments, v)
}

func setPath(record Value, segs []string, v Value) Value {
	if len(segs) == 0 {
		return v
	}
	var src map[string]Value
	if record.tag == TagMap {
		src = record.m
	}
	out := make(map[string]Value, len(src)+1)
	for k, val := range src {
		out[k] = val
	}
	if len(segs) == 1 {
		out[segs[0]] = v
	} else {
		out[segs[0]] = setPath(out[segs[0]], segs[1:], v)
	}
	return Map(out)
}

// Exists reports whether the accessor's full path resolves to a present
// (non-missing) field. Unlike Get, it distinguishes an explicit null
// value from a missing one, for the `exists` predicate operator.
func (a *Accessor) Exists(record Value) bool {
	cur := record
	for _, seg := range a.segments {
		if cur.tag != TagMap {
			return false
		}
		next, ok := cur.m[seg]
		if !ok {
			return false
		}
		cur = next
	}
	return true
}
