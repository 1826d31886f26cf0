package expr

import (
	"container/heap"
	"sort"

	"github.com/malbeclabs/lake/internal/ivm/value"
)

// AccKind is the closed enumeration of accumulators spec §6 lists ("sum,
// avg, min, max, count, first, last, push, add-to-set"), usable inside
// group or as an array-reduce expression.
type AccKind int

const (
	AccSum AccKind = iota
	AccAvg
	AccCount
	AccMin
	AccMax
	AccFirst
	AccLast
	AccPush
	AccAddToSet
)

// Register is a reversible accumulator register: spec §4.5.4 and P4
// require that Remove(Add(state, v), v) restores the prior state exactly,
// for any interleaving of adds/removes (within the multiset the register
// has actually seen).
type Register interface {
	Add(v value.Value)
	Remove(v value.Value)
	Value() value.Value
}

// NewRegister constructs the Register for the given accumulator kind.
func NewRegister(kind AccKind) Register {
	switch kind {
	case AccSum:
		return &sumReg{}
	case AccAvg:
		return &avgReg{}
	case AccCount:
		return &countReg{}
	case AccMin:
		return newExtremumReg(false)
	case AccMax:
		return newExtremumReg(true)
	case AccFirst:
		return newOrderedReg(false)
	case AccLast:
		return newOrderedReg(true)
	case AccPush:
		return newMultisetReg(false)
	case AccAddToSet:
		return newMultisetReg(true)
	default:
		return &sumReg{}
	}
}

// --- sum / avg / count: scalar running state, trivially reversible. ---

type sumReg struct{ sum float64 }

func (r *sumReg) Add(v value.Value) {
	if n, ok := value.ToNumber(v); ok {
		r.sum += n
	}
}
func (r *sumReg) Remove(v value.Value) {
	if n, ok := value.ToNumber(v); ok {
		r.sum -= n
	}
}
func (r *sumReg) Value() value.Value { return value.Number(r.sum) }

type avgReg struct {
	sum   float64
	count int
}

func (r *avgReg) Add(v value.Value) {
	if n, ok := value.ToNumber(v); ok {
		r.sum += n
		r.count++
	}
}
func (r *avgReg) Remove(v value.Value) {
	if n, ok := value.ToNumber(v); ok {
		r.sum -= n
		r.count--
	}
}
func (r *avgReg) Value() value.Value {
	if r.count == 0 {
		return value.Null
	}
	return value.Number(r.sum / float64(r.count))
}

type countReg struct{ n int }

func (r *countReg) Add(value.Value)    { r.n++ }
func (r *countReg) Remove(value.Value) { r.n-- }
func (r *countReg) Value() value.Value { return value.Number(float64(r.n)) }

// --- min / max: a lazily-cleaned heap over the live multiset of values,
// per spec §9 ("Running min/max need auxiliary structures (multiset /
// heap of live values), not only a scalar, so that removal of a previous
// min or max can restore the correct new extremum"). ---

type valueHeap struct {
	items []value.Value
	max   bool
}

func (h *valueHeap) Len() int { return len(h.items) }
func (h *valueHeap) Less(i, j int) bool {
	c := value.Compare(h.items[i], h.items[j])
	if h.max {
		return c > 0
	}
	return c < 0
}
func (h *valueHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *valueHeap) Push(x interface{}) { h.items = append(h.items, x.(value.Value)) }
func (h *valueHeap) Pop() interface{} {
	n := len(h.items)
	v := h.items[n-1]
	h.items = h.items[:n-1]
	return v
}

type extremumReg struct {
	h      *valueHeap
	counts map[string]int
}

func newExtremumReg(max bool) *extremumReg {
	return &extremumReg{h: &valueHeap{max: max}, counts: make(map[string]int)}
}

func (r *extremumReg) Add(v value.Value) {
	key := v.Key()
	if r.counts[key] == 0 {
		heap.Push(r.h, v)
	}
	r.counts[key]++
}

func (r *extremumReg) Remove(v value.Value) {
	key := v.Key()
	if r.counts[key] <= 0 {
		return
	}
	r.counts[key]--
}

func (r *extremumReg) Value() value.Value {
	for r.h.Len() > 0 {
		top := r.h.items[0]
		if r.counts[top.Key()] > 0 {
			return top
		}
		heap.Pop(r.h)
	}
	return value.Null
}

// --- first / last: ordered by insertion sequence, reversible the same
// way as min/max but ordering on a monotone sequence number instead of
// the value itself. ---

type seqValue struct {
	seq int64
	v   value.Value
}

type orderedReg struct {
	last bool
	seq  int64
	live map[int64]seqValue
	ord  []int64 // insertion order of sequence numbers, ascending
}

func newOrderedReg(last bool) *orderedReg {
	return &orderedReg{last: last, live: make(map[int64]seqValue)}
}

func (r *orderedReg) Add(v value.Value) {
	r.seq++
	r.live[r.seq] = seqValue{seq: r.seq, v: v}
	r.ord = append(r.ord, r.seq)
}

func (r *orderedReg) Remove(v value.Value) {
	// Remove the earliest live occurrence whose value matches, mirroring
	// how Group's on_remove feeds back the exact record that was added.
	for _, seq := range r.ord {
		if sv, ok := r.live[seq]; ok && value.Equal(sv.v, v) {
			delete(r.live, seq)
			return
		}
	}
}

func (r *orderedReg) Value() value.Value {
	var found *seqValue
	for _, seq := range r.ord {
		sv, ok := r.live[seq]
		if !ok {
			continue
		}
		if found == nil {
			found = &sv
		} else if r.last {
			if sv.seq > found.seq {
				found = &sv
			}
		}
	}
	if found == nil {
		return value.Null
	}
	return found.v
}

// --- push / add-to-set: the full (deduplicated, for add-to-set) live
// multiset, emitted in insertion order. ---

type multisetReg struct {
	dedupe bool
	seq    int64
	live   map[int64]seqValue
}

func newMultisetReg(dedupe bool) *multisetReg {
	return &multisetReg{dedupe: dedupe, live: make(map[int64]seqValue)}
}

func (r *multisetReg) Add(v value.Value) {
	r.seq++
	r.live[r.seq] = seqValue{seq: r.seq, v: v}
}

func (r *multisetReg) Remove(v value.Value) {
	var bestSeq int64 = -1
	for seq, sv := range r.live {
		if value.Equal(sv.v, v) {
			if bestSeq == -1 || seq < bestSeq {
				bestSeq = seq
			}
		}
	}
	if bestSeq != -1 {
		delete(r.live, bestSeq)
	}
}

func (r *multisetReg) Value() value.Value {
	seqs := make([]int64, 0, len(r.live))
	for seq := range r.live {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	out := make([]value.Value, 0, len(seqs))
	var seen []value.Value
	for _, seq := range seqs {
		v := r.live[seq].v
		if r.dedupe {
			if setContains(seen, v) {
				continue
			}
			seen = append(seen, v)
		}
		out = append(out, v)
	}
	return value.Array(out)
}
