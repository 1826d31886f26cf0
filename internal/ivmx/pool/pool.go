// Package pool implements the scratch-object pools spec §1 calls out
// ("object pools", "SIMD-style... bit-level" helpers): a sync.Pool-backed
// scratch record map that op.Reshape.EffectiveRecord borrows for one call,
// a generic slice pool, and a bitset-backed scratch set tracking which
// groups of a group stage changed since statistics() last read and reset
// it.
//
// Grounded on spec §1 and §5, and on AKJUS-bsc-erigon's go.mod, which
// requires github.com/bits-and-blooms/bitset for this kind of scratch
// membership bookkeeping. The record/delta pools use sync.Pool directly
// (see DESIGN.md: no third-party pooling library in the pack targets
// record-shaped scratch objects).
package pool

import (
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/malbeclabs/lake/internal/ivm/value"
)

// recordMaps pools the map[string]value.Value scratch objects reshape
// builds one effective record into before copying it into a value.Map.
var recordMaps = sync.Pool{
	New: func() any { return make(map[string]value.Value, 8) },
}

// GetRecordMap returns an empty scratch map from the pool.
func GetRecordMap() map[string]value.Value {
	return recordMaps.Get().(map[string]value.Value)
}

// PutRecordMap clears m and returns it to the pool. Callers must not use m
// after calling this — the same rule as any sync.Pool-backed object.
func PutRecordMap(m map[string]value.Value) {
	clear(m)
	recordMaps.Put(m)
}

// SlicePool is a generic sync.Pool wrapper for zero-length, reusable
// slices. No operator in this module draws its delta batches from it.
type SlicePool[T any] struct {
	pool sync.Pool
}

// NewSlicePool builds a pool whose backing slices start at the given
// capacity.
func NewSlicePool[T any](initialCap int) *SlicePool[T] {
	return &SlicePool[T]{
		pool: sync.Pool{
			New: func() any {
				s := make([]T, 0, initialCap)
				return &s
			},
		},
	}
}

// Get returns a zero-length slice with leftover capacity from a prior Put.
func (p *SlicePool[T]) Get() []T {
	s := p.pool.Get().(*[]T)
	return (*s)[:0]
}

// Put truncates s to zero length and returns it to the pool.
func (p *SlicePool[T]) Put(s []T) {
	s = s[:0]
	p.pool.Put(&s)
}

// ChangeSet tracks which of a bounded, pre-enumerated set of scratch slots
// (group states, by their position in the engine's iteration order) were
// touched since the last Reset, for statistics()'s "groups changed" figure.
// Engine.Statistics reads and resets it (through Group.ResetChanged) on
// every call; Add and Remove do not reset it.
type ChangeSet struct {
	bits *bitset.BitSet
}

// NewChangeSet builds a change set over n possible slots.
func NewChangeSet(n uint) *ChangeSet {
	return &ChangeSet{bits: bitset.New(n)}
}

// Mark records that slot i changed.
func (c *ChangeSet) Mark(i uint) {
	if c == nil {
		return
	}
	c.bits.Set(i)
}

// Count returns how many distinct slots were marked.
func (c *ChangeSet) Count() uint {
	if c == nil {
		return 0
	}
	return c.bits.Count()
}

// Reset clears every mark, for reuse across the next engine call.
func (c *ChangeSet) Reset() {
	if c == nil {
		return
	}
	c.bits.ClearAll()
}
