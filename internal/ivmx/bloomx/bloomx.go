// Package bloomx implements the optional, off-by-default bloom-filter
// prefilter for the Filter operator's dimension-probe hint (spec §9 open
// question (b)): a hint value that the filter already has to hash into a
// comparison is also fed through a bloom filter so a clearly-absent value
// can short-circuit before the Dimension's value→row-ids map lookup. It must
// never change the result of a probe, only skip work — property tests run
// with it disabled, per spec §9(b).
//
// Grounded on AKJUS-bsc-erigon's go.mod, which requires
// github.com/holiman/bloomfilter/v2 for this exact kind of membership
// prefilter ahead of a more expensive index lookup.
package bloomx

import (
	"hash"
	"hash/fnv"

	"github.com/holiman/bloomfilter/v2"

	"github.com/malbeclabs/lake/internal/ivm/value"
)

// Prefilter wraps a bloom filter tracking which value keys have been
// added to a dimension, so Dimension.RowsEqual/RowsIn (which
// Filter.probeSnapshot calls) can skip the map lookup for a literal it can
// prove was never indexed.
type Prefilter struct {
	f *bloomfilter.Filter
}

// New builds a prefilter sized for maxElements entries at the given false
// positive rate. Returns nil (meaning "disabled") if maxElements is zero,
// so callers can unconditionally pass a config value without a branch.
func New(maxElements uint64, falsePositiveRate float64) *Prefilter {
	if maxElements == 0 {
		return nil
	}
	f, err := bloomfilter.NewOptimal(maxElements, falsePositiveRate)
	if err != nil {
		return nil
	}
	return &Prefilter{f: f}
}

// hashOf writes v's canonical key into an FNV-64a hasher, the same
// algorithm rowid.Virtual uses internally, so this package's membership
// test is computed consistently with the rest of the ivm module.
func hashOf(v value.Value) hash.Hash64 {
	h := fnv.New64a()
	h.Write([]byte(v.Key()))
	return h
}

// Add records that v was indexed under some dimension value.
func (p *Prefilter) Add(v value.Value) {
	if p == nil {
		return
	}
	p.f.Add(hashOf(v))
}

// MaybeContains reports whether v might have been added. A false result
// is authoritative (v was never added); a true result is not — the
// caller must still consult the real index.
func (p *Prefilter) MaybeContains(v value.Value) bool {
	if p == nil {
		return true
	}
	return p.f.Contains(hashOf(v))
}
