// Package rowid implements the tagged row identifier of spec.md §3: a
// physical id (a monotone integer minted by the record store) or a virtual
// id (a deterministic string derived from upstream ids, minted by group /
// unwind / join operators). See spec §9 "Row-id tagging" and P6
// (virtual-id determinism).
package rowid

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// RowID unifies physical and virtual row ids behind one comparable,
// map-keyable value.
type RowID struct {
	physical  int64
	virtual   string
	isVirtual bool
}

// Physical constructs a RowID for a store-assigned physical row.
func Physical(n int64) RowID { return RowID{physical: n} }

// IsVirtual reports whether the id was minted by an operator rather than
// the store.
func (r RowID) IsVirtual() bool { return r.isVirtual }

// PhysicalID returns the underlying physical id. Only meaningful when
// !IsVirtual().
func (r RowID) PhysicalID() int64 { return r.physical }

// String renders the id in a form stable enough for map keys and logs.
func (r RowID) String() string {
	if r.isVirtual {
		return r.virtual
	}
	return strconv.FormatInt(r.physical, 10)
}

// Virtual mints a deterministic virtual row id from a derivation recipe:
// the minting stage's index, a short discriminator naming the operator
// kind, and an ordered list of recipe components (e.g. the group key's
// surrogate, or the upstream row id + element index for unwind).
//
// Determinism (P6): the same stageIndex, discriminator, and components
// always yield the same RowID, across repeated compilation of the same
// pipeline fed the same live-set — mirroring the teacher's
// NaturalKey.ToSurrogate (type-tagged, length-delimited encoding before
// hashing) in indexer/pkg/clickhouse/dataset/pk.go.
func Virtual(stageIndex int, discriminator string, components ...string) RowID {
	h := fnv.New64a()
	write := func(s string) {
		fmt.Fprintf(h, "%d:%s:", len(s), s)
	}
	write(strconv.Itoa(stageIndex))
	write(discriminator)
	for _, c := range components {
		write(c)
	}
	sum := h.Sum64()
	return RowID{
		isVirtual: true,
		virtual:   discriminator + "#" + strconv.FormatUint(sum, 36),
	}
}

// Recipe joins heterogeneous components into the canonical component
// string used by Virtual, so callers don't need to pick their own
// separator (and risk collisions like "a"+"bc" == "ab"+"c").
func Recipe(parts ...string) string {
	return strings.Join(parts, "\x1f")
}
