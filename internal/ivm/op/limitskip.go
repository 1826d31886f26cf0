package op

import (
	"github.com/malbeclabs/lake/internal/ivm/rowid"
	"github.com/malbeclabs/lake/internal/ivm/value"
)

// removeFromOrder drops row from an arrival-ordered slice, preserving the
// relative order of the remainder. Shared by Limit and Skip, whose state
// per spec §4.5.6 is "a running pass-through counter" tracked against
// upstream arrival order so a remove can promote the next eligible row.
func removeFromOrder(order []rowid.RowID, row rowid.RowID) []rowid.RowID {
	for i, r := range order {
		if r == row {
			return append(order[:i:i], order[i+1:]...)
		}
	}
	return order
}

// Limit implements spec §4.5.6: forwards the first K upstream rows by
// arrival order, dropping the rest. On remove of a forwarded row, the
// earliest pending (not-yet-forwarded) row is promoted and forwarded.
type Limit struct {
	Up        Operator
	K         int
	order     []rowid.RowID
	forwarded map[string]bool
}

func NewLimit(up Operator, k int) *Limit {
	return &Limit{Up: up, K: k, forwarded: make(map[string]bool)}
}

func (l *Limit) OnAdd(d Delta, sv StoreView) []Delta {
	l.order = append(l.order, d.Row)
	if len(l.forwarded) < l.K {
		l.forwarded[d.Row.String()] = true
		return []Delta{AddDelta(d.Row)}
	}
	return nil
}

func (l *Limit) OnRemove(d Delta, sv StoreView) []Delta {
	key := d.Row.String()
	l.order = removeFromOrder(l.order, d.Row)
	wasForwarded := l.forwarded[key]
	delete(l.forwarded, key)
	if !wasForwarded {
		return nil
	}
	out := []Delta{RemoveDelta(d.Row)}
	for _, r := range l.order {
		if !l.forwarded[r.String()] {
			l.forwarded[r.String()] = true
			out = append(out, AddDelta(r))
			break
		}
	}
	return out
}

func (l *Limit) Snapshot(sv StoreView) []rowid.RowID {
	out := make([]rowid.RowID, 0, len(l.forwarded))
	for _, r := range l.order {
		if l.forwarded[r.String()] {
			out = append(out, r)
		}
	}
	return out
}

func (l *Limit) EffectiveRecord(row rowid.RowID, sv StoreView) (value.Value, bool) {
	return upstreamEffectiveRecord(l.Up, row, sv)
}

// Skip implements spec §4.5.6: symmetric to Limit at the head — drops the
// first K upstream rows by arrival order, forwards the rest. On remove of
// a dropped row, the earliest forwarded row falls into the skip window and
// is withdrawn.
type Skip struct {
	Up      Operator
	K       int
	order   []rowid.RowID
	skipped map[string]bool
}

func NewSkip(up Operator, k int) *Skip {
	return &Skip{Up: up, K: k, skipped: make(map[string]bool)}
}

func (s *Skip) OnAdd(d Delta, sv StoreView) []Delta {
	s.order = append(s.order, d.Row)
	if len(s.skipped) < s.K {
		s.skipped[d.Row.String()] = true
		return nil
	}
	return []Delta{AddDelta(d.Row)}
}

func (s *Skip) OnRemove(d Delta, sv StoreView) []Delta {
	key := d.Row.String()
	before := len(s.order)
	s.order = removeFromOrder(s.order, d.Row)
	if len(s.order) == before {
		return nil // never seen (or already removed)
	}
	wasSkipped := s.skipped[key]
	delete(s.skipped, key)
	if !wasSkipped {
		return []Delta{RemoveDelta(d.Row)}
	}
	for _, r := range s.order {
		rk := r.String()
		if !s.skipped[rk] {
			s.skipped[rk] = true
			return []Delta{RemoveDelta(r)}
		}
	}
	return nil
}

func (s *Skip) Snapshot(sv StoreView) []rowid.RowID {
	out := make([]rowid.RowID, 0, len(s.order))
	for _, r := range s.order {
		if !s.skipped[r.String()] {
			out = append(out, r)
		}
	}
	return out
}

func (s *Skip) EffectiveRecord(row rowid.RowID, sv StoreView) (value.Value, bool) {
	return upstreamEffectiveRecord(s.Up, row, sv)
}
