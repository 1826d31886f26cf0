package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strconv"

	"github.com/malbeclabs/lake/internal/ivm/expr"
)

// canonicalWriter accumulates a deterministic, length-prefixed byte stream
// into an io.Writer (always a crypto/sha256 hash in production) — the same
// length-prefixed-field discipline the script-weaver incremental planner
// uses for its plan hash (avoids ambiguity between e.g. "a"+"bc" and
// "ab"+"c").
type canonicalWriter struct {
	w io.Writer
}

func newCanonicalWriter(w io.Writer) *canonicalWriter {
	return &canonicalWriter{w: w}
}

func (w *canonicalWriter) field(b []byte) {
	n := uint64(len(b))
	lenBytes := []byte{
		byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
		byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n),
	}
	w.w.Write(lenBytes)
	w.w.Write(b)
}

func (w *canonicalWriter) str(s string) { w.field([]byte(s)) }
func (w *canonicalWriter) int(n int)    { w.field([]byte(strconv.Itoa(n))) }

// writeNode serializes an expression node deterministically: for map-keyed
// forms (reshape/add_fields/group accumulators) field names are sorted
// before serialization, per spec §9 "ordered stage tags and their argument
// trees with fields sorted".
func (w *canonicalWriter) writeNode(n *expr.Node) {
	if n == nil {
		w.str("nil")
		return
	}
	w.int(int(n.Kind))
	switch n.Kind {
	case expr.KindLiteral:
		w.str(n.Lit.Key())
	case expr.KindField:
		w.str(n.Field)
	case expr.KindVar:
		w.int(int(n.Var))
	case expr.KindOp:
		w.int(int(n.Op))
		w.str(n.Lambda)
		w.int(len(n.Args))
		for _, a := range n.Args {
			w.writeNode(a)
		}
	}
}

func (w *canonicalWriter) writeFieldMap(fields map[string]*expr.Node) {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	w.int(len(names))
	for _, name := range names {
		w.str(name)
		w.writeNode(fields[name])
	}
}

func (w *canonicalWriter) writeStage(s Stage) {
	w.str(s.Kind.String())
	switch s.Kind {
	case StageFilter:
		w.writeNode(s.Predicate)
	case StageReshape, StageAddFields:
		w.writeFieldMap(s.Fields)
	case StageGroup:
		w.writeNode(s.GroupKey)
		accs := append([]AccumulatorArg(nil), s.Accumulators...)
		sort.Slice(accs, func(i, j int) bool { return accs[i].Name < accs[j].Name })
		w.int(len(accs))
		for _, a := range accs {
			w.str(a.Name)
			w.int(int(a.Kind))
			w.writeNode(a.Expr)
		}
	case StageSort:
		w.int(len(s.SortKeys))
		for _, k := range s.SortKeys {
			w.str(k.Field)
			if k.Desc {
				w.str("desc")
			} else {
				w.str("asc")
			}
		}
		w.int(s.TopK)
	case StageLimit, StageSkip:
		w.int(s.K)
	case StageUnwind:
		w.str(s.UnwindField)
	case StageJoin:
		w.str(s.Join.Foreign)
		w.str(s.Join.LocalField)
		w.str(s.Join.ForeignField)
		w.str(s.Join.OutputField)
		w.int(len(s.Join.SubPipeline))
		for _, sub := range s.Join.SubPipeline {
			w.writeStage(sub)
		}
	}
}

// Serialize returns the SHA-256 digest of p's canonical serialization
// (stage tags and argument trees with fields sorted), as spec §9 "Plan
// cache key" requires; the serialized bytes themselves are not kept.
func Serialize(p Pipeline) []byte {
	h := sha256.New()
	w := newCanonicalWriter(h)
	w.int(len(p))
	for _, s := range p {
		w.writeStage(s)
	}
	return h.Sum(nil)
}

// Hash returns the hex-encoded canonical hash of p, used to key the plan
// cache (spec §4.4, §9).
func Hash(p Pipeline) string {
	return hex.EncodeToString(Serialize(p))
}
