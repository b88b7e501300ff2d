package plan

import (
	"encoding/binary"
	"io"

	"github.com/spaolacci/murmur3"
)

// Fingerprint returns a 128-bit murmur3 digest over the same attributes
// Equal compares: kinds, properties, and tree shape. Equal trees always
// share a fingerprint, which makes fingerprints a cheap seen-set key when
// the rewriter watches for rule oscillation.
func Fingerprint(n *Node) [16]byte {
	h := murmur3.New128()
	hashNode(h, n)

	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

func hashNode(w io.Writer, n *Node) {
	if n == nil {
		w.Write([]byte{0xff})
		return
	}

	w.Write([]byte{byte(n.Kind)})

	switch p := n.Props.(type) {
	case ScanProps:
		hashString(w, p.Table)
		for _, c := range p.Columns {
			hashString(w, c)
		}
	case FilterProps:
		hashString(w, p.Condition)
	case ProjectProps:
		for _, c := range p.Columns {
			hashString(w, c)
		}
	case JoinProps:
		hashString(w, p.Type)
		hashString(w, p.Condition)
		hashString(w, p.Method)
	case AggregateProps:
		hashString(w, p.GroupBy)
	case SortProps:
		hashString(w, p.OrderBy)
	case LimitProps:
		hashInt(w, p.Limit)
	}

	w.Write([]byte{0xfe})
	for _, child := range n.Children {
		hashNode(w, child)
	}
	w.Write([]byte{0xfd})
}

// hashString is length-prefixed so "ab"+"c" and "a"+"bc" digest apart.
func hashString(w io.Writer, s string) {
	hashInt(w, int64(len(s)))
	io.WriteString(w, s)
}

func hashInt(w io.Writer, v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	w.Write(buf[:])
}
