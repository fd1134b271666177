// Package rankedset provides a deterministic score-ranked container used
// to order feature importances (SHAP values are not ordered). It is a trimmed
// adaptation of okian-cuju's internal/adapters/repository treap
// (treapstore.go): same randomized-BST insert/rotate structure and the
// same (score DESC, name ASC) comparator for deterministic tie-breaking,
// but with the fixed-point score scaling, snapshotting, and background
// goroutines removed — this package is built fresh per report and read
// once, so none of that machinery earns its keep here. Priorities are
// derived deterministically from the name rather than randomly, so two
// runs over the same named entries build the identical tree shape; this
// doesn't change traversal order (that's driven by the comparator, not the
// priorities) but makes the internal shape itself reproducible for anyone
// diffing debug output.
package rankedset

import "hash/fnv"

// Entry is one named, scored item.
type Entry struct {
	Name  string
	Score float64
}

type node struct {
	entry Entry
	prio  uint64
	left  *node
	right *node
}

// Set is an insert-only, score-ranked collection.
type Set struct {
	root *node
}

// New returns an empty Set.
func New() *Set { return &Set{} }

func less(a, b Entry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score // higher score ranks earlier
	}
	return a.Name < b.Name // deterministic tie-break
}

func priority(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	return y
}

func insert(n *node, e Entry) *node {
	if n == nil {
		return &node{entry: e, prio: priority(e.Name)}
	}
	if less(e, n.entry) {
		n.left = insert(n.left, e)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, e)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	return n
}

// Insert adds e to the set.
func (s *Set) Insert(e Entry) { s.root = insert(s.root, e) }

// Ordered returns every entry in rank order (highest score first, ties
// broken by name ascending).
func (s *Set) Ordered() []Entry {
	out := make([]Entry, 0)
	collect(s.root, &out)
	return out
}

func collect(n *node, out *[]Entry) {
	if n == nil {
		return
	}
	collect(n.left, out)
	*out = append(*out, n.entry)
	collect(n.right, out)
}
