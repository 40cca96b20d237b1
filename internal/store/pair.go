package store

// Pair is the canonical, order-independent key of a private room:
// the two participant ids sorted lexicographically.
type Pair [2]ID

// NewPair sorts a and b into a Pair.
func NewPair(a, b ID) Pair {
	if b.Hex() < a.Hex() {
		a, b = b, a
	}
	return Pair{a, b}
}

// Key renders the pair as the unique index value stored on private rooms.
func (p Pair) Key() string {
	return p[0].Hex() + ":" + p[1].Hex()
}

// IDs returns the pair as a slice, in canonical order.
func (p Pair) IDs() []ID {
	return []ID{p[0], p[1]}
}
