package contig

import "sort"

// ID uniquely identifies a contig within one assembly.
type ID string

// Contig describes one assembled sequence and its fragmentation.
// Contigs are immutable once the assembly is loaded.
type Contig struct {
	ID       ID
	Length   int // base pairs
	NumFrags int // fragments produced by the upstream fragmenter
}

// FragmentKey identifies one scoring unit within a contig. Fragments are
// scoring units only; they never appear in binning output.
type FragmentKey struct {
	Contig ID
	Index  int
}

// Pair is an unordered pair of distinct contigs proposed for comparison.
// The invariant A < B holds for every Pair built through NewPair, so a
// pair and its mirror compare equal as map keys.
type Pair struct {
	A, B ID
}

// NewPair returns the normalized pair for two contig IDs.
func NewPair(a, b ID) (Pair, error) {
	if a == b {
		return Pair{}, &InputError{Op: "NewPair", Contig: a, Cause: ErrSelfPair}
	}
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}, nil
}

// Other returns the pair's endpoint that is not id.
func (p Pair) Other(id ID) ID {
	if p.A == id {
		return p.B
	}
	return p.A
}

// Validate checks an assembly at the engine boundary. Duplicated IDs,
// empty IDs, non-positive lengths and zero-fragment contigs are rejected
// here rather than surfacing later as scoring anomalies.
func Validate(contigs []Contig) error {
	seen := make(map[ID]struct{}, len(contigs))
	for _, c := range contigs {
		if c.ID == "" {
			return &InputError{Op: "Validate", Cause: ErrEmptyID}
		}
		if _, dup := seen[c.ID]; dup {
			return &InputError{Op: "Validate", Contig: c.ID, Cause: ErrDuplicateID}
		}
		seen[c.ID] = struct{}{}
		if c.Length <= 0 {
			return &InputError{Op: "Validate", Contig: c.ID, Cause: ErrBadLength}
		}
		if c.NumFrags < 1 {
			return &InputError{Op: "Validate", Contig: c.ID, Cause: ErrNoFragments}
		}
	}
	return nil
}

// SortIDs sorts contig IDs in place and returns the slice.
func SortIDs(ids []ID) []ID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
