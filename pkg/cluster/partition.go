package cluster

import (
	"sort"

	"github.com/ccollard/contigbin/pkg/contig"
)

// Partition maps every contig to a dense bin label. Labels are assigned in
// ascending order of each bin's smallest contig ID, so the same grouping
// always yields the same labels regardless of how it was discovered.
// Immutable once built.
type Partition struct {
	labels  map[contig.ID]int
	numBins int
}

// newPartition relabels an arbitrary assignment densely and wraps it.
func newPartition(raw map[contig.ID]int) *Partition {
	// Smallest member ID per raw label
	reps := make(map[int]contig.ID, len(raw))
	for id, c := range raw {
		if rep, ok := reps[c]; !ok || id < rep {
			reps[c] = id
		}
	}

	order := make([]contig.ID, 0, len(reps))
	for _, rep := range reps {
		order = append(order, rep)
	}
	contig.SortIDs(order)

	byRep := make(map[contig.ID]int, len(order))
	for i, rep := range order {
		byRep[rep] = i
	}

	labels := make(map[contig.ID]int, len(raw))
	for id, c := range raw {
		labels[id] = byRep[reps[c]]
	}

	return &Partition{labels: labels, numBins: len(order)}
}

// Label returns a contig's bin label.
func (p *Partition) Label(id contig.ID) (int, bool) {
	label, ok := p.labels[id]
	return label, ok
}

// Len returns the number of contigs covered.
func (p *Partition) Len() int { return len(p.labels) }

// NumBins returns the number of distinct labels.
func (p *Partition) NumBins() int { return p.numBins }

// Contigs returns every covered contig ID, sorted.
func (p *Partition) Contigs() []contig.ID {
	ids := make([]contig.ID, 0, len(p.labels))
	for id := range p.labels {
		ids = append(ids, id)
	}
	return contig.SortIDs(ids)
}

// Labels returns a copy of the full assignment.
func (p *Partition) Labels() map[contig.ID]int {
	out := make(map[contig.ID]int, len(p.labels))
	for id, c := range p.labels {
		out[id] = c
	}
	return out
}

// Equal reports whether two partitions assign identical labels.
func (p *Partition) Equal(other *Partition) bool {
	if p.Len() != other.Len() {
		return false
	}
	for id, c := range p.labels {
		if oc, ok := other.labels[id]; !ok || oc != c {
			return false
		}
	}
	return true
}

// Bin is a set of contigs sharing one partition label.
type Bin struct {
	Label   int
	Contigs []contig.ID
}

// Assemble groups a partition into bins. Pure and deterministic: bins come
// out sorted by label, members sorted by ID. Singleton bins are reported
// like any other; a genome represented by one contig is a legitimate
// outcome, and dropping it is a downstream decision.
func Assemble(p *Partition) []Bin {
	members := make(map[int][]contig.ID)
	for id, label := range p.labels {
		members[label] = append(members[label], id)
	}

	bins := make([]Bin, 0, len(members))
	for label, ids := range members {
		bins = append(bins, Bin{Label: label, Contigs: contig.SortIDs(ids)})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Label < bins[j].Label })
	return bins
}
