// Package neighbor selects the bounded candidate set each contig is
// compared against. The pre-filter works on coarse per-contig coverage
// centroids, so the expensive fragment-level scoring is only ever invoked
// on at most max-neighbors candidates per contig.
package neighbor

import (
	"container/heap"
	"math"
	"sort"

	"github.com/ccollard/contigbin/pkg/contig"
	"github.com/ccollard/contigbin/pkg/features"
)

// candidate is one entry in a contig's bounded neighbor heap.
type candidate struct {
	id   contig.ID
	dist float64
}

// maxHeap keeps the k closest candidates by evicting the furthest one.
// Ties break toward the lexicographically smaller ID so selection is
// deterministic regardless of input order.
type maxHeap []candidate

func (h maxHeap) Len() int { return len(h) }
func (h maxHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist > h[j].dist
	}
	return h[i].id > h[j].id
}
func (h maxHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)   { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Select returns the deduplicated candidate pairs for an assembly: for
// each contig, its k nearest other contigs by cosine distance between
// coverage centroids. A pair is proposed when either endpoint selects the
// other. The result is sorted, so downstream scoring order is stable.
func Select(contigs []contig.Contig, store features.Store, k int) ([]contig.Pair, error) {
	if k < 1 || len(contigs) < 2 {
		return nil, nil
	}

	// Fixed processing order regardless of caller's slice order
	ordered := make([]contig.Contig, len(contigs))
	copy(ordered, contigs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	centroids := make([]features.Vector, len(ordered))
	for i, c := range ordered {
		v, err := store.CoverageCentroid(c.ID)
		if err != nil {
			return nil, err
		}
		centroids[i] = v
	}

	seen := make(map[contig.Pair]struct{})
	for i, c := range ordered {
		h := make(maxHeap, 0, k+1)
		for j, other := range ordered {
			if i == j {
				continue
			}
			d, err := cosineDistance(centroids[i], centroids[j])
			if err != nil {
				return nil, err
			}
			heap.Push(&h, candidate{id: other.ID, dist: d})
			if h.Len() > k {
				heap.Pop(&h)
			}
		}

		for _, cand := range h {
			p, err := contig.NewPair(c.ID, cand.id)
			if err != nil {
				return nil, err
			}
			seen[p] = struct{}{}
		}
	}

	pairs := make([]contig.Pair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs, nil
}

// cosineDistance is 1 - cosine similarity, in [0,2].
func cosineDistance(a, b features.Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, features.ErrShapeMismatch
	}

	dotProd := 0.0
	normA := 0.0
	normB := 0.0
	for i := 0; i < len(a); i++ {
		dotProd += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		// A zero centroid carries no proximity signal; treat as maximally far
		return 2, nil
	}
	return 1 - dotProd/(math.Sqrt(normA)*math.Sqrt(normB)), nil
}
