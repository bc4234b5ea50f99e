// Package graph holds the contig similarity graph: undirected, weighted,
// built once by the neighbor graph builder and read-only afterwards.
package graph

import (
	"sort"

	"github.com/ccollard/contigbin/pkg/contig"
)

// Edge is one retained similarity edge with its combined hit fraction.
type Edge struct {
	A, B   contig.ID
	Weight float64
}

// Similarity is an undirected weighted graph over contig IDs. No self
// loops. Isolated contigs stay in the node set; they must still surface as
// singleton bins downstream.
type Similarity struct {
	adj map[contig.ID]map[contig.ID]float64
}

// New creates an empty similarity graph.
func New() *Similarity {
	return &Similarity{adj: make(map[contig.ID]map[contig.ID]float64)}
}

// AddNode ensures a contig is present, possibly with no edges.
func (g *Similarity) AddNode(id contig.ID) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = make(map[contig.ID]float64)
	}
}

// SetEdge stores an undirected edge. Self edges are rejected.
func (g *Similarity) SetEdge(a, b contig.ID, weight float64) error {
	if a == b {
		return &contig.InputError{Op: "SetEdge", Contig: a, Cause: contig.ErrSelfPair}
	}
	g.AddNode(a)
	g.AddNode(b)
	g.adj[a][b] = weight
	g.adj[b][a] = weight
	return nil
}

// HasNode reports whether a contig is in the graph.
func (g *Similarity) HasNode(id contig.ID) bool {
	_, ok := g.adj[id]
	return ok
}

// Weight returns an edge's weight and whether the edge exists.
func (g *Similarity) Weight(a, b contig.ID) (float64, bool) {
	w, ok := g.adj[a][b]
	return w, ok
}

// Degree returns the number of edges incident to a contig.
func (g *Similarity) Degree(id contig.ID) int {
	return len(g.adj[id])
}

// ForEachNeighbor calls fn for every neighbor of id with the edge weight.
// Iteration order is unspecified; callers aggregating results must do so
// by identity, not order.
func (g *Similarity) ForEachNeighbor(id contig.ID, fn func(other contig.ID, weight float64)) {
	for other, w := range g.adj[id] {
		fn(other, w)
	}
}

// Nodes returns all contig IDs, sorted.
func (g *Similarity) Nodes() []contig.ID {
	ids := make([]contig.ID, 0, len(g.adj))
	for id := range g.adj {
		ids = append(ids, id)
	}
	return contig.SortIDs(ids)
}

// Edges returns every edge exactly once, sorted by endpoints.
func (g *Similarity) Edges() []Edge {
	edges := make([]Edge, 0)
	for a, neighbors := range g.adj {
		for b, w := range neighbors {
			if a < b {
				edges = append(edges, Edge{A: a, B: b, Weight: w})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges
}

// NumNodes returns the node count.
func (g *Similarity) NumNodes() int { return len(g.adj) }

// NumEdges returns the undirected edge count.
func (g *Similarity) NumEdges() int {
	n := 0
	for _, neighbors := range g.adj {
		n += len(neighbors)
	}
	return n / 2
}

// NumIsolated returns the number of contigs with no edges.
func (g *Similarity) NumIsolated() int {
	n := 0
	for _, neighbors := range g.adj {
		if len(neighbors) == 0 {
			n++
		}
	}
	return n
}

// Subgraph returns the induced subgraph on members. Unknown members are
// ignored.
func (g *Similarity) Subgraph(members []contig.ID) *Similarity {
	keep := make(map[contig.ID]struct{}, len(members))
	for _, id := range members {
		if g.HasNode(id) {
			keep[id] = struct{}{}
		}
	}

	sub := New()
	for id := range keep {
		sub.AddNode(id)
		for other, w := range g.adj[id] {
			if _, ok := keep[other]; ok && id < other {
				_ = sub.SetEdge(id, other, w)
			}
		}
	}
	return sub
}
