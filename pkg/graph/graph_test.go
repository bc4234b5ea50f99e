package graph

import (
	"errors"
	"testing"

	"github.com/ccollard/contigbin/pkg/contig"
)

func TestSimilarity_SetEdgeSymmetric(t *testing.T) {
	g := New()
	if err := g.SetEdge("a", "b", 0.9); err != nil {
		t.Fatalf("SetEdge failed: %v", err)
	}

	wAB, okAB := g.Weight("a", "b")
	wBA, okBA := g.Weight("b", "a")
	if !okAB || !okBA {
		t.Fatal("Edge should be visible from both endpoints")
	}
	if wAB != wBA {
		t.Errorf("Weight(a,b)=%v != Weight(b,a)=%v", wAB, wBA)
	}
	if g.NumEdges() != 1 {
		t.Errorf("NumEdges = %d, want 1", g.NumEdges())
	}
}

func TestSimilarity_RejectsSelfLoop(t *testing.T) {
	g := New()
	if err := g.SetEdge("a", "a", 1.0); !errors.Is(err, contig.ErrSelfPair) {
		t.Errorf("Expected ErrSelfPair, got %v", err)
	}
}

func TestSimilarity_IsolatedNodes(t *testing.T) {
	g := New()
	g.AddNode("lonely")
	g.SetEdge("a", "b", 0.9)

	if !g.HasNode("lonely") {
		t.Error("Isolated node must stay in the node set")
	}
	if g.NumIsolated() != 1 {
		t.Errorf("NumIsolated = %d, want 1", g.NumIsolated())
	}
	if g.Degree("lonely") != 0 {
		t.Errorf("Degree(lonely) = %d, want 0", g.Degree("lonely"))
	}
}

func TestSimilarity_EdgesSortedAndUnique(t *testing.T) {
	g := New()
	g.SetEdge("c", "a", 0.5)
	g.SetEdge("b", "a", 0.6)
	g.SetEdge("c", "b", 0.7)

	edges := g.Edges()
	if len(edges) != 3 {
		t.Fatalf("Expected 3 edges, got %d", len(edges))
	}
	want := []Edge{{"a", "b", 0.6}, {"a", "c", 0.5}, {"b", "c", 0.7}}
	for i, e := range edges {
		if e != want[i] {
			t.Errorf("Edge[%d] = %v, want %v", i, e, want[i])
		}
	}
}

func TestSimilarity_Subgraph(t *testing.T) {
	g := New()
	g.SetEdge("a", "b", 0.9)
	g.SetEdge("b", "c", 0.8)
	g.SetEdge("c", "d", 0.7)
	g.AddNode("e")

	sub := g.Subgraph([]contig.ID{"a", "b", "c", "zzz"})

	if sub.NumNodes() != 3 {
		t.Errorf("Subgraph nodes = %d, want 3", sub.NumNodes())
	}
	if sub.NumEdges() != 2 {
		t.Errorf("Subgraph edges = %d, want 2", sub.NumEdges())
	}
	if _, ok := sub.Weight("c", "d"); ok {
		t.Error("Subgraph must not keep edges leaving the member set")
	}

	// Original untouched
	if g.NumEdges() != 3 || g.NumNodes() != 5 {
		t.Error("Subgraph must not mutate the source graph")
	}
}

func TestSimilarity_ForEachNeighbor(t *testing.T) {
	g := New()
	g.SetEdge("a", "b", 0.9)
	g.SetEdge("a", "c", 0.8)

	sum := 0.0
	seen := make(map[contig.ID]bool)
	g.ForEachNeighbor("a", func(other contig.ID, w float64) {
		seen[other] = true
		sum += w
	})

	if !seen["b"] || !seen["c"] || len(seen) != 2 {
		t.Errorf("Neighbors seen = %v", seen)
	}
	if sum != 1.7 {
		t.Errorf("Weight sum = %v, want 1.7", sum)
	}
}
