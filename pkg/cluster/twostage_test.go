package cluster

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ccollard/contigbin/pkg/contig"
	"github.com/ccollard/contigbin/pkg/graph"
)

func defaultOptions() Options {
	return Options{
		Gamma1:        0.3,
		Gamma2:        0.75,
		Seed:          42,
		MaxIterations: 100,
		Workers:       4,
	}
}

// twoGroupGraph is the canonical scenario: edges A-B, A-C, B-C and D-E at
// weight 0.95; inter-group pairs never survived thresholding.
func twoGroupGraph() *graph.Similarity {
	g := graph.New()
	g.SetEdge("A", "B", 0.95)
	g.SetEdge("A", "C", 0.95)
	g.SetEdge("B", "C", 0.95)
	g.SetEdge("D", "E", 0.95)
	return g
}

func binSets(p *Partition) map[string]bool {
	out := make(map[string]bool)
	for _, b := range Assemble(p) {
		key := ""
		for _, id := range b.Contigs {
			key += string(id)
		}
		out[key] = true
	}
	return out
}

func TestPartition_TwoGroupScenario(t *testing.T) {
	p := NewPartitioner(defaultOptions(), nil, nil)

	res, err := p.Partition(context.Background(), twoGroupGraph())
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}

	if res.Partition.NumBins() != 2 {
		t.Fatalf("Expected 2 bins, got %d: %v", res.Partition.NumBins(), res.Partition.Labels())
	}
	sets := binSets(res.Partition)
	if !sets["ABC"] || !sets["DE"] {
		t.Errorf("Expected bins {A,B,C} and {D,E}, got %v", sets)
	}
	if res.Degraded {
		t.Error("Small scenario should converge inside the budget")
	}
}

func TestPartition_IsolatedContigBecomesSingleton(t *testing.T) {
	g := twoGroupGraph()
	g.AddNode("F")

	res, err := NewPartitioner(defaultOptions(), nil, nil).Partition(context.Background(), g)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}

	if _, ok := res.Partition.Label("F"); !ok {
		t.Fatal("Isolated contig F must be covered by the partition")
	}
	if !binSets(res.Partition)["F"] {
		t.Errorf("Expected singleton bin {F}, got %v", binSets(res.Partition))
	}
}

// TestPartition_RefinementSplitsMergedBins uses two tight triangles joined
// by one bridge edge: the permissive coarse pass merges them, the
// refinement pass splits them apart again.
func TestPartition_RefinementSplitsMergedBins(t *testing.T) {
	g := graph.New()
	for _, e := range [][2]contig.ID{{"a1", "a2"}, {"a1", "a3"}, {"a2", "a3"},
		{"b1", "b2"}, {"b1", "b3"}, {"b2", "b3"}, {"a3", "b1"}} {
		g.SetEdge(e[0], e[1], 0.9)
	}

	opts := defaultOptions()
	opts.Gamma1 = 0.05

	res, err := NewPartitioner(opts, nil, nil).Partition(context.Background(), g)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}

	if res.CoarseBins != 1 {
		t.Errorf("CoarseBins = %d, want 1 (permissive pass merges the bridge)", res.CoarseBins)
	}
	sets := binSets(res.Partition)
	if !sets["a1a2a3"] || !sets["b1b2b3"] {
		t.Errorf("Expected refinement to recover the triangles, got %v", sets)
	}
}

func TestPartition_RefinementNeverMerges(t *testing.T) {
	g := twoGroupGraph()
	g.AddNode("F")

	res, err := NewPartitioner(defaultOptions(), nil, nil).Partition(context.Background(), g)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}

	if res.FinalBins < res.CoarseBins {
		t.Errorf("FinalBins %d < CoarseBins %d: refinement must only split",
			res.FinalBins, res.CoarseBins)
	}
}

func TestPartition_DeterministicUnderSeed(t *testing.T) {
	g := graph.New()
	// A denser graph where optimization order could plausibly matter
	for i := 0; i < 12; i++ {
		for j := i + 1; j < 12; j++ {
			if i/4 == j/4 {
				g.SetEdge(contig.ID(fmt.Sprintf("c%02d", i)), contig.ID(fmt.Sprintf("c%02d", j)), 0.85)
			}
		}
	}
	g.SetEdge("c03", "c04", 0.82)
	g.SetEdge("c07", "c08", 0.82)

	run := func(seed int64) *Partition {
		opts := defaultOptions()
		opts.Seed = seed
		res, err := NewPartitioner(opts, nil, nil).Partition(context.Background(), g)
		if err != nil {
			t.Fatalf("Partition failed: %v", err)
		}
		return res.Partition
	}

	if !run(7).Equal(run(7)) {
		t.Error("Identical inputs, parameters and seed must reproduce the partition")
	}
}

func TestPartition_CoverageCompleteness(t *testing.T) {
	g := twoGroupGraph()
	g.AddNode("F")
	g.AddNode("G")

	res, err := NewPartitioner(defaultOptions(), nil, nil).Partition(context.Background(), g)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}

	if res.Partition.Len() != g.NumNodes() {
		t.Fatalf("Partition covers %d of %d contigs", res.Partition.Len(), g.NumNodes())
	}
	seen := make(map[contig.ID]int)
	for _, b := range Assemble(res.Partition) {
		for _, id := range b.Contigs {
			seen[id]++
		}
	}
	for _, id := range g.Nodes() {
		if seen[id] != 1 {
			t.Errorf("Contig %s appears %d times in bins", id, seen[id])
		}
	}
}

func TestPartition_TightBudgetStillTotal(t *testing.T) {
	opts := defaultOptions()
	opts.MaxIterations = 1

	res, err := NewPartitioner(opts, nil, nil).Partition(context.Background(), twoGroupGraph())
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	// Best-effort result: possibly degraded, never partial
	if res.Partition.Len() != 5 {
		t.Errorf("Budget-limited partition covers %d contigs, want 5", res.Partition.Len())
	}
}

func TestPartition_RejectsBadResolutions(t *testing.T) {
	cases := []Options{
		{Gamma1: 0, Gamma2: 0.75, MaxIterations: 10},
		{Gamma1: -0.1, Gamma2: 0.75, MaxIterations: 10},
		{Gamma1: 0.75, Gamma2: 0.3, MaxIterations: 10}, // refinement must tighten
	}
	for _, opts := range cases {
		if _, err := NewPartitioner(opts, nil, nil).Partition(context.Background(), graph.New()); !errors.Is(err, ErrBadResolution) {
			t.Errorf("Options %+v: expected ErrBadResolution, got %v", opts, err)
		}
	}
}

func TestPartition_CancellationBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPartitioner(defaultOptions(), nil, nil).Partition(ctx, twoGroupGraph())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestPartition_EmptyGraph(t *testing.T) {
	res, err := NewPartitioner(defaultOptions(), nil, nil).Partition(context.Background(), graph.New())
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	if res.Partition.Len() != 0 || res.FinalBins != 0 {
		t.Errorf("Empty graph should produce an empty partition, got %+v", res)
	}
}
