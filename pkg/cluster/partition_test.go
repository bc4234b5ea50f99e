package cluster

import (
	"reflect"
	"testing"

	"github.com/ccollard/contigbin/pkg/contig"
)

func TestNewPartition_DenseLabelsBySmallestMember(t *testing.T) {
	raw := map[contig.ID]int{
		"d": 7, "e": 7,
		"a": 42, "b": 42, "c": 42,
		"f": 3,
	}

	p := newPartition(raw)

	if p.NumBins() != 3 {
		t.Fatalf("NumBins = %d, want 3", p.NumBins())
	}
	// Bin of "a" has the smallest representative, so it gets label 0
	if l, _ := p.Label("a"); l != 0 {
		t.Errorf("Label(a) = %d, want 0", l)
	}
	if l, _ := p.Label("d"); l != 1 {
		t.Errorf("Label(d) = %d, want 1", l)
	}
	if l, _ := p.Label("f"); l != 2 {
		t.Errorf("Label(f) = %d, want 2", l)
	}

	la, _ := p.Label("a")
	lb, _ := p.Label("b")
	lc, _ := p.Label("c")
	if la != lb || lb != lc {
		t.Error("Members of one raw group must share a label")
	}
}

func TestPartition_Accessors(t *testing.T) {
	p := newPartition(map[contig.ID]int{"a": 0, "b": 0, "c": 1})

	if p.Len() != 3 {
		t.Errorf("Len = %d, want 3", p.Len())
	}
	if got := p.Contigs(); !reflect.DeepEqual(got, []contig.ID{"a", "b", "c"}) {
		t.Errorf("Contigs = %v", got)
	}
	if _, ok := p.Label("zzz"); ok {
		t.Error("Label of unknown contig should report absence")
	}

	// Labels returns a copy
	m := p.Labels()
	m["a"] = 99
	if l, _ := p.Label("a"); l == 99 {
		t.Error("Labels() must not expose internal state")
	}
}

func TestPartition_Equal(t *testing.T) {
	p1 := newPartition(map[contig.ID]int{"a": 5, "b": 5, "c": 9})
	p2 := newPartition(map[contig.ID]int{"a": 1, "b": 1, "c": 2})
	p3 := newPartition(map[contig.ID]int{"a": 1, "b": 2, "c": 2})

	if !p1.Equal(p2) {
		t.Error("Same grouping under different raw labels must compare equal")
	}
	if p1.Equal(p3) {
		t.Error("Different groupings must not compare equal")
	}
}

func TestAssemble(t *testing.T) {
	p := newPartition(map[contig.ID]int{
		"a": 0, "c": 0, "b": 1, "f": 2,
	})

	bins := Assemble(p)

	if len(bins) != 3 {
		t.Fatalf("Expected 3 bins, got %d", len(bins))
	}
	if !reflect.DeepEqual(bins[0].Contigs, []contig.ID{"a", "c"}) {
		t.Errorf("Bin 0 = %v", bins[0].Contigs)
	}
	// Singleton bins are reported, never filtered
	if !reflect.DeepEqual(bins[2].Contigs, []contig.ID{"f"}) {
		t.Errorf("Expected singleton bin {f}, got %v", bins[2].Contigs)
	}
	for i, b := range bins {
		if b.Label != i {
			t.Errorf("Bin %d carries label %d", i, b.Label)
		}
	}
}

func TestAssemble_CoversEveryContigExactlyOnce(t *testing.T) {
	p := newPartition(map[contig.ID]int{"a": 0, "b": 0, "c": 1, "d": 2, "e": 2})

	seen := make(map[contig.ID]int)
	for _, b := range Assemble(p) {
		for _, id := range b.Contigs {
			seen[id]++
		}
	}

	if len(seen) != p.Len() {
		t.Errorf("Assembled %d contigs, want %d", len(seen), p.Len())
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("Contig %s appears %d times", id, n)
		}
	}
}
