package cluster

import (
	"math/rand"
	"sort"

	"github.com/ccollard/contigbin/pkg/contig"
	"github.com/ccollard/contigbin/pkg/graph"
)

// cpmResult is one optimization outcome. Greedy moves only ever improve
// the quality function, so the returned assignment is also the best one
// seen within the sweep budget.
type cpmResult struct {
	labels    map[contig.ID]int
	quality   float64
	converged bool
}

// levelGraph is the collapsed graph one aggregation level works on. Nodes
// are dense indices; size tracks how many original contigs a node stands
// for, self the weight collapsed inside it.
type levelGraph struct {
	adj  []map[int]float64
	self []float64
	size []int
}

func (lg *levelGraph) n() int { return len(lg.size) }

// optimizeCPM greedily maximizes the constant Potts quality
//
//	H = Σ_c [ W_in(c) - resolution * S_c*(S_c-1)/2 ]
//
// by seeded node-movement sweeps with community aggregation between
// levels. maxSweeps bounds the total number of sweeps across levels; on an
// exhausted budget the current (monotonically improved) assignment is
// returned with converged=false.
func optimizeCPM(g *graph.Similarity, resolution float64, maxSweeps int, rng *rand.Rand) cpmResult {
	nodes := g.Nodes()
	n := len(nodes)
	res := cpmResult{labels: make(map[contig.ID]int, n), converged: true}
	if n == 0 {
		return res
	}

	index := make(map[contig.ID]int, n)
	for i, id := range nodes {
		index[id] = i
	}

	lg := newLevelGraph(g, nodes, index)

	// assign[i] is original node i's community, in current-level indices
	assign := make([]int, n)
	for i := range assign {
		assign[i] = i
	}

	sweepsLeft := maxSweeps
	for {
		comm := make([]int, lg.n())
		for i := range comm {
			comm[i] = i
		}

		moved, converged := localMoves(lg, comm, resolution, rng, &sweepsLeft)
		if !converged {
			res.converged = false
		}

		next, dense, distinct := densify(comm)
		for i := range assign {
			assign[i] = next[assign[i]]
		}

		if !moved || distinct == lg.n() || sweepsLeft <= 0 {
			break
		}
		lg = aggregate(lg, comm, dense, distinct)
	}

	for i, id := range nodes {
		res.labels[id] = assign[i]
	}
	res.quality = cpmQuality(g, res.labels, resolution)
	return res
}

func newLevelGraph(g *graph.Similarity, nodes []contig.ID, index map[contig.ID]int) *levelGraph {
	lg := &levelGraph{
		adj:  make([]map[int]float64, len(nodes)),
		self: make([]float64, len(nodes)),
		size: make([]int, len(nodes)),
	}
	for i, id := range nodes {
		lg.adj[i] = make(map[int]float64)
		lg.size[i] = 1
		g.ForEachNeighbor(id, func(other contig.ID, w float64) {
			lg.adj[i][index[other]] = w
		})
	}
	return lg
}

// localMoves sweeps nodes in seeded random order, moving each to the
// adjacent community with the best positive quality gain, until a full
// sweep makes no move or the budget runs out. Candidate communities are
// evaluated in sorted order so ties resolve identically across runs.
func localMoves(lg *levelGraph, comm []int, resolution float64, rng *rand.Rand, sweepsLeft *int) (moved, converged bool) {
	n := lg.n()

	commTotal := make([]int, n)
	for i, c := range comm {
		commTotal[c] += lg.size[i]
	}

	for *sweepsLeft > 0 {
		*sweepsLeft--
		changed := false

		for _, v := range rng.Perm(n) {
			cur := comm[v]

			wTo := make(map[int]float64, len(lg.adj[v]))
			for u, w := range lg.adj[v] {
				wTo[comm[u]] += w
			}

			cands := make([]int, 0, len(wTo))
			for c := range wTo {
				if c != cur {
					cands = append(cands, c)
				}
			}
			sort.Ints(cands)

			sv := float64(lg.size[v])
			removeCost := wTo[cur] - resolution*sv*float64(commTotal[cur]-lg.size[v])

			best, bestGain := cur, 0.0
			for _, d := range cands {
				gain := (wTo[d] - resolution*sv*float64(commTotal[d])) - removeCost
				if gain > bestGain+1e-12 {
					bestGain, best = gain, d
				}
			}

			if best != cur {
				commTotal[cur] -= lg.size[v]
				commTotal[best] += lg.size[v]
				comm[v] = best
				changed = true
				moved = true
			}
		}

		if !changed {
			return moved, true
		}
	}
	return moved, false
}

// densify renumbers community labels to 0..k-1 in ascending label order.
// Returns the per-node dense assignment, the label remap and k.
func densify(comm []int) (next []int, dense map[int]int, k int) {
	labels := make([]int, 0, len(comm))
	seen := make(map[int]struct{}, len(comm))
	for _, c := range comm {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			labels = append(labels, c)
		}
	}
	sort.Ints(labels)

	dense = make(map[int]int, len(labels))
	for i, c := range labels {
		dense[c] = i
	}

	next = make([]int, len(comm))
	for i, c := range comm {
		next[i] = dense[c]
	}
	return next, dense, len(labels)
}

// aggregate collapses each community into one super-node, folding
// intra-community edges into self weight.
func aggregate(lg *levelGraph, comm []int, dense map[int]int, k int) *levelGraph {
	out := &levelGraph{
		adj:  make([]map[int]float64, k),
		self: make([]float64, k),
		size: make([]int, k),
	}
	for i := range out.adj {
		out.adj[i] = make(map[int]float64)
	}

	for v := range comm {
		dv := dense[comm[v]]
		out.size[dv] += lg.size[v]
		out.self[dv] += lg.self[v]

		for u, w := range lg.adj[v] {
			if u <= v {
				continue // visit each edge once
			}
			du := dense[comm[u]]
			if du == dv {
				out.self[dv] += w
			} else {
				out.adj[dv][du] += w
				out.adj[du][dv] += w
			}
		}
	}
	return out
}

// cpmQuality evaluates the constant Potts quality of an assignment on the
// original graph.
func cpmQuality(g *graph.Similarity, labels map[contig.ID]int, resolution float64) float64 {
	intra := 0.0
	for _, e := range g.Edges() {
		if labels[e.A] == labels[e.B] {
			intra += e.Weight
		}
	}

	sizes := make(map[int]int)
	for _, c := range labels {
		sizes[c]++
	}

	penalty := 0.0
	for _, s := range sizes {
		penalty += float64(s*(s-1)) / 2
	}
	return intra - resolution*penalty
}
