package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/ccollard/contigbin/pkg/contig"
	"github.com/ccollard/contigbin/pkg/features"
	"github.com/ccollard/contigbin/pkg/logging"
	"github.com/ccollard/contigbin/pkg/metrics"
	"github.com/ccollard/contigbin/pkg/neighbor"
	"github.com/ccollard/contigbin/pkg/parallel"
	"github.com/ccollard/contigbin/pkg/scoring"
)

// Options are the builder's tunables.
type Options struct {
	// NFrags caps the fragments per contig entering the cross product.
	NFrags int
	// MaxNeighbors bounds candidate selection per contig.
	MaxNeighbors int
	// HitsThreshold is the minimum hit fraction for a retained edge.
	HitsThreshold float64
	// VoteThreshold is the per-comparison similarity cutoff.
	VoteThreshold float64
	// MaxPairComparisons caps the fragment cross product per candidate
	// pair; zero disables the cap.
	MaxPairComparisons int
	// Workers is the scoring parallelism; zero means GOMAXPROCS.
	Workers int
}

// Stats summarizes one graph build.
type Stats struct {
	CandidatePairs  int
	PairsScored     int
	ScoringFailures int
	EdgesRetained   int
	EdgesRejected   int
	IsolatedContigs int
}

// Builder constructs the similarity graph from bounded candidate pairs.
type Builder struct {
	store    features.Store
	scorer   scoring.PairScorer
	combiner scoring.Combiner
	opts     Options
	log      logging.Logger
	metrics  *metrics.Registry
}

// NewBuilder wires a graph builder. A nil logger or registry falls back to
// a nop logger and a private registry.
func NewBuilder(store features.Store, scorer scoring.PairScorer, combiner scoring.Combiner,
	opts Options, log logging.Logger, reg *metrics.Registry) *Builder {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Builder{
		store:    store,
		scorer:   scorer,
		combiner: combiner,
		opts:     opts,
		log:      log,
		metrics:  reg,
	}
}

// pairResult is one scoring task's slot, keyed by candidate index.
type pairResult struct {
	score scoring.EdgeScore
	err   error
}

// Build validates the assembly, selects candidates, scores them in
// parallel and assembles the thresholded graph. Per-pair scorer failures
// are isolated and counted; malformed input aborts the build.
func (b *Builder) Build(ctx context.Context, contigs []contig.Contig) (*Similarity, Stats, error) {
	var stats Stats

	if err := contig.Validate(contigs); err != nil {
		return nil, stats, err
	}

	g := New()
	byID := make(map[contig.ID]contig.Contig, len(contigs))
	for _, c := range contigs {
		g.AddNode(c.ID)
		byID[c.ID] = c
	}

	pairs, err := neighbor.Select(contigs, b.store, b.opts.MaxNeighbors)
	if err != nil {
		return nil, stats, fmt.Errorf("candidate selection: %w", err)
	}
	stats.CandidatePairs = len(pairs)
	b.log.Info("candidate pairs selected",
		logging.Int("contigs", len(contigs)),
		logging.Int("pairs", len(pairs)))

	// Barrier: every slot must be filled before graph assembly starts
	results := make([]pairResult, len(pairs))
	err = parallel.ForEach(ctx, b.opts.Workers, len(pairs), func(i int) {
		results[i] = b.scorePair(ctx, pairs[i], byID)
	})
	if err != nil {
		// Canceled: partial scoring results are discarded, no graph output
		return nil, stats, err
	}

	// Single-writer assembly in candidate order
	for i, r := range results {
		stats.PairsScored++
		b.metrics.RecordScoring(r.score.Comparisons, r.err != nil)

		if r.err != nil {
			var inputErr *contig.InputError
			if errors.As(r.err, &inputErr) {
				return nil, stats, r.err
			}
			stats.ScoringFailures++
			b.log.Warn("candidate pair dropped",
				logging.Str("a", string(pairs[i].A)),
				logging.Str("b", string(pairs[i].B)),
				logging.Err(r.err))
			continue
		}

		if r.score.Confident(b.opts.HitsThreshold) {
			if err := g.SetEdge(pairs[i].A, pairs[i].B, r.score.Combined); err != nil {
				return nil, stats, err
			}
			stats.EdgesRetained++
		} else {
			stats.EdgesRejected++
		}
	}

	stats.IsolatedContigs = g.NumIsolated()
	b.metrics.RecordGraph(stats.EdgesRetained, stats.EdgesRejected, stats.IsolatedContigs)
	b.log.Info("similarity graph built",
		logging.Int("edges", stats.EdgesRetained),
		logging.Int("rejected", stats.EdgesRejected),
		logging.Int("isolated", stats.IsolatedContigs),
		logging.Int("failures", stats.ScoringFailures))

	return g, stats, nil
}

// scorePair runs the fragment cross product for one candidate pair.
func (b *Builder) scorePair(ctx context.Context, p contig.Pair, byID map[contig.ID]contig.Contig) pairResult {
	fragsA, err := b.fragments(p.A, byID)
	if err != nil {
		return pairResult{err: err}
	}
	fragsB, err := b.fragments(p.B, byID)
	if err != nil {
		return pairResult{err: err}
	}

	batch := crossProduct(fragsA, fragsB, b.opts.MaxPairComparisons)

	sims, err := b.scorer.ScorePairs(ctx, batch)
	if err != nil {
		return pairResult{score: scoring.EdgeScore{Comparisons: len(batch)}, err: err}
	}
	if len(sims) != len(batch) {
		return pairResult{err: fmt.Errorf("scorer returned %d similarities for %d pairs", len(sims), len(batch))}
	}
	for _, s := range sims {
		if err := s.Validate(); err != nil {
			return pairResult{err: err}
		}
	}

	return pairResult{score: scoring.Aggregate(sims, b.opts.VoteThreshold, b.combiner)}
}

// fragments loads up to NFrags fragments for one contig; contigs with
// fewer fragments use all they have.
func (b *Builder) fragments(id contig.ID, byID map[contig.ID]contig.Contig) ([]features.Fragment, error) {
	c := byID[id]
	n := c.NumFrags
	if b.opts.NFrags > 0 && n > b.opts.NFrags {
		n = b.opts.NFrags
	}

	frags := make([]features.Fragment, n)
	for i := 0; i < n; i++ {
		f, err := b.store.Fragment(contig.FragmentKey{Contig: id, Index: i})
		if err != nil {
			return nil, err
		}
		frags[i] = f
	}
	return frags, nil
}

// crossProduct builds every fragment combination, stratified down to limit
// comparisons with a deterministic stride when the full product is too
// large.
func crossProduct(a, b []features.Fragment, limit int) []scoring.FragmentPair {
	total := len(a) * len(b)
	if total == 0 {
		return nil
	}

	stride := 1
	if limit > 0 && total > limit {
		stride = (total + limit - 1) / limit
	}

	out := make([]scoring.FragmentPair, 0, (total+stride-1)/stride)
	for idx := 0; idx < total; idx += stride {
		out = append(out, scoring.FragmentPair{A: a[idx/len(b)], B: b[idx%len(b)]})
	}
	return out
}
