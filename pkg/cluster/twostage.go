package cluster

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/ccollard/contigbin/pkg/contig"
	"github.com/ccollard/contigbin/pkg/graph"
	"github.com/ccollard/contigbin/pkg/logging"
	"github.com/ccollard/contigbin/pkg/metrics"
	"github.com/ccollard/contigbin/pkg/parallel"
)

// ErrBadResolution is returned when resolution parameters are out of range.
var ErrBadResolution = errors.New("resolution parameters out of range")

// Options are the two-stage partitioner's tunables.
type Options struct {
	// Gamma1 is the coarse resolution: low, favoring large permissive
	// communities so true same-genome pairs land together even when the
	// link is weak. Refinement exists to split what this pass over-merges.
	Gamma1 float64
	// Gamma2 is the refinement resolution, higher than Gamma1.
	Gamma2 float64
	// Seed drives every random permutation. Same graph, options and seed
	// reproduce the identical partition; binning results must be
	// auditable.
	Seed int64
	// MaxIterations bounds optimization sweeps per stage.
	MaxIterations int
	// Workers is the refinement parallelism; zero means GOMAXPROCS.
	Workers int
}

// Result is a finished two-stage partitioning.
type Result struct {
	Partition  *Partition
	CoarseBins int
	FinalBins  int
	// Degraded is set when any optimization hit its budget or any bin's
	// refinement failed; the partition is still complete and valid.
	Degraded bool
	Warnings []string
}

// Partitioner runs the coarse/refine state machine. Exactly two stages, no
// loop back: unbounded recursive re-clustering has no termination
// guarantee and is not needed.
type Partitioner struct {
	opts    Options
	log     logging.Logger
	metrics *metrics.Registry
}

// NewPartitioner wires a partitioner. A nil logger or registry falls back
// to a nop logger and a private registry.
func NewPartitioner(opts Options, log logging.Logger, reg *metrics.Registry) *Partitioner {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 100
	}
	return &Partitioner{opts: opts, log: log, metrics: reg}
}

// refineSlot is one coarse bin's refinement outcome, keyed by bin index.
type refineSlot struct {
	labels    map[contig.ID]int
	converged bool
	failed    bool
}

// Partition runs the coarse pass over the full graph, then refines each
// multi-member coarse bin on its induced subgraph. Refinements are
// independent: one bin's failure keeps that bin's coarse grouping and
// flags the result, never aborting the rest.
func (p *Partitioner) Partition(ctx context.Context, g *graph.Similarity) (*Result, error) {
	if g == nil {
		return nil, errors.New("nil similarity graph")
	}
	if p.opts.Gamma1 <= 0 || p.opts.Gamma2 <= p.opts.Gamma1 {
		return nil, fmt.Errorf("%w: gamma1=%v gamma2=%v", ErrBadResolution, p.opts.Gamma1, p.opts.Gamma2)
	}

	res := &Result{}

	// Stage 1: coarse
	coarse := optimizeCPM(g, p.opts.Gamma1, p.opts.MaxIterations, rand.New(rand.NewSource(p.opts.Seed)))
	if !coarse.converged {
		res.Degraded = true
		res.Warnings = append(res.Warnings, "coarse pass hit iteration budget")
		p.metrics.ConvergenceWarningsTotal.Inc()
	}

	bins := groupByLabel(coarse.labels)
	res.CoarseBins = len(bins)
	p.metrics.RecordPartition("coarse", len(bins), 0)
	p.log.Info("coarse partition done",
		logging.Int("bins", len(bins)),
		logging.Float("quality", coarse.quality))

	// Barrier between stages
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: refine multi-member bins on their induced subgraphs
	slots := make([]refineSlot, len(bins))
	err := parallel.ForEach(ctx, p.opts.Workers, len(bins), func(i int) {
		slots[i] = p.refine(g, bins[i])
	})
	if err != nil {
		return nil, err
	}

	final := make(map[contig.ID]int, len(coarse.labels))
	next := 0
	for i, bin := range bins {
		s := slots[i]

		if s.failed {
			// Keep the coarse grouping for this bin only
			res.Degraded = true
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("refinement failed for bin of %q, coarse grouping kept", bin[0]))
			p.metrics.RefinementFailuresTotal.Inc()
			for _, id := range bin {
				final[id] = next
			}
			next++
			continue
		}
		if !s.converged {
			res.Degraded = true
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("refinement of bin of %q hit iteration budget", bin[0]))
			p.metrics.ConvergenceWarningsTotal.Inc()
		}

		for _, sub := range groupByLabel(s.labels) {
			for _, id := range sub {
				final[id] = next
			}
			next++
		}
	}

	res.Partition = newPartition(final)
	res.FinalBins = res.Partition.NumBins()

	singletons := 0
	for _, b := range Assemble(res.Partition) {
		if len(b.Contigs) == 1 {
			singletons++
		}
	}
	p.metrics.RecordPartition("final", res.FinalBins, singletons)
	p.log.Info("refinement done",
		logging.Int("bins", res.FinalBins),
		logging.Int("singletons", singletons),
		logging.F("degraded", res.Degraded))

	return res, nil
}

// refine runs the high-resolution pass for one coarse bin. A panic inside
// one subgraph optimization is contained here.
func (p *Partitioner) refine(g *graph.Similarity, bin []contig.ID) (slot refineSlot) {
	defer func() {
		if r := recover(); r != nil {
			slot = refineSlot{failed: true}
		}
	}()

	if len(bin) == 1 {
		return refineSlot{labels: map[contig.ID]int{bin[0]: 0}, converged: true}
	}

	// Per-bin seed derived from the bin's identity, not its position, so
	// the outcome is stable under any scheduling of refinements.
	rng := rand.New(rand.NewSource(p.opts.Seed ^ seedFor(bin[0])))

	sub := g.Subgraph(bin)
	r := optimizeCPM(sub, p.opts.Gamma2, p.opts.MaxIterations, rng)
	return refineSlot{labels: r.labels, converged: r.converged}
}

// groupByLabel converts an assignment into member lists ordered by each
// group's smallest contig ID, members sorted.
func groupByLabel(labels map[contig.ID]int) [][]contig.ID {
	groups := make(map[int][]contig.ID)
	for id, c := range labels {
		groups[c] = append(groups[c], id)
	}

	out := make([][]contig.ID, 0, len(groups))
	for _, ids := range groups {
		out = append(out, contig.SortIDs(ids))
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// seedFor hashes a contig ID into seed material.
func seedFor(id contig.ID) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64())
}
