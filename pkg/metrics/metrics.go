package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metrics for the binning pipeline
type Registry struct {
	// Scoring metrics
	PairsScoredTotal     prometheus.Counter
	ScoringFailuresTotal prometheus.Counter
	FragmentComparisons  prometheus.Counter

	// Graph metrics
	EdgesRetained      prometheus.Gauge
	EdgesRejectedTotal prometheus.Counter
	IsolatedContigs    prometheus.Gauge

	// Partitioning metrics
	BinsTotal                *prometheus.GaugeVec // by stage: coarse, final
	SingletonBins            prometheus.Gauge
	ConvergenceWarningsTotal prometheus.Counter
	RefinementFailuresTotal  prometheus.Counter

	// Pipeline metrics
	StageDuration *prometheus.HistogramVec // by stage
	RunsTotal     *prometheus.CounterVec   // by status: ok, error, canceled

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// NewRegistry creates a new metrics registry with all collectors registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.PairsScoredTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "contigbin_pairs_scored_total",
			Help: "Candidate contig pairs scored",
		},
	)

	r.ScoringFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "contigbin_scoring_failures_total",
			Help: "Candidate pairs dropped because the scorer failed",
		},
	)

	r.FragmentComparisons = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "contigbin_fragment_comparisons_total",
			Help: "Fragment-pair comparisons submitted to the scorer",
		},
	)

	r.EdgesRetained = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "contigbin_edges_retained",
			Help: "Edges kept in the similarity graph after thresholding",
		},
	)

	r.EdgesRejectedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "contigbin_edges_rejected_total",
			Help: "Candidate edges below the hits threshold",
		},
	)

	r.IsolatedContigs = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "contigbin_isolated_contigs",
			Help: "Contigs with no surviving edges",
		},
	)

	r.BinsTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contigbin_bins_total",
			Help: "Bins produced by partitioning stage",
		},
		[]string{"stage"},
	)

	r.SingletonBins = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "contigbin_singleton_bins",
			Help: "Final bins containing a single contig",
		},
	)

	r.ConvergenceWarningsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "contigbin_convergence_warnings_total",
			Help: "Optimizations that hit their iteration budget before converging",
		},
	)

	r.RefinementFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "contigbin_refinement_failures_total",
			Help: "Coarse bins whose refinement failed and kept the coarse grouping",
		},
	)

	r.StageDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contigbin_stage_duration_seconds",
			Help:    "Wall-clock duration of each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"stage"},
	)

	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "contigbin_runs_total",
			Help: "Pipeline runs by outcome",
		},
		[]string{"status"},
	)

	return r
}

// DefaultRegistry returns the process-wide registry, creating it on first use
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Gatherer exposes the underlying prometheus registry for scraping or tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordScoring records the outcome of one candidate-pair scoring task
func (r *Registry) RecordScoring(comparisons int, failed bool) {
	r.PairsScoredTotal.Inc()
	r.FragmentComparisons.Add(float64(comparisons))
	if failed {
		r.ScoringFailuresTotal.Inc()
	}
}

// RecordGraph records the shape of the finished similarity graph
func (r *Registry) RecordGraph(retained, rejected, isolated int) {
	r.EdgesRetained.Set(float64(retained))
	r.EdgesRejectedTotal.Add(float64(rejected))
	r.IsolatedContigs.Set(float64(isolated))
}

// RecordPartition records bin counts for a partitioning stage
func (r *Registry) RecordPartition(stage string, bins, singletons int) {
	r.BinsTotal.WithLabelValues(stage).Set(float64(bins))
	if stage == "final" {
		r.SingletonBins.Set(float64(singletons))
	}
}

// RecordStage records the duration of one pipeline stage
func (r *Registry) RecordStage(stage string, d time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun records a completed pipeline run
func (r *Registry) RecordRun(status string) {
	r.RunsTotal.WithLabelValues(status).Inc()
}
