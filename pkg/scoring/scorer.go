// Package scoring defines the boundary to the trained similarity model and
// the policy that turns fragment-level votes into one edge decision.
package scoring

import (
	"context"

	"github.com/ccollard/contigbin/pkg/contig"
	"github.com/ccollard/contigbin/pkg/features"
)

// FragmentPair is one fragment-level comparison submitted to the scorer.
type FragmentPair struct {
	A, B features.Fragment
}

// Similarity is the scorer's verdict for one fragment pair. Both values
// must lie in [0,1]; anything else is rejected as malformed input.
type Similarity struct {
	Composition float64
	Coverage    float64
}

// PairScorer scores batches of fragment pairs. Implementations must be
// safe for concurrent use: the graph builder invokes one scorer from many
// scoring workers at once.
type PairScorer interface {
	ScorePairs(ctx context.Context, pairs []FragmentPair) ([]Similarity, error)
}

// Validate rejects similarities outside [0,1]. Out-of-range scores are
// never clamped; they mean the model contract is broken.
func (s Similarity) Validate() error {
	if s.Composition < 0 || s.Composition > 1 || s.Coverage < 0 || s.Coverage > 1 {
		return &contig.InputError{Op: "ScorePairs", Cause: contig.ErrScoreOutOfRange}
	}
	return nil
}
