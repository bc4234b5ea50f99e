package scoring

import "fmt"

// EdgeScore aggregates every fragment-pair comparison for one candidate
// edge into per-source and combined hit fractions, all in [0,1]. The score
// is symmetric: fragments contribute by identity, not order.
type EdgeScore struct {
	Composition float64 // fraction of pairs whose composition vote hit
	Coverage    float64 // fraction of pairs whose coverage vote hit
	Combined    float64 // fraction of pairs where the combined signal agreed
	Comparisons int
}

// Confident reports whether the edge clears the hits threshold. Both
// sources must clear it independently, and so must the combined fraction;
// requiring agreement resists false merges driven by convergent
// composition alone (shared codon bias) or convergent coverage alone
// (co-abundant unrelated organisms).
func (e EdgeScore) Confident(hitsThreshold float64) bool {
	return e.Composition >= hitsThreshold &&
		e.Coverage >= hitsThreshold &&
		e.Combined >= hitsThreshold
}

// Combiner decides whether one fragment pair's combined signal counts as a
// hit. The combination rule is a tunable policy, not a hard-coded formula.
type Combiner interface {
	Hit(s Similarity, voteThreshold float64) bool
	Name() string
}

// StrictConjunction counts a combined hit only when both sources clear the
// vote threshold on their own.
type StrictConjunction struct{}

func (StrictConjunction) Hit(s Similarity, voteThreshold float64) bool {
	return s.Composition > voteThreshold && s.Coverage > voteThreshold
}

func (StrictConjunction) Name() string { return "strict" }

// WeightedAverage counts a combined hit when the weighted mean of the two
// sources clears the vote threshold.
type WeightedAverage struct {
	WComposition float64
	WCoverage    float64
}

func (w WeightedAverage) Hit(s Similarity, voteThreshold float64) bool {
	total := w.WComposition + w.WCoverage
	if total == 0 {
		return false
	}
	avg := (w.WComposition*s.Composition + w.WCoverage*s.Coverage) / total
	return avg > voteThreshold
}

func (w WeightedAverage) Name() string { return "weighted" }

// NewCombiner builds a combiner by policy name.
func NewCombiner(name string) (Combiner, error) {
	switch name {
	case "strict":
		return StrictConjunction{}, nil
	case "weighted":
		return WeightedAverage{WComposition: 0.5, WCoverage: 0.5}, nil
	default:
		return nil, fmt.Errorf("unknown combiner policy %q", name)
	}
}

// Aggregate folds fragment-pair similarities into an EdgeScore. Every
// similarity must already be validated.
func Aggregate(sims []Similarity, voteThreshold float64, combiner Combiner) EdgeScore {
	score := EdgeScore{Comparisons: len(sims)}
	if len(sims) == 0 {
		return score
	}

	var compHits, covHits, combinedHits int
	for _, s := range sims {
		if s.Composition > voteThreshold {
			compHits++
		}
		if s.Coverage > voteThreshold {
			covHits++
		}
		if combiner.Hit(s, voteThreshold) {
			combinedHits++
		}
	}

	n := float64(len(sims))
	score.Composition = float64(compHits) / n
	score.Coverage = float64(covHits) / n
	score.Combined = float64(combinedHits) / n
	return score
}
