package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when vector dimensions don't match
var ErrDimensionMismatch = errors.New("vector dimensions mismatch")

// CosineScorer is a model-free reference scorer: similarity is cosine
// similarity of the latent vectors mapped onto [0,1]. Useful for tests and
// for running the engine without a trained model.
type CosineScorer struct{}

// ScorePairs implements PairScorer.
func (CosineScorer) ScorePairs(ctx context.Context, pairs []FragmentPair) ([]Similarity, error) {
	out := make([]Similarity, len(pairs))
	for i, p := range pairs {
		comp, err := cosineSimilarity(p.A.Composition, p.B.Composition)
		if err != nil {
			return nil, err
		}
		cov, err := cosineSimilarity(p.A.Coverage, p.B.Coverage)
		if err != nil {
			return nil, err
		}
		// Map [-1,1] cosine onto the [0,1] contract
		out[i] = Similarity{
			Composition: (1 + comp) / 2,
			Coverage:    (1 + cov) / 2,
		}
	}
	return out, nil
}

// cosineSimilarity calculates the cosine similarity between two vectors
// Returns a value between -1 (opposite) and 1 (identical)
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	dotProd := 0.0
	normA := 0.0
	normB := 0.0

	for i := 0; i < len(a); i++ {
		dotProd += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	// Handle zero vectors
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dotProd / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
