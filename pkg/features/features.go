// Package features provides read-only access to the latent feature vectors
// the upstream model emits for every contig fragment. The engine treats
// vectors as opaque fixed-shape numeric payloads; it never inspects what
// the dimensions mean.
package features

import (
	"errors"
	"fmt"

	"github.com/ccollard/contigbin/pkg/contig"
)

// Vector is a fixed-shape latent feature vector.
type Vector []float32

// Fragment holds the two latent views of one contig fragment.
type Fragment struct {
	Composition Vector
	Coverage    Vector
}

// Store provides per-fragment feature access. Implementations must be safe
// for concurrent readers; the engine never writes through a Store.
type Store interface {
	// Contigs returns every contig known to the store, sorted by ID.
	Contigs() []contig.Contig
	// Fragment returns the latent views for one fragment key.
	Fragment(key contig.FragmentKey) (Fragment, error)
	// CoverageCentroid returns the mean coverage vector across a contig's
	// fragments, used as the cheap pre-filter signal for candidate
	// selection.
	CoverageCentroid(id contig.ID) (Vector, error)
}

// Common sentinel errors
var (
	ErrFragmentOutOfRange = errors.New("fragment index out of range")
	ErrShapeMismatch      = errors.New("feature vector shape mismatch")
	ErrBadFormat          = errors.New("malformed feature file")
)

// centroid computes the mean of the coverage vectors of frags.
func centroid(frags []Fragment) (Vector, error) {
	if len(frags) == 0 {
		return nil, fmt.Errorf("centroid: %w", contig.ErrNoFragments)
	}

	dim := len(frags[0].Coverage)
	sum := make([]float64, dim)
	for _, f := range frags {
		if len(f.Coverage) != dim {
			return nil, fmt.Errorf("centroid: %w", ErrShapeMismatch)
		}
		for i, v := range f.Coverage {
			sum[i] += float64(v)
		}
	}

	out := make(Vector, dim)
	for i, s := range sum {
		out[i] = float32(s / float64(len(frags)))
	}
	return out, nil
}
