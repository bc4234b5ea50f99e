package features

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ccollard/contigbin/pkg/contig"
)

// MemStore is an in-memory Store, used for tests and for callers that
// already hold all latent vectors.
type MemStore struct {
	mu        sync.RWMutex
	contigs   map[contig.ID]contig.Contig
	frags     map[contig.ID][]Fragment
	centroids map[contig.ID]Vector
}

// NewMemStore creates an empty in-memory feature store.
func NewMemStore() *MemStore {
	return &MemStore{
		contigs:   make(map[contig.ID]contig.Contig),
		frags:     make(map[contig.ID][]Fragment),
		centroids: make(map[contig.ID]Vector),
	}
}

// Add registers a contig and its fragment features. The fragment count
// must match the contig's NumFrags.
func (s *MemStore) Add(c contig.Contig, frags []Fragment) error {
	if len(frags) != c.NumFrags {
		return fmt.Errorf("add %q: %w: %d fragments for NumFrags=%d",
			c.ID, ErrShapeMismatch, len(frags), c.NumFrags)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.contigs[c.ID]; dup {
		return &contig.InputError{Op: "Add", Contig: c.ID, Cause: contig.ErrDuplicateID}
	}
	s.contigs[c.ID] = c
	s.frags[c.ID] = frags
	return nil
}

// Contigs returns every contig in the store, sorted by ID.
func (s *MemStore) Contigs() []contig.Contig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contig.Contig, 0, len(s.contigs))
	for _, c := range s.contigs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Fragment returns the latent views for one fragment key.
func (s *MemStore) Fragment(key contig.FragmentKey) (Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	frags, ok := s.frags[key.Contig]
	if !ok {
		return Fragment{}, &contig.InputError{Op: "Fragment", Contig: key.Contig, Cause: contig.ErrUnknownContig}
	}
	if key.Index < 0 || key.Index >= len(frags) {
		return Fragment{}, fmt.Errorf("fragment %q[%d]: %w", key.Contig, key.Index, ErrFragmentOutOfRange)
	}
	return frags[key.Index], nil
}

// CoverageCentroid returns the mean coverage vector for a contig, computing
// and caching it on first use.
func (s *MemStore) CoverageCentroid(id contig.ID) (Vector, error) {
	s.mu.RLock()
	if v, ok := s.centroids[id]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	frags, ok := s.frags[id]
	s.mu.RUnlock()

	if !ok {
		return nil, &contig.InputError{Op: "CoverageCentroid", Contig: id, Cause: contig.ErrUnknownContig}
	}

	v, err := centroid(frags)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.centroids[id] = v
	s.mu.Unlock()
	return v, nil
}
