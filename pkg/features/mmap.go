package features

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/exp/mmap"

	"github.com/ccollard/contigbin/pkg/contig"
)

// MappedStore is a Store backed by a memory-mapped feature file. Fragment
// reads are pure offset arithmetic over the mapping, so assemblies larger
// than memory stay cheap to score.
type MappedStore struct {
	reader  *mmap.ReaderAt
	compDim int
	covDim  int

	contigs []contig.Contig
	index   map[contig.ID]mappedContig

	mu        sync.Mutex
	centroids map[contig.ID]Vector
}

// mappedContig locates one contig's record block in the mapping.
type mappedContig struct {
	offset int64 // first fragment record
	nFrags int
}

// OpenMapped opens a feature file using memory-mapped I/O.
func OpenMapped(path string) (*MappedStore, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	header := make([]byte, headerSize)
	if _, err := reader.ReadAt(header, 0); err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("open %s: %w: short header", path, ErrBadFormat)
	}
	if binary.LittleEndian.Uint32(header[0:]) != fileMagic {
		_ = reader.Close()
		return nil, fmt.Errorf("open %s: %w: bad magic", path, ErrBadFormat)
	}

	s := &MappedStore{
		reader:    reader,
		compDim:   int(binary.LittleEndian.Uint32(header[4:])),
		covDim:    int(binary.LittleEndian.Uint32(header[8:])),
		index:     make(map[contig.ID]mappedContig),
		centroids: make(map[contig.ID]Vector),
	}

	count := int(binary.LittleEndian.Uint32(header[12:]))
	if err := s.buildIndex(count); err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return s, nil
}

// buildIndex walks the contig blocks once and records fragment offsets.
func (s *MappedStore) buildIndex(count int) error {
	stride := int64(4 * (s.compDim + s.covDim))
	pos := int64(headerSize)

	buf := make([]byte, 8)
	for i := 0; i < count; i++ {
		if _, err := s.reader.ReadAt(buf[:2], pos); err != nil {
			return fmt.Errorf("%w: truncated contig header", ErrBadFormat)
		}
		idLen := int(binary.LittleEndian.Uint16(buf))
		pos += 2

		idBytes := make([]byte, idLen)
		if _, err := s.reader.ReadAt(idBytes, pos); err != nil {
			return fmt.Errorf("%w: truncated contig ID", ErrBadFormat)
		}
		pos += int64(idLen)

		if _, err := s.reader.ReadAt(buf[:8], pos); err != nil {
			return fmt.Errorf("%w: truncated contig record", ErrBadFormat)
		}
		length := int(binary.LittleEndian.Uint32(buf[0:]))
		nFrags := int(binary.LittleEndian.Uint32(buf[4:]))
		pos += 8

		id := contig.ID(idBytes)
		if _, dup := s.index[id]; dup {
			return &contig.InputError{Op: "buildIndex", Contig: id, Cause: contig.ErrDuplicateID}
		}
		s.index[id] = mappedContig{offset: pos, nFrags: nFrags}
		s.contigs = append(s.contigs, contig.Contig{ID: id, Length: length, NumFrags: nFrags})

		pos += int64(nFrags) * stride
	}

	sort.Slice(s.contigs, func(i, j int) bool { return s.contigs[i].ID < s.contigs[j].ID })
	return nil
}

// Close releases the mapping.
func (s *MappedStore) Close() error {
	return s.reader.Close()
}

// Contigs returns every contig in the file, sorted by ID.
func (s *MappedStore) Contigs() []contig.Contig {
	out := make([]contig.Contig, len(s.contigs))
	copy(out, s.contigs)
	return out
}

// Fragment reads one fragment's latent views from the mapping.
func (s *MappedStore) Fragment(key contig.FragmentKey) (Fragment, error) {
	mc, ok := s.index[key.Contig]
	if !ok {
		return Fragment{}, &contig.InputError{Op: "Fragment", Contig: key.Contig, Cause: contig.ErrUnknownContig}
	}
	if key.Index < 0 || key.Index >= mc.nFrags {
		return Fragment{}, fmt.Errorf("fragment %q[%d]: %w", key.Contig, key.Index, ErrFragmentOutOfRange)
	}

	stride := int64(4 * (s.compDim + s.covDim))
	pos := mc.offset + int64(key.Index)*stride

	raw := make([]byte, stride)
	if _, err := s.reader.ReadAt(raw, pos); err != nil {
		return Fragment{}, fmt.Errorf("fragment %q[%d]: %w: truncated record", key.Contig, key.Index, ErrBadFormat)
	}

	frag := Fragment{
		Composition: make(Vector, s.compDim),
		Coverage:    make(Vector, s.covDim),
	}
	for i := 0; i < s.compDim; i++ {
		frag.Composition[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	base := 4 * s.compDim
	for i := 0; i < s.covDim; i++ {
		frag.Coverage[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[base+4*i:]))
	}
	return frag, nil
}

// CoverageCentroid returns the mean coverage vector for a contig, cached
// after the first computation.
func (s *MappedStore) CoverageCentroid(id contig.ID) (Vector, error) {
	s.mu.Lock()
	if v, ok := s.centroids[id]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	mc, ok := s.index[id]
	if !ok {
		return nil, &contig.InputError{Op: "CoverageCentroid", Contig: id, Cause: contig.ErrUnknownContig}
	}

	frags := make([]Fragment, mc.nFrags)
	for i := 0; i < mc.nFrags; i++ {
		f, err := s.Fragment(contig.FragmentKey{Contig: id, Index: i})
		if err != nil {
			return nil, err
		}
		frags[i] = f
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
