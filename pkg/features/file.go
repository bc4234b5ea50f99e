package features

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/ccollard/contigbin/pkg/contig"
)

// File format: a flat binary layout of fixed-size float32 records so the
// mmap reader can address any fragment with pure offset arithmetic.
//
//	header : magic u32 | compDim u32 | covDim u32 | contigCount u32
//	contig : idLen u16 | id bytes | length u32 | nFrags u32 | records
//	record : compDim float32 LE | covDim float32 LE
const (
	fileMagic  = uint32(0x43424631) // "CBF1"
	headerSize = 16
)

// Writer streams a feature file to disk. The contig count is patched into
// the header on Close.
type Writer struct {
	f       *os.File
	w       *bufio.Writer
	compDim int
	covDim  int
	count   uint32
}

// NewWriter creates a feature file for vectors of the given shapes.
func NewWriter(path string, compDim, covDim int) (*Writer, error) {
	if compDim < 1 || covDim < 1 {
		return nil, fmt.Errorf("NewWriter: %w: dims %dx%d", ErrShapeMismatch, compDim, covDim)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := &Writer{f: f, w: bufio.NewWriter(f), compDim: compDim, covDim: covDim}

	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[0:], fileMagic)
	binary.LittleEndian.PutUint32(header[4:], uint32(compDim))
	binary.LittleEndian.PutUint32(header[8:], uint32(covDim))
	binary.LittleEndian.PutUint32(header[12:], 0) // patched on Close
	if _, err := w.w.Write(header[:]); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Append writes one contig and its fragment features.
func (w *Writer) Append(c contig.Contig, frags []Fragment) error {
	if len(frags) != c.NumFrags {
		return fmt.Errorf("append %q: %w: %d fragments for NumFrags=%d",
			c.ID, ErrShapeMismatch, len(frags), c.NumFrags)
	}
	if len(c.ID) > math.MaxUint16 {
		return fmt.Errorf("append: contig ID longer than %d bytes", math.MaxUint16)
	}

	var buf [8]byte
	binary.LittleEndian.PutUint16(buf[0:], uint16(len(c.ID)))
	if _, err := w.w.Write(buf[:2]); err != nil {
		return err
	}
	if _, err := w.w.WriteString(string(c.ID)); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf[0:], uint32(c.Length))
	binary.LittleEndian.PutUint32(buf[4:], uint32(c.NumFrags))
	if _, err := w.w.Write(buf[:8]); err != nil {
		return err
	}

	for _, frag := range frags {
		if len(frag.Composition) != w.compDim || len(frag.Coverage) != w.covDim {
			return fmt.Errorf("append %q: %w", c.ID, ErrShapeMismatch)
		}
		if err := w.writeVector(frag.Composition); err != nil {
			return err
		}
		if err := w.writeVector(frag.Coverage); err != nil {
			return err
		}
	}

	w.count++
	return nil
}

func (w *Writer) writeVector(v Vector) error {
	var buf [4]byte
	for _, x := range v {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(x))
		if _, err := w.w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered data and patches the contig count into the header.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return err
	}

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], w.count)
	if _, err := w.f.WriteAt(buf[:], 12); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
