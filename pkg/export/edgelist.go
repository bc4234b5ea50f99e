package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"sync"

	"github.com/golang/snappy"

	"github.com/ccollard/contigbin/pkg/contig"
	"github.com/ccollard/contigbin/pkg/graph"
)

const (
	edgeListMagic   = uint32(0x43424531) // "CBE1"
	edgeBlockTarget = 64 * 1024          // flush a block once it reaches this size
)

// EdgeListWriter writes graph edges as snappy-compressed blocks.
//
// File format: [Magic:4] then per block [CompLen:4][CompData:N][Checksum:4].
// Each decompressed block is a run of records
// [ALen:2][A][BLen:2][B][Weight:8], weights as IEEE 754 bits.
type EdgeListWriter struct {
	file   *os.File
	writer *bufio.Writer
	block  []byte
	mu     sync.Mutex

	// Statistics
	edgesWritten      uint64
	bytesUncompressed uint64
	bytesCompressed   uint64
}

// EdgeListStats holds compression statistics for a written edge list.
type EdgeListStats struct {
	EdgesWritten      uint64
	BytesUncompressed uint64
	BytesCompressed   uint64
	CompressionRatio  float64 // e.g. 0.6 = 60% smaller than raw
}

// NewEdgeListWriter creates an edge list at path, truncating any
// existing file, and writes the format magic.
func NewEdgeListWriter(path string) (*EdgeListWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create edge list file: %w", err)
	}

	w := &EdgeListWriter{
		file:   file,
		writer: bufio.NewWriter(file),
		block:  make([]byte, 0, edgeBlockTarget),
	}

	if err := binary.Write(w.writer, binary.BigEndian, edgeListMagic); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// WriteEdge appends one undirected edge.
func (w *EdgeListWriter) WriteEdge(a, b contig.ID, weight float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.block = appendEdgeRecord(w.block, a, b, weight)
	w.edgesWritten++

	if len(w.block) >= edgeBlockTarget {
		return w.flushBlock()
	}
	return nil
}

// WriteGraph appends every edge of g in deterministic order.
func (w *EdgeListWriter) WriteGraph(g *graph.Similarity) error {
	for _, e := range g.Edges() {
		if err := w.WriteEdge(e.A, e.B, e.Weight); err != nil {
			return err
		}
	}
	return nil
}

// flushBlock compresses and writes the pending block. Caller holds mu.
func (w *EdgeListWriter) flushBlock() error {
	if len(w.block) == 0 {
		return nil
	}

	compressed := snappy.Encode(nil, w.block)
	w.bytesUncompressed += uint64(len(w.block))
	w.bytesCompressed += uint64(len(compressed))
	w.block = w.block[:0]

	if err := binary.Write(w.writer, binary.BigEndian, uint32(len(compressed))); err != nil {
		return err
	}
	if _, err := w.writer.Write(compressed); err != nil {
		return err
	}
	return binary.Write(w.writer, binary.BigEndian, crc32.ChecksumIEEE(compressed))
}

// Stats returns compression statistics covering flushed blocks.
func (w *EdgeListWriter) Stats() EdgeListStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	ratio := 0.0
	if w.bytesUncompressed > 0 {
		ratio = 1.0 - float64(w.bytesCompressed)/float64(w.bytesUncompressed)
	}
	return EdgeListStats{
		EdgesWritten:      w.edgesWritten,
		BytesUncompressed: w.bytesUncompressed,
		BytesCompressed:   w.bytesCompressed,
		CompressionRatio:  ratio,
	}
}

// Close flushes the final block and syncs the file.
func (w *EdgeListWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.flushBlock(); err != nil {
		return err
	}
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	return w.file.Close()
}

func appendEdgeRecord(buf []byte, a, b contig.ID, weight float64) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(a)))
	buf = append(buf, a...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(b)))
	buf = append(buf, b...)
	return binary.BigEndian.AppendUint64(buf, math.Float64bits(weight))
}

// ReadEdgeList reads a complete edge list back from path, verifying the
// per-block checksums.
func ReadEdgeList(path string) ([]graph.Edge, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)

	var magic uint32
	if err := binary.Read(reader, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("failed to read edge list header: %w", err)
	}
	if magic != edgeListMagic {
		return nil, fmt.Errorf("bad edge list magic %#x", magic)
	}

	edges := make([]graph.Edge, 0)
	for blockNum := 0; ; blockNum++ {
		var compLen uint32
		if err := binary.Read(reader, binary.BigEndian, &compLen); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		compressed := make([]byte, compLen)
		if _, err := io.ReadFull(reader, compressed); err != nil {
			return nil, err
		}

		var checksum uint32
		if err := binary.Read(reader, binary.BigEndian, &checksum); err != nil {
			return nil, err
		}
		if crc32.ChecksumIEEE(compressed) != checksum {
			return nil, fmt.Errorf("checksum mismatch in edge list block %d", blockNum)
		}

		block, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress edge list block %d: %w", blockNum, err)
		}

		blockEdges, err := decodeEdgeBlock(block)
		if err != nil {
			return nil, fmt.Errorf("malformed edge list block %d: %w", blockNum, err)
		}
		edges = append(edges, blockEdges...)
	}
	return edges, nil
}

func decodeEdgeBlock(block []byte) ([]graph.Edge, error) {
	edges := make([]graph.Edge, 0)
	for len(block) > 0 {
		a, rest, err := takeID(block)
		if err != nil {
			return nil, err
		}
		b, rest, err := takeID(rest)
		if err != nil {
			return nil, err
		}
		if len(rest) < 8 {
			return nil, fmt.Errorf("truncated weight")
		}
		weight := math.Float64frombits(binary.BigEndian.Uint64(rest))
		edges = append(edges, graph.Edge{A: a, B: b, Weight: weight})
		block = rest[8:]
	}
	return edges, nil
}

func takeID(buf []byte) (contig.ID, []byte, error) {
	if len(buf) < 2 {
		return "", nil, fmt.Errorf("truncated record")
	}
	n := int(binary.BigEndian.Uint16(buf))
	buf = buf[2:]
	if len(buf) < n {
		return "", nil, fmt.Errorf("truncated contig ID")
	}
	return contig.ID(buf[:n]), buf[n:], nil
}
