// Package export writes binning results to disk: a tab-separated
// assignment table for downstream tools and a compressed edge list for
// inspecting the similarity graph a run was clustered on.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ccollard/contigbin/pkg/cluster"
)

// WriteAssignments writes one "contig<TAB>bin" row per contig, preceded
// by a header row. Rows come out sorted by contig ID.
func WriteAssignments(w io.Writer, p *cluster.Partition) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintln(bw, "contig\tbin"); err != nil {
		return err
	}
	for _, id := range p.Contigs() {
		label, _ := p.Label(id)
		if _, err := fmt.Fprintf(bw, "%s\t%d\n", id, label); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteAssignmentsFile writes the assignment table to path, creating or
// truncating the file.
func WriteAssignmentsFile(path string, p *cluster.Partition) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create assignments file: %w", err)
	}

	if err := WriteAssignments(file, p); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
