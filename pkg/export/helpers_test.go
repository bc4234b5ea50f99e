package export

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/ccollard/contigbin/pkg/cluster"
	"github.com/ccollard/contigbin/pkg/contig"
	"github.com/ccollard/contigbin/pkg/graph"
)

func clusterFor(t *testing.T, g *graph.Similarity) *cluster.Partition {
	t.Helper()
	p := cluster.NewPartitioner(cluster.Options{
		Gamma1:        0.3,
		Gamma2:        0.75,
		Seed:          42,
		MaxIterations: 100,
	}, nil, nil)

	res, err := p.Partition(context.Background(), g)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	return res.Partition
}

func graphID(prefix string, i int) contig.ID {
	return contig.ID(fmt.Sprintf("%s_%06d", prefix, i))
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}
