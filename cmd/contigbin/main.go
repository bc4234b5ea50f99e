package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ccollard/contigbin/pkg/config"
	"github.com/ccollard/contigbin/pkg/export"
	"github.com/ccollard/contigbin/pkg/features"
	"github.com/ccollard/contigbin/pkg/logging"
	"github.com/ccollard/contigbin/pkg/metrics"
	"github.com/ccollard/contigbin/pkg/pipeline"
	"github.com/ccollard/contigbin/pkg/scoring"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	featurePath := flag.String("features", "", "Binary feature file (required)")
	outDir := flag.String("out", "./out", "Output directory")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	dumpEdges := flag.Bool("dump-edges", false, "Also write the similarity graph edge list")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flag.Parse()

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(*logLevel))

	if *featurePath == "" {
		fmt.Fprintln(os.Stderr, "usage: contigbin -features <file> [-config <file>] [-out <dir>]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			logger.Error("failed to load config", logging.Err(err), logging.Str("path", *configPath))
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		logger.Error("failed to create output directory", logging.Err(err))
		os.Exit(1)
	}

	logger.Info("opening feature file", logging.Str("path", *featurePath))
	store, err := features.OpenMapped(*featurePath)
	if err != nil {
		logger.Error("failed to open feature file", logging.Err(err))
		os.Exit(1)
	}
	defer store.Close()

	reg := metrics.NewRegistry()
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, reg, logger)
	}

	p, err := pipeline.New(cfg, store, scoring.CosineScorer{}, logger, reg)
	if err != nil {
		logger.Error("failed to initialize pipeline", logging.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := p.Run(ctx)
	if err != nil {
		logger.Error("run failed", logging.Err(err))
		os.Exit(1)
	}

	assignPath := filepath.Join(*outDir, "assignments.tsv")
	if err := export.WriteAssignmentsFile(assignPath, res.Partition); err != nil {
		logger.Error("failed to write assignments", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("wrote assignments",
		logging.Str("path", assignPath),
		logging.Int("contigs", res.Partition.Len()),
		logging.Int("bins", res.FinalBins))

	if *dumpEdges {
		edgePath := filepath.Join(*outDir, "edges.bin")
		if err := writeEdges(edgePath, res, logger); err != nil {
			logger.Error("failed to write edge list", logging.Err(err))
			os.Exit(1)
		}
	}

	if res.Degraded {
		for _, w := range res.Warnings {
			logger.Warn(w)
		}
	}
}

func writeEdges(path string, res *pipeline.Result, logger logging.Logger) error {
	w, err := export.NewEdgeListWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteGraph(res.Graph); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	stats := w.Stats()
	logger.Info("wrote edge list",
		logging.Str("path", path),
		logging.F("edges", stats.EdgesWritten),
		logging.Float("compression_ratio", stats.CompressionRatio))
	return nil
}

func serveMetrics(addr string, reg *metrics.Registry, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{}))
	logger.Info("serving metrics", logging.Str("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", logging.Err(err))
	}
}
