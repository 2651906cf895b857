package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/evlaV/steamos-atomupd"
	"github.com/evlaV/steamos-atomupd/catalog"
	"github.com/evlaV/steamos-atomupd/export"
	"github.com/evlaV/steamos-atomupd/internal/diagnostics"
	"github.com/evlaV/steamos-atomupd/internal/metrics"
	"github.com/evlaV/steamos-atomupd/internal/telemetry"
	"github.com/evlaV/steamos-atomupd/scanner"
)

func runBuild(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var f pipelineFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, shutdown, err := telemetry.Bootstrap(ctx, f.telemetryConfig("atomupd-catalog-build"))
	if err != nil {
		return err
	}
	defer shutdown(ctx)
	slog.SetDefault(logger)

	sink, err := openDiagnosticsSink(ctx, f.diagnosticsDSN)
	if err != nil {
		return err
	}
	if sink != nil {
		defer sink.Close()
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	cfg := f.config()
	if err := cfg.Policy.Validate(); err != nil {
		return err
	}

	cat, diag, err := scanAndBuild(ctx, f.scanRoot, cfg, m)
	if err != nil {
		return err
	}
	diagnostics.Record(ctx, sink, diag)

	exp := export.New(f.exportRoot, cfg)
	exp.Metrics = m
	if err := exp.Export(ctx, cat); err != nil {
		return err
	}
	slog.InfoContext(ctx, "build complete", "tracks", cat.Len(), "generation", cat.Generation)
	return nil
}

// scanAndBuild runs the Scanner and Catalog Builder once.
func scanAndBuild(ctx context.Context, root string, cfg atomupd.Config, m *metrics.Metrics) (*atomupd.Catalog, atomupd.Diagnostics, error) {
	sc := scanner.New(root, cfg.ScanWorkers)
	result, err := sc.Scan(ctx)
	if err != nil {
		return nil, atomupd.Diagnostics{}, err
	}
	for _, e := range result.Errors {
		slog.WarnContext(ctx, "scan error", "path", e.Path, "error", e.Err)
	}

	b := catalog.New(cfg.Policy)
	b.Metrics = m
	cat, diag := b.Build(ctx, result.Manifests)
	return cat, diag, nil
}
