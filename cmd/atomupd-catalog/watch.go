package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/evlaV/steamos-atomupd"
	"github.com/evlaV/steamos-atomupd/export"
	"github.com/evlaV/steamos-atomupd/internal/metrics"
	"github.com/evlaV/steamos-atomupd/internal/rebuild"
	"github.com/evlaV/steamos-atomupd/internal/telemetry"
)

// runWatch rebuilds on a timer and on SIGHUP, writing a fresh static
// export after every successful rebuild. It never binds a socket
// itself (SPEC_FULL.md §1): pair it with a plain file server pointed at
// -export.
func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	var f pipelineFlags
	f.register(fs)
	interval := fs.Duration("interval", 5*time.Minute, "periodic rebuild interval, independent of SIGHUP triggers")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, shutdown, err := telemetry.Bootstrap(ctx, f.telemetryConfig("atomupd-catalog-watch"))
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
	exp := export.New(f.exportRoot, cfg)
	exp.Metrics = m

	mgr := rebuild.New(func(ctx context.Context) (*atomupd.Catalog, atomupd.Diagnostics, error) {
		return scanAndBuild(ctx, f.scanRoot, cfg, m)
	}, time.Duration(cfg.RebuildDebounce))
	mgr.Diagnostics = sink
	mgr.Metrics = m

	exportIfRebuilt := func(ctx context.Context, trigger string, rebuildErr error) {
		if rebuildErr != nil {
			slog.ErrorContext(ctx, "rebuild failed", "trigger", trigger, "error", rebuildErr)
			return
		}
		if err := exp.Export(ctx, mgr.Catalog()); err != nil {
			slog.ErrorContext(ctx, "export failed", "trigger", trigger, "error", err)
		}
	}

	exportIfRebuilt(ctx, "startup", mgr.Rebuild(ctx))

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Notify respects the debounce window, so ticks closer
			// together than -rebuild-debounce coalesce. SIGHUP rebuilds
			// bypass the limiter and do not count toward that window.
			exportIfRebuilt(ctx, "timer", mgr.Notify(ctx))
		case <-sighup:
			// SIGHUP is an explicit operator request: always rebuild.
			exportIfRebuilt(ctx, "sighup", mgr.Rebuild(ctx))
		}
	}
}
