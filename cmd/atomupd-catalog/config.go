package main

import (
	"flag"
	"strings"
	"time"

	"github.com/evlaV/steamos-atomupd"
	"github.com/evlaV/steamos-atomupd/internal/telemetry"
)

// pipelineFlags are the flags shared by every subcommand: where to read
// manifests from, where to write the export, and the policy/feature
// knobs that become an atomupd.Config. Loading these from a config file
// instead of flags is left to a future iteration (SPEC_FULL.md §1): the
// core only ever consumes an already-populated Config.
type pipelineFlags struct {
	scanRoot   string
	exportRoot string
	workers    int

	products string
	releases string
	variants string
	branches string
	arches   string

	enableMajor     bool
	serveLegacy     bool
	compressExports bool
	rebuildDebounce time.Duration

	diagnosticsDSN string
	otlpEndpoint   string
	otlpProtocol   string
}

func (f *pipelineFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.scanRoot, "root", ".", "root of the manifest tree to scan")
	fs.StringVar(&f.exportRoot, "export", "./export", "root of the static export file tree to write")
	fs.IntVar(&f.workers, "workers", 0, "bounded worker count for scanning and exporting (0 = GOMAXPROCS)")

	fs.StringVar(&f.products, "products", "", "comma-separated allow-list of products")
	fs.StringVar(&f.releases, "releases", "", "comma-separated allow-list of releases")
	fs.StringVar(&f.variants, "variants", "", "comma-separated allow-list of variants")
	fs.StringVar(&f.branches, "branches", "", "comma-separated allow-list of branches")
	fs.StringVar(&f.arches, "arches", "", "comma-separated allow-list of architectures")

	fs.BoolVar(&f.enableMajor, "enable-major-updates", false, "probe the next release for major-update candidates")
	fs.BoolVar(&f.serveLegacy, "serve-legacy-layout", false, "also write the pre-branch legacy export path")
	fs.BoolVar(&f.compressExports, "compress-exports", false, "write a gzip sibling of every exported file")
	fs.DurationVar(&f.rebuildDebounce, "rebuild-debounce", 0, "minimum interval between coalesced rebuilds (watch only)")

	fs.StringVar(&f.diagnosticsDSN, "diagnostics-dsn", "", "connection string for the durable diagnostics ledger (postgres://... or sqlite:///path)")
	fs.StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "OTLP collector endpoint (empty disables export)")
	fs.StringVar(&f.otlpProtocol, "otlp-protocol", "grpc", "OTLP transport: grpc or http")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (f *pipelineFlags) config() atomupd.Config {
	return atomupd.Config{
		Policy: atomupd.Policy{
			Products: splitList(f.products),
			Releases: splitList(f.releases),
			Variants: splitList(f.variants),
			Branches: splitList(f.branches),
			Arches:   splitList(f.arches),
		},
		EnableMajorUpdates: f.enableMajor,
		ServeLegacyLayout:  f.serveLegacy,
		CompressExports:    f.compressExports,
		RebuildDebounce:    atomupd.Duration(f.rebuildDebounce),
		ScanWorkers:        f.workers,
		ExportWorkers:      f.workers,
	}
}

func (f *pipelineFlags) telemetryConfig(serviceName string) telemetry.Config {
	proto := telemetry.ProtocolGRPC
	if f.otlpProtocol == "http" {
		proto = telemetry.ProtocolHTTP
	}
	return telemetry.Config{
		Endpoint:    f.otlpEndpoint,
		Protocol:    proto,
		ServiceName: serviceName,
	}
}
