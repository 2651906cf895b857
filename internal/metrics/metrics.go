// Package metrics registers the Prometheus collectors that describe
// catalog builds, exports, and rebuild cadence against a caller-supplied
// Registerer (SPEC_FULL.md §9C), so that whatever HTTP transport serves
// /metrics can choose its own registry rather than this module reaching
// for the global default.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector this module's ambient packages report
// to. The zero value is not usable; construct with New.
type Metrics struct {
	Tracks                  prometheus.Gauge
	Images                  prometheus.Gauge
	RejectedManifestsTotal  prometheus.Counter
	RebuildDurationSeconds  prometheus.Histogram
	ExportFilesWrittenTotal prometheus.Counter
}

// New registers every collector against reg and returns the handle used
// to report values. Passing prometheus.NewRegistry() isolates the
// collectors for tests; passing prometheus.DefaultRegisterer behaves
// like the package-local promauto vars used elsewhere in this module.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Tracks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "atomupd",
			Subsystem: "catalog",
			Name:      "tracks",
			Help:      "Number of tracks in the most recently built catalog.",
		}),
		Images: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "atomupd",
			Subsystem: "catalog",
			Name:      "images",
			Help:      "Number of images across every track in the most recently built catalog.",
		}),
		RejectedManifestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "atomupd",
			Subsystem: "catalog",
			Name:      "rejected_manifests_total",
			Help:      "Cumulative count of manifests rejected by the Catalog Builder.",
		}),
		RebuildDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "atomupd",
			Subsystem: "catalog",
			Name:      "rebuild_duration_seconds",
			Help:      "Wall-clock duration of a scan+build rebuild cycle, excluding export.",
		}),
		ExportFilesWrittenTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "atomupd",
			Subsystem: "export",
			Name:      "files_written_total",
			Help:      "Cumulative count of files written by the Static Exporter, including gzip siblings.",
		}),
	}
}
