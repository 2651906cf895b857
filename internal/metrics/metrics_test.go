package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistersEveryCollectorOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Tracks.Set(3)
	m.Images.Set(42)
	m.RejectedManifestsTotal.Inc()
	m.RebuildDurationSeconds.Observe(1.5)
	m.ExportFilesWrittenTotal.Add(7)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var found []string
	for _, f := range families {
		found = append(found, f.GetName())
	}
	want := []string{
		"atomupd_catalog_tracks",
		"atomupd_catalog_images",
		"atomupd_catalog_rejected_manifests_total",
		"atomupd_catalog_rebuild_duration_seconds",
		"atomupd_export_files_written_total",
	}
	for _, w := range want {
		ok := false
		for _, f := range found {
			if f == w {
				ok = true
			}
		}
		if !ok {
			t.Errorf("expected metric family %q among %v", w, found)
		}
	}
}
