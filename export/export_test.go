package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/evlaV/steamos-atomupd"
)

func testImage(t *testing.T, release, version, buildid, path string, cp atomupd.Checkpoint) atomupd.Image {
	t.Helper()
	v, err := atomupd.ParseVersion(version)
	if err != nil {
		t.Fatal(err)
	}
	b, err := atomupd.ParseBuildID(buildid)
	if err != nil {
		t.Fatal(err)
	}
	return atomupd.Image{
		Manifest: atomupd.Manifest{
			Product: "steamos", Release: release, Variant: "steamdeck", Arch: "amd64", Branch: "stable",
			Version: v, BuildID: b, Checkpoint: cp,
		},
		ManifestPath: path,
		BundlePath:   path + ".raucb",
		UpdatePath:   path + ".raucb",
	}
}

func readJSON(t *testing.T, path string) atomupd.QueryResponse {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var resp atomupd.QueryResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
	return resp
}

func TestExportWritesCanonicalAndFallbackFiles(t *testing.T) {
	early := testImage(t, "holo", "3.1.0", "20220401.1", "/a", atomupd.Checkpoint{})
	checkpoint := testImage(t, "holo", "3.3.0", "20220501.1", "/k", atomupd.Checkpoint{Introduces: 1})
	latest := testImage(t, "holo", "3.5.0", "20230401.1", "/f", atomupd.Checkpoint{Requires: 1})

	key := atomupd.TrackKey{Product: "steamos", Release: "holo", Variant: "steamdeck", Arch: "amd64", Branch: "stable"}
	track := atomupd.NewTrack(key, []atomupd.Image{early, checkpoint, latest})
	cat := atomupd.NewCatalog(map[atomupd.TrackKey]atomupd.Track{key: track})

	root := t.TempDir()
	exp := New(root, atomupd.Config{Policy: atomupd.Policy{Variants: []string{"steamdeck"}, Branches: []string{"stable"}}})
	if err := exp.Export(context.Background(), cat); err != nil {
		t.Fatal(err)
	}

	canonical := filepath.Join(root, "holo", "steamos", "amd64", "steamdeck", "stable", "3.1.0", "20220401.1.json")
	if _, err := os.Stat(canonical); err != nil {
		t.Errorf("expected canonical file at %s: %v", canonical, err)
	}
	resp := readJSON(t, canonical)
	if resp.Minor == nil || len(resp.Minor.Candidates) != 2 {
		t.Errorf("canonical file for early client: got %+v, want two hops", resp)
	}

	branchFallback := filepath.Join(root, "holo", "steamos", "amd64", "steamdeck", "stable.json")
	if _, err := os.Stat(branchFallback); err != nil {
		t.Errorf("expected branch-fallback file at %s: %v", branchFallback, err)
	}
	resp = readJSON(t, branchFallback)
	if resp.Minor == nil || len(resp.Minor.Candidates) != 2 {
		t.Errorf("branch fallback: got %+v, want two hops from a pristine client", resp)
	}

	cpFallback := filepath.Join(root, "holo", "steamos", "amd64", "steamdeck", "stable.cp1.json")
	if _, err := os.Stat(cpFallback); err != nil {
		t.Errorf("expected checkpoint-fallback file at %s: %v", cpFallback, err)
	}
	resp = readJSON(t, cpFallback)
	if resp.Minor == nil || len(resp.Minor.Candidates) != 1 {
		t.Errorf("checkpoint fallback at level 1: got %+v, want a single hop to the latest image", resp)
	}

	remoteInfo := filepath.Join(root, "holo", "steamos", "amd64", "steamdeck", "remote-info.conf")
	b, err := os.ReadFile(remoteInfo)
	if err != nil {
		t.Fatalf("reading remote-info.conf: %v", err)
	}
	if got := string(b); got == "" {
		t.Error("remote-info.conf is empty")
	}
}

func TestExportLegacyLayout(t *testing.T) {
	img := testImage(t, "holo", "3.5.0", "20230401.1", "/f", atomupd.Checkpoint{})
	key := atomupd.TrackKey{Product: "steamos", Release: "holo", Variant: "steamdeck", Arch: "amd64", Branch: "stable"}
	track := atomupd.NewTrack(key, []atomupd.Image{img})
	cat := atomupd.NewCatalog(map[atomupd.TrackKey]atomupd.Track{key: track})

	root := t.TempDir()
	exp := New(root, atomupd.Config{ServeLegacyLayout: true})
	if err := exp.Export(context.Background(), cat); err != nil {
		t.Fatal(err)
	}

	legacy := filepath.Join(root, "steamos", "amd64", "3.5.0", "steamdeck", "20230401.1.json")
	if _, err := os.Stat(legacy); err != nil {
		t.Errorf("expected legacy file at %s: %v", legacy, err)
	}
}

func TestExportCompressesWhenConfigured(t *testing.T) {
	img := testImage(t, "holo", "3.5.0", "20230401.1", "/f", atomupd.Checkpoint{})
	key := atomupd.TrackKey{Product: "steamos", Release: "holo", Variant: "steamdeck", Arch: "amd64", Branch: "stable"}
	track := atomupd.NewTrack(key, []atomupd.Image{img})
	cat := atomupd.NewCatalog(map[atomupd.TrackKey]atomupd.Track{key: track})

	root := t.TempDir()
	exp := New(root, atomupd.Config{CompressExports: true})
	if err := exp.Export(context.Background(), cat); err != nil {
		t.Fatal(err)
	}

	gz := filepath.Join(root, "holo", "steamos", "amd64", "steamdeck", "stable.json.gz")
	if _, err := os.Stat(gz); err != nil {
		t.Errorf("expected gzip sibling at %s: %v", gz, err)
	}
}

func TestExportSkipsBranchlessTrackWithoutLegacyLayout(t *testing.T) {
	img := testImage(t, "holo", "3.5.0", "20230401.1", "/f", atomupd.Checkpoint{})
	img.Branch = ""
	key := img.Key()
	track := atomupd.NewTrack(key, []atomupd.Image{img})
	cat := atomupd.NewCatalog(map[atomupd.TrackKey]atomupd.Track{key: track})

	root := t.TempDir()
	exp := New(root, atomupd.Config{})
	if err := exp.Export(context.Background(), cat); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files written for a branchless track with legacy layout off, got %v", entries)
	}
}
