package catalog

import (
	"context"
	"testing"

	"github.com/evlaV/steamos-atomupd"
	"github.com/evlaV/steamos-atomupd/scanner"
)

func rawFound(path string, raw atomupd.RawManifest) scanner.Found {
	return scanner.Found{
		ManifestPath: path,
		BundlePath:   path + ".raucb",
		UpdatePath:   path + ".raucb",
		Raw:          raw,
	}
}

func testPolicy() atomupd.Policy {
	return atomupd.Policy{
		Products: []string{"steamos"},
		Releases: []string{"holo"},
		Variants: []string{"steamdeck"},
		Arches:   []string{"amd64"},
		Branches: []string{"stable"},
	}
}

func TestBuildAcceptsValidManifest(t *testing.T) {
	found := []scanner.Found{rawFound("/a", atomupd.RawManifest{
		Product: "steamos", Release: "holo", Variant: "steamdeck", Arch: "amd64",
		Version: "3.5.0", BuildID: "20240104.1",
	})}
	b := New(testPolicy())
	cat, diag := b.Build(context.Background(), found)
	if len(diag.Entries) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diag.Entries)
	}
	if cat.Len() != 1 {
		t.Fatalf("got %d tracks, want 1", cat.Len())
	}
}

func TestBuildStampsDiagnosticsWithCatalogGeneration(t *testing.T) {
	found := []scanner.Found{rawFound("/a", atomupd.RawManifest{
		Product: "steamos", Release: "holo", Variant: "steamdeck", Arch: "amd64",
		Version: "3.5.0", BuildID: "20240104.1",
	})}
	b := New(testPolicy())
	cat, diag := b.Build(context.Background(), found)
	if diag.Generation != cat.Generation {
		t.Fatalf("diag.Generation = %v, want cat.Generation = %v", diag.Generation, cat.Generation)
	}
}

func TestBuildRejectsMissingField(t *testing.T) {
	found := []scanner.Found{rawFound("/a", atomupd.RawManifest{
		Release: "holo", Variant: "steamdeck", Arch: "amd64",
		Version: "3.5.0", BuildID: "20240104.1",
	})}
	b := New(testPolicy())
	cat, diag := b.Build(context.Background(), found)
	if cat.Len() != 0 {
		t.Errorf("expected no tracks, got %d", cat.Len())
	}
	if len(diag.Entries) != 1 || diag.Entries[0].Kind != atomupd.ErrInvalid {
		t.Fatalf("got diagnostics %+v, want one ErrInvalid entry", diag.Entries)
	}
}

func TestBuildRejectsOutOfPolicy(t *testing.T) {
	found := []scanner.Found{rawFound("/a", atomupd.RawManifest{
		Product: "other", Release: "holo", Variant: "steamdeck", Arch: "amd64",
		Version: "3.5.0", BuildID: "20240104.1",
	})}
	b := New(testPolicy())
	cat, diag := b.Build(context.Background(), found)
	if cat.Len() != 0 {
		t.Errorf("expected no tracks, got %d", cat.Len())
	}
	if len(diag.Entries) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diag.Entries))
	}
}

func TestBuildEnforcesCheckpointMultiplicity(t *testing.T) {
	base := atomupd.RawManifest{Product: "steamos", Release: "holo", Variant: "steamdeck", Arch: "amd64"}

	first := base
	first.Version, first.BuildID = "3.5.0", "20240104.1"
	first.Checkpoint = atomupd.Checkpoint{Introduces: 1}

	dup := base
	dup.Version, dup.BuildID = "3.5.1", "20240105.1"
	dup.Checkpoint = atomupd.Checkpoint{Introduces: 1}

	found := []scanner.Found{
		rawFound("/a", first),
		rawFound("/b", dup),
	}
	b := New(testPolicy())
	cat, diag := b.Build(context.Background(), found)

	track, ok := cat.Track(atomupd.TrackKey{Product: "steamos", Release: "holo", Variant: "steamdeck", Arch: "amd64"})
	if !ok {
		t.Fatal("expected track to exist")
	}
	if len(track.Images) != 1 {
		t.Fatalf("got %d images, want 1 after multiplicity enforcement", len(track.Images))
	}
	foundConflict := false
	for _, e := range diag.Entries {
		if e.Kind == atomupd.ErrConflict {
			foundConflict = true
		}
	}
	if !foundConflict {
		t.Error("expected an ErrConflict diagnostic for the duplicate checkpoint")
	}
}
