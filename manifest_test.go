package atomupd

import "testing"

func TestCheckpointIsCheckpoint(t *testing.T) {
	if (Checkpoint{}).IsCheckpoint() {
		t.Error("zero Checkpoint reported as a checkpoint")
	}
	if !(Checkpoint{Introduces: 2}).IsCheckpoint() {
		t.Error("Checkpoint with Introduces > 0 not reported as a checkpoint")
	}
}

func TestManifestKey(t *testing.T) {
	m := Manifest{Product: "steamos", Release: "holo", Variant: "steamdeck", Branch: "stable", Arch: "amd64"}
	want := TrackKey{Product: "steamos", Release: "holo", Variant: "steamdeck", Branch: "stable", Arch: "amd64"}
	if got := m.Key(); got != want {
		t.Errorf("Key() = %+v, want %+v", got, want)
	}
}

func TestImageEligible(t *testing.T) {
	base := Image{ManifestPath: "/x", BundlePath: "/x.raucb"}
	if !base.Eligible() {
		t.Error("image with a bundle and no skip should be eligible")
	}
	noBundle := base
	noBundle.BundlePath = ""
	if noBundle.Eligible() {
		t.Error("image without a bundle should not be eligible")
	}
	skipped := base
	skipped.Manifest.Skip = true
	if skipped.Eligible() {
		t.Error("skipped image should not be eligible")
	}
}
