package atomupd

import "testing"

func mustImage(t *testing.T, release, version, buildid, path string) Image {
	t.Helper()
	v, err := ParseVersion(version)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseBuildID(buildid)
	if err != nil {
		t.Fatal(err)
	}
	return Image{
		Manifest: Manifest{
			Release: release,
			Version: v,
			BuildID: b,
		},
		ManifestPath: path,
	}
}

func TestCompareSemanticOrdering(t *testing.T) {
	a := mustImage(t, "holo", "3.1.0", "20220401.1", "/a")
	b := mustImage(t, "holo", "3.2.0", "20220411.1", "/b")
	if !Less(a, b) {
		t.Error("expected 3.1.0 < 3.2.0")
	}
	if Less(b, a) {
		t.Error("expected 3.2.0 not< 3.1.0")
	}
}

func TestCompareSnapshotOrdering(t *testing.T) {
	a := mustImage(t, "holo", "snapshot", "20220401.1", "/a")
	b := mustImage(t, "holo", "snapshot", "20220401.2", "/b")
	c := mustImage(t, "holo", "snapshot", "20220402", "/c")
	if !Less(a, b) {
		t.Error("expected same-date lower increment to sort first")
	}
	if !Less(b, c) {
		t.Error("expected earlier date to sort first")
	}
}

func TestCompareCrossScheme(t *testing.T) {
	// A snapshot hotfix with a later buildid date sorts after a versioned
	// release in the same track (SPEC_FULL.md §4.2 Rule 3).
	versioned := mustImage(t, "holo", "3.3.0", "20220423.1", "/v")
	laterSnapshot := mustImage(t, "holo", "snapshot", "20220501", "/s1")
	earlierSnapshot := mustImage(t, "holo", "snapshot", "20220101", "/s2")
	sameDateSnapshot := mustImage(t, "holo", "snapshot", "20220423.1", "/s3")

	if !Less(versioned, laterSnapshot) {
		t.Error("expected versioned < later-dated snapshot")
	}
	if !Less(earlierSnapshot, versioned) {
		t.Error("expected earlier-dated snapshot < versioned")
	}
	if !Less(sameDateSnapshot, versioned) {
		t.Error("expected same-date snapshot to sort before versioned (not strictly greater)")
	}
}

func TestCompareReleaseTakesPrecedence(t *testing.T) {
	a := mustImage(t, "holo", "9.9.9", "20990101", "/a")
	b := mustImage(t, "holo2", "1.0.0", "20200101", "/b")
	if !Less(a, b) {
		t.Error("expected release codename comparison to dominate version comparison")
	}
}

func TestTrackCheckpointLevel(t *testing.T) {
	i0 := mustImage(t, "holo", "3.1.0", "20220401.1", "/0")
	i1 := mustImage(t, "holo", "3.1.0", "20220402.3", "/1")
	i1.Checkpoint = Checkpoint{Introduces: 1}
	i2 := mustImage(t, "holo", "3.3.0", "20220423.1", "/2")
	i2.Checkpoint = Checkpoint{Requires: 1}

	track := NewTrack(TrackKey{Release: "holo"}, []Image{i2, i0, i1})
	if got := track.CheckpointLevel(track.Find("3.1.0", "20220401.1")); got != 0 {
		t.Errorf("checkpoint level at i0 = %d, want 0", got)
	}
	if got := track.CheckpointLevel(track.Find("3.1.0", "20220402.3")); got != 1 {
		t.Errorf("checkpoint level at i1 = %d, want 1", got)
	}
	if got := track.CheckpointLevel(track.Find("3.3.0", "20220423.1")); got != 1 {
		t.Errorf("checkpoint level at i2 = %d, want 1", got)
	}
}
