package atomupd

import (
	"sort"
	"strings"
)

// Track is the set of Images sharing a TrackKey, held in Compare order
// (oldest first).
type Track struct {
	Key    TrackKey
	Images []Image
}

// Compare orders two Images per SPEC_FULL.md §4.2.
//
// Images are first ordered by release codename (ASCII lexicographic, no
// wrap-around) so the function is also meaningful across tracks. Within a
// shared release:
//
//  1. two semantic versions compare by semantic precedence, then by
//     buildid;
//  2. two snapshots compare by buildid alone;
//  3. a snapshot and a semantic version compare by buildid date only: the
//     snapshot is greater iff its buildid date is strictly later.
//
// Remaining ties are broken by the manifest's path, for determinism.
func Compare(a, b Image) int {
	if a.Release != b.Release {
		return strings.Compare(a.Release, b.Release)
	}
	switch {
	case a.Version.Kind == KindSemantic && b.Version.Kind == KindSemantic:
		if c := compareSemantic(a.Version, b.Version); c != 0 {
			return c
		}
		if c := a.BuildID.Compare(b.BuildID); c != 0 {
			return c
		}
		return strings.Compare(a.ManifestPath, b.ManifestPath)
	case a.Version.Kind == KindSnapshot && b.Version.Kind == KindSnapshot:
		if c := a.BuildID.Compare(b.BuildID); c != 0 {
			return c
		}
		return strings.Compare(a.ManifestPath, b.ManifestPath)
	case a.Version.Kind == KindSnapshot: // a is a snapshot, b is versioned
		if a.BuildID.date() > b.BuildID.date() {
			return 1
		}
		return -1
	default: // a is versioned, b is a snapshot
		if b.BuildID.date() > a.BuildID.date() {
			return -1
		}
		return 1
	}
}

// Less reports whether a sorts before b per Compare.
func Less(a, b Image) bool { return Compare(a, b) < 0 }

// sortTrack orders a track's images ascending per Compare. It is the
// Catalog Builder's responsibility to call this once per track after
// ingestion and multiplicity filtering.
func sortTrack(images []Image) {
	sort.SliceStable(images, func(i, j int) bool {
		return Less(images[i], images[j])
	})
}

// NewTrack builds a Track from an unordered slice of Images sharing key.
func NewTrack(key TrackKey, images []Image) Track {
	t := Track{Key: key, Images: append([]Image(nil), images...)}
	sortTrack(t.Images)
	return t
}

// Find returns the index of an Image matching (version, buildid) exactly,
// or -1 if absent.
func (t Track) Find(version, buildid string) int {
	for i, img := range t.Images {
		if img.Version.String() == version && img.BuildID.String() == buildid {
			return i
		}
	}
	return -1
}

// CheckpointLevel returns the checkpoint level a client sitting at index
// idx (inclusive) has reached: the maximum Introduces value among every
// non-skipped image at or before idx, canonical or shadow (SPEC_FULL.md
// §4.3, "Current checkpoint level C"). idx of -1 (an unresolved client)
// yields 0.
func (t Track) CheckpointLevel(idx int) int {
	level := 0
	for i := 0; i <= idx && i < len(t.Images); i++ {
		img := t.Images[i]
		if img.Skip {
			continue
		}
		if img.Introduces > level {
			level = img.Introduces
		}
	}
	return level
}
