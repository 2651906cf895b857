package atomupd

import (
	"time"

	"github.com/google/uuid"
)

// Catalog is the set of all accepted tracks, indexed by TrackKey. A
// Catalog is immutable once constructed; rebuilding means constructing a
// new one and swapping the reference a Selector reads (SPEC_FULL.md §5).
type Catalog struct {
	// Generation identifies the build that produced this Catalog. It
	// correlates diagnostics, metrics, and exported files with a specific
	// rebuild.
	Generation uuid.UUID
	// BuiltAt is when the build that produced this Catalog completed.
	BuiltAt time.Time

	tracks map[TrackKey]Track
}

// NewCatalog assembles a Catalog from its tracks. Each Track's Images must
// already be sorted (see NewTrack); NewCatalog does not re-sort.
func NewCatalog(tracks map[TrackKey]Track) *Catalog {
	c := &Catalog{
		Generation: uuid.New(),
		BuiltAt:    time.Now(),
		tracks:     make(map[TrackKey]Track, len(tracks)),
	}
	for k, t := range tracks {
		c.tracks[k] = t
	}
	return c
}

// Track returns the track for key, and whether it exists.
func (c *Catalog) Track(key TrackKey) (Track, bool) {
	t, ok := c.tracks[key]
	return t, ok
}

// Tracks returns every track in the Catalog. The returned slice is a copy;
// callers may not observe mutation of the Catalog through it.
func (c *Catalog) Tracks() []Track {
	out := make([]Track, 0, len(c.tracks))
	for _, t := range c.tracks {
		out = append(out, t)
	}
	return out
}

// Len reports how many tracks the Catalog holds.
func (c *Catalog) Len() int { return len(c.tracks) }

// NextRelease returns the track sharing (product, arch, variant, branch)
// with key whose release codename is the smallest one strictly greater
// than key.Release and which contains at least one non-skipped,
// non-shadow Image, per SPEC_FULL.md §4.3 Step 5. ok is false if no such
// track exists.
func (c *Catalog) NextRelease(key TrackKey) (t Track, ok bool) {
	best := ""
	for k, candidate := range c.tracks {
		if k.Product != key.Product || k.Arch != key.Arch || k.Variant != key.Variant || k.Branch != key.Branch {
			continue
		}
		if k.Release <= key.Release {
			continue
		}
		if !hasProposable(candidate) {
			continue
		}
		if best == "" || k.Release < best {
			best = k.Release
			t = candidate
			ok = true
		}
	}
	return t, ok
}

func hasProposable(t Track) bool {
	for _, img := range t.Images {
		if img.Eligible() && !img.Shadow {
			return true
		}
	}
	return false
}

// Diagnostics records every ingestion rejection and multiplicity
// violation encountered while building a Catalog (SPEC_FULL.md §4.2, §7).
// It travels alongside the Catalog it describes and may additionally be
// persisted to a durable ledger (see the diagnostics package).
type Diagnostics struct {
	Generation uuid.UUID
	Entries    []DiagnosticEntry
}

// DiagnosticEntry is a single rejected manifest or multiplicity violation.
type DiagnosticEntry struct {
	Path    string
	Kind    ErrorKind
	Message string
}

// Add appends an entry to the ledger.
func (d *Diagnostics) Add(path string, kind ErrorKind, message string) {
	d.Entries = append(d.Entries, DiagnosticEntry{Path: path, Kind: kind, Message: message})
}
