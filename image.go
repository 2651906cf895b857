package atomupd

// Image is a validated Manifest plus the on-disk artifacts the Scanner
// found alongside it.
type Image struct {
	Manifest

	// ManifestPath is the absolute path to the "*.manifest.json" file.
	ManifestPath string
	// BundlePath is the absolute path to the adjacent ".raucb" file, or ""
	// if it is missing. A missing bundle makes the Image resolvable (a
	// client may still be running it) but ineligible as a proposed update
	// (SPEC_FULL.md §3).
	BundlePath string
	// ChunkStorePath is the absolute path to the adjacent ".castr"
	// directory, or "" if it is missing. Its presence is not otherwise
	// interpreted by this module.
	ChunkStorePath string
	// UpdatePath is the URL path, relative to the scan root, at which the
	// bundle is served.
	UpdatePath string
}

// HasBundle reports whether this Image is eligible to be proposed as an
// update target.
func (i Image) HasBundle() bool { return i.BundlePath != "" }

// Eligible reports whether this Image may be proposed as a selector
// candidate: it has a bundle and it has not been retired by a skip
// tombstone.
func (i Image) Eligible() bool { return i.HasBundle() && !i.Skip }
