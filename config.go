package atomupd

import (
	"errors"
	"time"
)

// Duration is a serializable [time.Duration], for configuration values
// expressed as e.g. "30m" rather than a raw integer of nanoseconds.
type Duration time.Duration

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(b []byte) error {
	dur, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d *Duration) MarshalText() ([]byte, error) {
	if d == nil {
		return nil, errors.New("cannot marshal nil duration")
	}
	return []byte(time.Duration(*d).String()), nil
}

// Policy is the server's allow-lists and mandatory-field policy applied
// by the Catalog Builder (SPEC_FULL.md §4.2, rules 1-2). An empty
// allow-list for a given field rejects every manifest for that field —
// callers constructing a Policy by hand should treat that as a
// configuration error (ErrPermanent), not silently accept nothing.
type Policy struct {
	Products []string
	Releases []string
	Variants []string
	Branches []string // may be empty only if branches are never used
	Arches   []string
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// AllowsProduct reports whether product is in the allow-list.
func (p Policy) AllowsProduct(product string) bool { return contains(p.Products, product) }

// AllowsRelease reports whether release is in the allow-list.
func (p Policy) AllowsRelease(release string) bool { return contains(p.Releases, release) }

// AllowsVariant reports whether variant is in the allow-list.
func (p Policy) AllowsVariant(variant string) bool { return contains(p.Variants, variant) }

// AllowsArch reports whether arch is in the allow-list.
func (p Policy) AllowsArch(arch string) bool { return contains(p.Arches, arch) }

// AllowsBranch reports whether branch is in the allow-list, or is empty
// (legacy, branch-less images are always permitted).
func (p Policy) AllowsBranch(branch string) bool { return branch == "" || contains(p.Branches, branch) }

// Validate reports a configuration error (ErrPermanent) if the Policy
// cannot accept any manifest at all.
func (p Policy) Validate() error {
	switch {
	case len(p.Products) == 0:
		return &Error{Op: "atomupd.Policy.Validate", Kind: ErrPermanent, Message: "no products configured"}
	case len(p.Releases) == 0:
		return &Error{Op: "atomupd.Policy.Validate", Kind: ErrPermanent, Message: "no releases configured"}
	case len(p.Variants) == 0:
		return &Error{Op: "atomupd.Policy.Validate", Kind: ErrPermanent, Message: "no variants configured"}
	case len(p.Arches) == 0:
		return &Error{Op: "atomupd.Policy.Validate", Kind: ErrPermanent, Message: "no architectures configured"}
	}
	return nil
}

// Config gathers the ambient knobs that tune the pipeline without
// changing its semantics (SPEC_FULL.md §9, §9D). The zero value is a
// reasonable, conservative default.
type Config struct {
	Policy Policy

	// EnableMajorUpdates gates the Selector's next-release probe
	// (§4.3 Step 5). Off by default, matching current deployments.
	EnableMajorUpdates bool
	// ServeLegacyLayout makes the Static Exporter additionally write the
	// pre-branch legacy path for every canonical file (§4.5).
	ServeLegacyLayout bool
	// CompressExports makes the Static Exporter write a gzip-compressed
	// ".gz" sibling of every JSON file it writes (§4.4, §9D).
	CompressExports bool

	// RebuildDebounce is the minimum interval between two rebuilds
	// triggered by external notifications; a burst of notifications
	// within this window coalesces into a single rebuild (§5, §9D). Zero
	// disables debouncing (every notification rebuilds immediately).
	RebuildDebounce Duration

	// ScanWorkers bounds how many manifest files the Scanner loads
	// concurrently. Zero means a sensible default (GOMAXPROCS).
	ScanWorkers int
	// ExportWorkers bounds how many files the Static Exporter writes
	// concurrently. Zero means a sensible default.
	ExportWorkers int
}
