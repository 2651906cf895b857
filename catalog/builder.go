// Package catalog implements the Catalog Builder: it validates raw
// manifests found by the scanner against server policy, groups
// accepted manifests into tracks, enforces the checkpoint
// multiplicity invariant, and assembles an [atomupd.Catalog]
// (SPEC_FULL.md §4.2).
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/evlaV/steamos-atomupd"
	"github.com/evlaV/steamos-atomupd/internal/metrics"
	"github.com/evlaV/steamos-atomupd/scanner"
)

// Builder applies Policy to a set of scanned manifests and assembles a
// Catalog.
type Builder struct {
	Policy atomupd.Policy

	// Metrics, if non-nil, receives the Catalog Builder's collectors
	// (SPEC_FULL.md §9C). Nil disables reporting.
	Metrics *metrics.Metrics
}

// New returns a Builder enforcing policy. Callers should call
// policy.Validate first; Build does not re-validate the Policy itself.
func New(policy atomupd.Policy) *Builder {
	return &Builder{Policy: policy}
}

// Build validates found, assembles the accepted Images into tracks, and
// returns the resulting Catalog along with a Diagnostics ledger
// recording every rejection and multiplicity violation (SPEC_FULL.md
// §4.2, §7). Build never returns an error for bad input data — every
// rejection is a diagnostic entry, not a failure of the build itself.
func (b *Builder) Build(ctx context.Context, found []scanner.Found) (*atomupd.Catalog, atomupd.Diagnostics) {
	var diag atomupd.Diagnostics

	byKey := make(map[atomupd.TrackKey][]atomupd.Image)
	for _, f := range found {
		img, err := b.validate(f)
		if err != nil {
			kind := atomupd.ErrInvalid
			var ae *atomupd.Error
			if ok := asAtomupdError(err, &ae); ok {
				kind = ae.Kind
			}
			diag.Add(f.ManifestPath, kind, err.Error())
			slog.WarnContext(ctx, "manifest rejected", "path", f.ManifestPath, "reason", err)
			if b.Metrics != nil {
				b.Metrics.RejectedManifestsTotal.Inc()
			}
			continue
		}
		key := img.Key()
		byKey[key] = append(byKey[key], img)
	}

	tracks := make(map[atomupd.TrackKey]atomupd.Track, len(byKey))
	imageCount := 0
	for key, images := range byKey {
		accepted := enforceMultiplicity(images, &diag, b.Metrics)
		tracks[key] = atomupd.NewTrack(key, accepted)
		imageCount += len(accepted)
	}

	if b.Metrics != nil {
		b.Metrics.Tracks.Set(float64(len(tracks)))
		b.Metrics.Images.Set(float64(imageCount))
	}

	cat := atomupd.NewCatalog(tracks)
	diag.Generation = cat.Generation
	slog.InfoContext(ctx, "catalog built", "tracks", len(tracks), "rejections", len(diag.Entries))
	return cat, diag
}

func asAtomupdError(err error, target **atomupd.Error) bool {
	for err != nil {
		if ae, ok := err.(*atomupd.Error); ok {
			*target = ae
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// validate applies rules 1-5 in order, discarding at the first
// failure.
func (b *Builder) validate(f scanner.Found) (atomupd.Image, error) {
	raw := f.Raw

	// Rule 1: mandatory fields present, non-empty.
	for name, v := range map[string]string{
		"product": raw.Product, "release": raw.Release, "variant": raw.Variant,
		"arch": raw.Arch, "version": raw.Version, "buildid": raw.BuildID,
	} {
		if v == "" {
			return atomupd.Image{}, &atomupd.Error{Op: "catalog.validate", Kind: atomupd.ErrInvalid,
				Message: fmt.Sprintf("missing mandatory field %q", name)}
		}
	}

	// Rule 2: allow-listed fields in policy.
	switch {
	case !b.Policy.AllowsProduct(raw.Product):
		return atomupd.Image{}, &atomupd.Error{Op: "catalog.validate", Kind: atomupd.ErrInvalid,
			Message: fmt.Sprintf("product %q not in policy", raw.Product)}
	case !b.Policy.AllowsRelease(raw.Release):
		return atomupd.Image{}, &atomupd.Error{Op: "catalog.validate", Kind: atomupd.ErrInvalid,
			Message: fmt.Sprintf("release %q not in policy", raw.Release)}
	case !b.Policy.AllowsVariant(raw.Variant):
		return atomupd.Image{}, &atomupd.Error{Op: "catalog.validate", Kind: atomupd.ErrInvalid,
			Message: fmt.Sprintf("variant %q not in policy", raw.Variant)}
	case !b.Policy.AllowsArch(raw.Arch):
		return atomupd.Image{}, &atomupd.Error{Op: "catalog.validate", Kind: atomupd.ErrInvalid,
			Message: fmt.Sprintf("arch %q not in policy", raw.Arch)}
	case !b.Policy.AllowsBranch(raw.Branch):
		return atomupd.Image{}, &atomupd.Error{Op: "catalog.validate", Kind: atomupd.ErrInvalid,
			Message: fmt.Sprintf("branch %q not in policy", raw.Branch)}
	}

	// Rule 3: version.
	version, err := atomupd.ParseVersion(raw.Version)
	if err != nil {
		return atomupd.Image{}, err
	}

	// Rule 4: buildid.
	buildID, err := atomupd.ParseBuildID(raw.BuildID)
	if err != nil {
		return atomupd.Image{}, err
	}

	// Rule 5: checkpoint fields non-negative.
	if raw.Introduces < 0 || raw.Requires < 0 {
		return atomupd.Image{}, &atomupd.Error{Op: "catalog.validate", Kind: atomupd.ErrInvalid,
			Message: "checkpoint fields must be >= 0"}
	}

	manifest := atomupd.Manifest{
		Product: raw.Product, Release: raw.Release, Variant: raw.Variant,
		Branch: raw.Branch, Arch: raw.Arch,
		Version: version, BuildID: buildID,
		Checkpoint:    raw.Checkpoint,
		Skip:          raw.Skip,
		EstimatedSize: raw.EstSize,
		DefaultBranch: raw.DefaultBranch,
	}
	return atomupd.Image{
		Manifest:       manifest,
		ManifestPath:   f.ManifestPath,
		BundlePath:     f.BundlePath,
		ChunkStorePath: f.ChunkStorePath,
		UpdatePath:     f.UpdatePath,
	}, nil
}

// enforceMultiplicity implements the checkpoint multiplicity invariant
// (SPEC_FULL.md §3, §4.2): per introduces-level k>=1, at most one
// non-skipped canonical and at most one non-skipped shadow Image may
// survive. Violations keep the first-seen (by manifest path, for
// determinism) and discard the rest, recording a diagnostic for each
// discard.
func enforceMultiplicity(images []atomupd.Image, diag *atomupd.Diagnostics, m *metrics.Metrics) []atomupd.Image {
	sort.Slice(images, func(i, j int) bool { return images[i].ManifestPath < images[j].ManifestPath })

	seenCanonical := make(map[int]bool)
	seenShadow := make(map[int]bool)
	out := make([]atomupd.Image, 0, len(images))
	for _, img := range images {
		level := img.Introduces
		if img.Skip || level == 0 {
			out = append(out, img)
			continue
		}
		if img.Shadow {
			if seenShadow[level] {
				diag.Add(img.ManifestPath, atomupd.ErrConflict,
					fmt.Sprintf("duplicate shadow checkpoint at level %d", level))
				if m != nil {
					m.RejectedManifestsTotal.Inc()
				}
				continue
			}
			seenShadow[level] = true
		} else {
			if seenCanonical[level] {
				diag.Add(img.ManifestPath, atomupd.ErrConflict,
					fmt.Sprintf("duplicate canonical checkpoint at level %d", level))
				if m != nil {
					m.RejectedManifestsTotal.Inc()
				}
				continue
			}
			seenCanonical[level] = true
		}
		out = append(out, img)
	}
	return out
}
