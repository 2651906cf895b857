// Package selector implements the Selector: given a client descriptor
// and a Catalog, it computes the minimal hop list of Images the client
// must install to reach the latest image it may install, applying the
// checkpoint protocol (SPEC_FULL.md §4.3).
package selector

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/evlaV/steamos-atomupd"
)

var tracer = otel.Tracer("github.com/evlaV/steamos-atomupd/selector")

var queriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "atomupd",
		Subsystem: "selector",
		Name:      "queries_total",
		Help:      "Total number of Select calls, by outcome.",
	},
	[]string{"outcome"},
)

// Selector answers update queries against a Catalog.
type Selector struct {
	Catalog *atomupd.Catalog
	Config  atomupd.Config
}

// New returns a Selector over catalog, tuned by cfg.
func New(catalog *atomupd.Catalog, cfg atomupd.Config) *Selector {
	return &Selector{Catalog: catalog, Config: cfg}
}

// Select answers a single client query (SPEC_FULL.md §4.3).
func (s *Selector) Select(ctx context.Context, d atomupd.ClientDescriptor) (atomupd.QueryResponse, error) {
	ctx, span := tracer.Start(ctx, "Selector.Select", trace.WithAttributes(
		attribute.String("release", d.Release),
		attribute.String("variant", d.Variant),
	))
	defer span.End()

	var resp atomupd.QueryResponse
	if s.Catalog == nil {
		return resp, &atomupd.Error{Op: "selector.Select", Kind: atomupd.ErrPrecondition, Message: "no catalog has been built"}
	}
	key := d.TrackKey()
	track, ok := s.Catalog.Track(key)
	if !ok {
		slog.WarnContext(ctx, "client track not found", "track", key)
		queriesTotal.WithLabelValues("unknown_track").Inc()
		return resp, nil
	}

	idx := track.Find(d.Version, d.BuildID)
	C := track.CheckpointLevel(idx)
	if idx == -1 && d.CheckpointLevel != nil {
		// Unknown (version, buildid): fall back to the level the client
		// itself reports, the same lookup a .cpN.json fallback file
		// answers (SPEC_FULL.md §4.3 Step 1, §4.4, §8 scenario 5).
		C = *d.CheckpointLevel
	}

	if hops := hopList(track, idx, C); len(hops) > 0 {
		resp.Minor = &atomupd.ReleaseCandidates{
			Release:    track.Key.Release,
			Candidates: toCandidates(hops),
		}
	}

	if s.Config.EnableMajorUpdates {
		if next, ok := s.Catalog.NextRelease(key); ok {
			if hops := hopList(next, -1, C); len(hops) > 0 {
				resp.Major = &atomupd.ReleaseCandidates{
					Release:    next.Key.Release,
					Candidates: toCandidates(hops),
				}
			}
		}
	}

	outcome := "empty"
	switch {
	case resp.Minor != nil && resp.Major != nil:
		outcome = "minor_and_major"
	case resp.Minor != nil:
		outcome = "minor"
	case resp.Major != nil:
		outcome = "major"
	}
	queriesTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("outcome", outcome))
	return resp, nil
}

// SelectAtLevel answers the checkpoint-fallback query for a client
// known only to be at checkpoint level, with no specific version
// (SPEC_FULL.md §4.4 "checkpoint fallback"). It is also used, with
// level 0, to compute the branch-fallback answer for a pristine
// client.
func (s *Selector) SelectAtLevel(ctx context.Context, key atomupd.TrackKey, level int) atomupd.QueryResponse {
	var resp atomupd.QueryResponse
	track, ok := s.Catalog.Track(key)
	if !ok {
		return resp
	}
	if hops := hopList(track, -1, level); len(hops) > 0 {
		resp.Minor = &atomupd.ReleaseCandidates{
			Release:    track.Key.Release,
			Candidates: toCandidates(hops),
		}
	}
	return resp
}

func toCandidates(hops []atomupd.Image) []atomupd.Candidate {
	out := make([]atomupd.Candidate, len(hops))
	for i, h := range hops {
		out[i] = atomupd.NewCandidate(h)
	}
	return out
}

// hopList computes the minimal sequence of Images a client positioned
// at startIdx (index into track.Images, or -1 for "before the start of
// the track") with checkpoint level c must install to reach the latest
// image it can reach (SPEC_FULL.md §4.3 Steps 2-4).
//
// This walks the track once, forward, rather than precomputing a fixed
// target L from the client's initial level: a shadow checkpoint
// encountered partway through the walk can raise the virtual level and
// make images beyond what the initial C would allow reachable, and the
// walk must account for that (see SPEC_FULL.md §8 scenario 4 — a shadow
// checkpoint raising level 1 to level 3 makes a requires=3 image
// reachable that a static reachable-now/blocked partition computed from
// the initial C alone would wrongly discard).
func hopList(track atomupd.Track, startIdx, c int) []atomupd.Image {
	var hops []atomupd.Image
	pos := startIdx
	bestReachable := -1

walk:
	for i := startIdx + 1; i < len(track.Images); i++ {
		img := track.Images[i]
		if img.Skip {
			continue
		}
		switch {
		case img.Shadow:
			if img.Introduces > c && img.Requires <= c {
				c = img.Introduces
			}
		case !img.HasBundle():
			// Resolvable as a client image, but never proposed as a hop.
			continue
		case img.Introduces > c:
			// A mandatory canonical checkpoint the client hasn't
			// crossed yet: it must be installed as its own hop, or
			// (if unreachable) the walk cannot proceed past it.
			if img.Requires > c {
				break walk
			}
			hops = append(hops, img)
			c = img.Introduces
			pos = i
			bestReachable = i
		default:
			if img.Requires <= c {
				bestReachable = i
			}
		}
	}

	if bestReachable != -1 && bestReachable != pos {
		hops = append(hops, track.Images[bestReachable])
	}
	return hops
}
