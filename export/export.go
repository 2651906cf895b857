// Package export implements the Static Exporter: it enumerates every
// client descriptor reachable from a Catalog, invokes the Selector for
// each, and writes the resulting JSON responses into a file tree whose
// paths mirror the wire URL scheme (SPEC_FULL.md §4.4, §6.2).
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/evlaV/steamos-atomupd"
	"github.com/evlaV/steamos-atomupd/internal/metrics"
	"github.com/evlaV/steamos-atomupd/selector"
)

// Exporter writes a Catalog's query answers to a static file tree
// rooted at Root.
type Exporter struct {
	Root   string
	Config atomupd.Config

	// Metrics, if non-nil, receives the Static Exporter's collectors
	// (SPEC_FULL.md §9C). Nil disables reporting.
	Metrics *metrics.Metrics
}

// New returns an Exporter rooted at root.
func New(root string, cfg atomupd.Config) *Exporter {
	return &Exporter{Root: root, Config: cfg}
}

// Export writes every canonical, branch-fallback, and checkpoint-
// fallback file for catalog, plus remote-info.conf and (if configured)
// the legacy layout and gzip siblings.
func (e *Exporter) Export(ctx context.Context, cat *atomupd.Catalog) error {
	sel := selector.New(cat, e.Config)

	workers := e.Config.ExportWorkers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	remoteInfoDirs := make(map[string]bool)

	for _, track := range cat.Tracks() {
		track := track
		key := track.Key

		for _, img := range track.Images {
			img := img
			g.Go(func() error { return e.writeCanonical(gctx, sel, key, img) })
		}

		if key.Branch != "" {
			g.Go(func() error { return e.writeBranchFallback(gctx, sel, key) })
			for _, level := range checkpointLevels(track) {
				level := level
				g.Go(func() error { return e.writeCheckpointFallback(gctx, sel, key, level) })
			}

			dir := filepath.Join(key.Release, key.Product, key.Arch, key.Variant)
			if !remoteInfoDirs[dir] {
				remoteInfoDirs[dir] = true
				g.Go(func() error { return e.writeRemoteInfo(gctx, dir) })
			}
		} else if e.Config.ServeLegacyLayout {
			slog.DebugContext(ctx, "track has no branch; serving legacy layout only", "track", key)
		} else {
			slog.WarnContext(ctx, "track has no branch and legacy layout is disabled; nothing exported", "track", key)
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "export complete", "tracks", cat.Len(), "generation", cat.Generation)
	return nil
}

func checkpointLevels(t atomupd.Track) []int {
	seen := make(map[int]bool)
	var levels []int
	for _, img := range t.Images {
		if img.Skip || img.Shadow || img.Introduces == 0 {
			continue
		}
		if !seen[img.Introduces] {
			seen[img.Introduces] = true
			levels = append(levels, img.Introduces)
		}
	}
	return levels
}

func (e *Exporter) writeCanonical(ctx context.Context, sel *selector.Selector, key atomupd.TrackKey, img atomupd.Image) error {
	resp, err := sel.Select(ctx, atomupd.ClientDescriptor{
		Product: key.Product, Release: key.Release, Arch: key.Arch, Variant: key.Variant, Branch: key.Branch,
		Version: img.Version.String(), BuildID: img.BuildID.String(),
	})
	if err != nil {
		return err
	}
	b, err := encode(resp)
	if err != nil {
		return err
	}
	if key.Branch != "" {
		path := filepath.Join(e.Root, key.Release, key.Product, key.Arch, key.Variant, key.Branch,
			img.Version.String(), img.BuildID.String()+".json")
		if err := e.writeAtomic(path, b); err != nil {
			return err
		}
	}
	if e.Config.ServeLegacyLayout {
		legacy := filepath.Join(e.Root, key.Product, key.Arch, img.Version.String(), key.Variant,
			img.BuildID.String()+".json")
		if err := e.writeAtomic(legacy, b); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeBranchFallback(ctx context.Context, sel *selector.Selector, key atomupd.TrackKey) error {
	resp := sel.SelectAtLevel(ctx, key, 0)
	b, err := encode(resp)
	if err != nil {
		return err
	}
	path := filepath.Join(e.Root, key.Release, key.Product, key.Arch, key.Variant, key.Branch+".json")
	return e.writeAtomic(path, b)
}

func (e *Exporter) writeCheckpointFallback(ctx context.Context, sel *selector.Selector, key atomupd.TrackKey, level int) error {
	resp := sel.SelectAtLevel(ctx, key, level)
	b, err := encode(resp)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s.cp%d.json", key.Branch, level)
	path := filepath.Join(e.Root, key.Release, key.Product, key.Arch, key.Variant, name)
	return e.writeAtomic(path, b)
}

func (e *Exporter) writeRemoteInfo(ctx context.Context, relDir string) error {
	var buf strings.Builder
	buf.WriteString("[Server]\n")
	fmt.Fprintf(&buf, "Variants = %s\n", strings.Join(e.Config.Policy.Variants, ";"))
	fmt.Fprintf(&buf, "Branches = %s\n", strings.Join(e.Config.Policy.Branches, ";"))
	path := filepath.Join(e.Root, relDir, "remote-info.conf")
	return e.writeAtomic(path, []byte(buf.String()))
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return buf.Bytes(), nil
}

// writeAtomic writes b to path via a temp file in the same directory
// followed by os.Rename, so a concurrent reader never observes a
// truncated file (SPEC_FULL.md §4.4, §5). When CompressExports is set,
// a gzip-compressed ".gz" sibling is written the same way.
func (e *Exporter) writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := atomicWrite(path, b); err != nil {
		return err
	}
	if e.Metrics != nil {
		e.Metrics.ExportFilesWrittenTotal.Inc()
	}
	if e.Config.CompressExports {
		var gz bytes.Buffer
		w, err := gzip.NewWriterLevel(&gz, gzip.BestSpeed)
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		if err := atomicWrite(path+".gz", gz.Bytes()); err != nil {
			return err
		}
		if e.Metrics != nil {
			e.Metrics.ExportFilesWrittenTotal.Inc()
		}
	}
	return nil
}

// atomicWrite publishes b at path, retrying once if the first attempt
// fails.
func atomicWrite(path string, b []byte) error {
	err := atomicWriteOnce(path, b)
	if err != nil {
		slog.Warn("export write failed, retrying", "path", path, "error", err)
		err = atomicWriteOnce(path, b)
	}
	return err
}

func atomicWriteOnce(path string, b []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
