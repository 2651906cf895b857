// Package scanner walks a root directory for update manifests.
//
// It finds every file named "*.manifest.json", parses it as a
// [atomupd.RawManifest], and associates it with the sibling ".raucb"
// bundle and ".castr" chunk store, if present. The directory layout
// itself carries no meaning beyond locating these siblings; only
// filenames matter (SPEC_FULL.md §4.1).
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/evlaV/steamos-atomupd"
	alog "github.com/evlaV/steamos-atomupd/internal/log"
)

const (
	manifestSuffix = ".manifest.json"
	bundleSuffix   = ".raucb"
	chunkSuffix    = ".castr"
	remoteInfoName = "remote-info.conf"
)

// Found is one manifest located by a Scan, paired with the sibling
// artifacts the Catalog Builder and Static Exporter care about.
type Found struct {
	Dir      string
	Raw      atomupd.RawManifest
	Manifest atomupd.Manifest // always the zero value: the Catalog Builder returns validated data as atomupd.Image and does not fill this field

	ManifestPath   string
	BundlePath     string
	ChunkStorePath string

	// UpdatePath is the URL path, relative to Root, at which the bundle
	// is served. Empty if BundlePath is empty.
	UpdatePath string
}

// RemoteInfo is a discovered remote-info.conf, surfaced to the Static
// Exporter but never interpreted by this module (SPEC_FULL.md §4.1).
type RemoteInfo struct {
	Path string
}

// Result is the outcome of a single Scan.
type Result struct {
	Manifests   []Found
	RemoteInfos []RemoteInfo
	Errors      []Error
}

// Error records a single file that could not be read or parsed. The
// walk continues past it (SPEC_FULL.md §4.1).
type Error struct {
	Path string
	Err  error
}

func (e Error) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

// Scanner finds manifests beneath Root.
type Scanner struct {
	Root string

	// Workers bounds how many manifest files are loaded concurrently.
	// The directory walk itself runs on a single goroutine. Zero means
	// GOMAXPROCS.
	Workers int
}

// New returns a Scanner rooted at root.
func New(root string, workers int) *Scanner {
	return &Scanner{Root: root, Workers: workers}
}

// Scan walks Root and returns every manifest found. The returned Result
// is populated even when it also returns an error: a non-nil error here
// means the walk itself was aborted (e.g. by ctx cancellation or the
// root being unreadable), distinct from the per-file Errors collected
// in Result, which never abort the walk.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	slog.DebugContext(ctx, "scan start", "root", s.Root)
	defer slog.DebugContext(ctx, "scan done")

	workers := s.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	var mu sync.Mutex
	var res Result
	visited := newInodeSet()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	walkErr := s.walkDir(gctx, s.Root, visited, &mu, &res, g)

	if err := g.Wait(); err != nil {
		return res, err
	}
	if walkErr != nil {
		return res, walkErr
	}
	return res, nil
}

// walkDir recurses into dir, dispatching manifest loads onto g. Unlike
// filepath.WalkDir, which never recurses into a symlinked directory
// (a symlink entry's DirEntry.IsDir reports false), this walk resolves
// every symlink entry and, if it points at a directory, recurses into
// it directly — guarded by visited so a symlink cycle terminates the
// walk instead of recursing forever (SPEC_FULL.md §4.1).
func (s *Scanner) walkDir(ctx context.Context, dir string, visited *inodeSet, mu *sync.Mutex, res *Result, g *errgroup.Group) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if cycle, err := visited.seen(dir); err != nil {
		mu.Lock()
		res.Errors = append(res.Errors, Error{Path: dir, Err: err})
		mu.Unlock()
		return nil
	} else if cycle {
		slog.WarnContext(alog.With(ctx, "dir", dir), "symlink cycle detected, skipping subtree")
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		mu.Lock()
		res.Errors = append(res.Errors, Error{Path: dir, Err: err})
		mu.Unlock()
		return nil
	}

	for _, d := range entries {
		path := filepath.Join(dir, d.Name())

		isDir := d.IsDir()
		if d.Type()&fs.ModeSymlink != 0 {
			fi, statErr := os.Stat(path) // follows the symlink
			if statErr != nil {
				mu.Lock()
				res.Errors = append(res.Errors, Error{Path: path, Err: statErr})
				mu.Unlock()
				continue
			}
			isDir = fi.IsDir()
		}

		if isDir {
			if err := s.walkDir(ctx, path, visited, mu, res, g); err != nil {
				return err
			}
			continue
		}

		name := d.Name()
		switch {
		case name == remoteInfoName:
			mu.Lock()
			res.RemoteInfos = append(res.RemoteInfos, RemoteInfo{Path: path})
			mu.Unlock()
		case strings.HasSuffix(name, manifestSuffix):
			p := path
			g.Go(func() error {
				found, err := loadManifest(s.Root, p)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					res.Errors = append(res.Errors, Error{Path: p, Err: err})
					return nil
				}
				res.Manifests = append(res.Manifests, found)
				return nil
			})
		}
	}
	return nil
}

func loadManifest(root, path string) (Found, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Found{}, err
	}
	var raw atomupd.RawManifest
	if err := json.Unmarshal(b, &raw); err != nil {
		return Found{}, fmt.Errorf("decode manifest: %w", err)
	}

	stem := strings.TrimSuffix(path, manifestSuffix)
	dir := filepath.Dir(path)
	found := Found{
		Dir:          dir,
		Raw:          raw,
		ManifestPath: path,
	}
	if fi, err := os.Stat(stem + bundleSuffix); err == nil && !fi.IsDir() {
		found.BundlePath = stem + bundleSuffix
		if rel, err := filepath.Rel(root, found.BundlePath); err == nil {
			found.UpdatePath = filepath.ToSlash(rel)
		}
	}
	if fi, err := os.Stat(stem + chunkSuffix); err == nil && fi.IsDir() {
		found.ChunkStorePath = stem + chunkSuffix
	}
	return found, nil
}

// inodeSet tracks directories visited by real device/inode identity, so
// a symlink loop is detected rather than walked forever (SPEC_FULL.md
// §4.1, grounded on os.SameFile rather than path string comparison,
// which a bind mount or symlink chain can defeat).
type inodeSet struct {
	mu    sync.Mutex
	infos []os.FileInfo
}

func newInodeSet() *inodeSet { return &inodeSet{} }

// seen reports whether the directory at path has already been recorded
// (a cycle), and records it if not. err is non-nil only for pathological
// Stat failures; it is not itself the cycle signal.
func (s *inodeSet) seen(path string) (cycle bool, err error) {
	real, statErr := os.Stat(path)
	if statErr != nil {
		return false, statErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, prior := range s.infos {
		if os.SameFile(prior, real) {
			return true, nil
		}
	}
	s.infos = append(s.infos, real)
	return false, nil
}
