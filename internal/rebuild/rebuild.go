// Package rebuild debounces rebuild triggers and holds the current
// Catalog behind an atomic pointer so Selector/Exporter callers always
// read a complete, consistent snapshot while a rebuild runs
// concurrently (SPEC_FULL.md §5, §9D).
package rebuild

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/evlaV/steamos-atomupd"
	"github.com/evlaV/steamos-atomupd/internal/diagnostics"
	"github.com/evlaV/steamos-atomupd/internal/metrics"
)

// BuildFunc performs one full scan+build cycle and returns the
// resulting Catalog and its Diagnostics ledger.
type BuildFunc func(ctx context.Context) (*atomupd.Catalog, atomupd.Diagnostics, error)

// Manager holds the current Catalog and coalesces bursts of rebuild
// triggers into a single rebuild, the way a bulk image import or a
// flurry of inotify events would otherwise fire one rebuild per file.
type Manager struct {
	build   BuildFunc
	limiter *rate.Limiter
	mu      sync.Mutex // serializes the build call itself

	current atomic.Pointer[atomupd.Catalog]

	// Diagnostics, if non-nil, receives every rebuild's ledger.
	Diagnostics diagnostics.Sink
	// Metrics, if non-nil, receives the rebuild-duration histogram.
	Metrics *metrics.Metrics
}

// New returns a Manager that calls build to produce a new Catalog.
// Notify-triggered rebuilds run no more often than once per debounce
// interval; Rebuild is not limited. A zero debounce disables
// coalescing: every Notify triggers an immediate rebuild.
func New(build BuildFunc, debounce time.Duration) *Manager {
	var limiter *rate.Limiter
	if debounce <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 1)
	} else {
		limiter = rate.NewLimiter(rate.Every(debounce), 1)
	}
	return &Manager{build: build, limiter: limiter}
}

// Catalog returns the most recently built Catalog, or nil if Rebuild
// has never succeeded.
func (m *Manager) Catalog() *atomupd.Catalog {
	return m.current.Load()
}

// Notify signals that the underlying manifest tree may have changed. A
// burst of Notify calls within the debounce window coalesces into a
// single rebuild; callers that need to guarantee a rebuild happens
// (e.g. a CLI "rebuild now" command) should call Rebuild directly.
func (m *Manager) Notify(ctx context.Context) error {
	if !m.limiter.Allow() {
		slog.DebugContext(ctx, "rebuild notification coalesced")
		return nil
	}
	return m.Rebuild(ctx)
}

// Rebuild runs build and, on success, atomically swaps the Catalog a
// concurrent Selector or Exporter observes. Rebuild never mutates the
// previous Catalog in place: readers hold a reference to an immutable
// snapshot for as long as they need it (SPEC_FULL.md §5).
func (m *Manager) Rebuild(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	cat, diag, err := m.build(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "rebuild failed", "error", err)
		return err
	}
	m.current.Store(cat)
	dur := time.Since(start)

	if m.Metrics != nil {
		m.Metrics.RebuildDurationSeconds.Observe(dur.Seconds())
	}
	diagnostics.Record(ctx, m.Diagnostics, diag)

	slog.InfoContext(ctx, "rebuild complete",
		"generation", cat.Generation, "tracks", cat.Len(), "duration", dur)
	return nil
}
