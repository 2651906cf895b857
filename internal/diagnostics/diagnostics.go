// Package diagnostics defines the durable-ledger sink the Catalog
// Builder's in-memory Diagnostics travel to, and the best-effort
// semantics every backend must follow.
package diagnostics

import (
	"context"
	"log/slog"

	"github.com/evlaV/steamos-atomupd"
)

// Sink persists a Catalog rebuild's Diagnostics. A Sink must never be
// allowed to fail a rebuild: callers use Record, not the Sink directly.
type Sink interface {
	Record(ctx context.Context, diag atomupd.Diagnostics) error
	Close() error
}

// Record persists diag to sink and logs, rather than returns, any
// failure: a durable-ledger outage must never block catalog
// construction or export (SPEC_FULL.md §5, §9A).
func Record(ctx context.Context, sink Sink, diag atomupd.Diagnostics) {
	if sink == nil || len(diag.Entries) == 0 {
		return
	}
	if err := sink.Record(ctx, diag); err != nil {
		slog.ErrorContext(ctx, "failed to persist diagnostics ledger", "generation", diag.Generation, "error", err)
	}
}
