package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/evlaV/steamos-atomupd/internal/diagnostics"
	pgsink "github.com/evlaV/steamos-atomupd/internal/diagnostics/postgres"
	sqlitesink "github.com/evlaV/steamos-atomupd/internal/diagnostics/sqlite"
)

// openDiagnosticsSink opens the durable diagnostics ledger named by dsn.
// An empty dsn disables the ledger: Catalog construction and export run
// exactly the same either way (SPEC_FULL.md §9A).
func openDiagnosticsSink(ctx context.Context, dsn string) (diagnostics.Sink, error) {
	switch {
	case dsn == "":
		return nil, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlitesink.Open(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return pgsink.Connect(ctx, dsn)
	default:
		return nil, fmt.Errorf("unrecognized diagnostics DSN scheme: %q", dsn)
	}
}
