// Package postgres persists diagnostics ledgers to a Postgres table via
// pgx, building inserts with goqu the way the teacher's datastore layer
// builds its queries.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v8"
	_ "github.com/doug-martin/goqu/v8/dialect/postgres"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evlaV/steamos-atomupd"
)

const createTable = `
CREATE TABLE IF NOT EXISTS diagnostics (
	generation  uuid NOT NULL,
	path        text NOT NULL,
	kind        text NOT NULL,
	message     text NOT NULL,
	recorded_at timestamptz NOT NULL
);`

var psql = goqu.Dialect("postgres")

// Sink writes diagnostics entries into a "diagnostics" table.
type Sink struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against connString and ensures the diagnostics
// table exists.
func Connect(ctx context.Context, connString string) (*Sink, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("diagnostics/postgres: parse config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("diagnostics/postgres: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, createTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("diagnostics/postgres: ensure table: %w", err)
	}
	return &Sink{pool: pool}, nil
}

// Record inserts every entry in diag as its own row, in one transaction.
func (s *Sink) Record(ctx context.Context, diag atomupd.Diagnostics) error {
	if len(diag.Entries) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("diagnostics/postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	for _, e := range diag.Entries {
		ins := psql.Insert("diagnostics").Rows(goqu.Record{
			"generation":  diag.Generation.String(),
			"path":        e.Path,
			"kind":        string(e.Kind),
			"message":     e.Message,
			"recorded_at": now,
		})
		sql, args, err := ins.ToSQL()
		if err != nil {
			return fmt.Errorf("diagnostics/postgres: build insert: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("diagnostics/postgres: insert: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("diagnostics/postgres: commit: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}
