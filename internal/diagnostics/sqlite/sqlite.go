// Package sqlite persists diagnostics ledgers to an embedded SQLite
// database, for deployments too small to run Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite" // register the sqlite driver

	"github.com/evlaV/steamos-atomupd"
)

const createTable = `
CREATE TABLE IF NOT EXISTS diagnostics (
	generation  TEXT NOT NULL,
	path        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	message     TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);`

const insert = `
INSERT INTO diagnostics (generation, path, kind, message, recorded_at)
VALUES (?, ?, ?, ?, ?);`

// Sink writes diagnostics entries into a "diagnostics" table in a
// SQLite database file.
type Sink struct {
	db *sql.DB
}

// Open opens (creating if absent) the named SQLite database file and
// ensures the diagnostics table exists.
func Open(ctx context.Context, path string) (*Sink, error) {
	u := url.URL{
		Scheme: "file",
		Opaque: path,
		RawQuery: url.Values{
			"_pragma": {"journal_mode(WAL)"},
		}.Encode(),
	}
	db, err := sql.Open("sqlite", u.String())
	if err != nil {
		return nil, fmt.Errorf("diagnostics/sqlite: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("diagnostics/sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("diagnostics/sqlite: ensure table: %w", err)
	}
	return &Sink{db: db}, nil
}

// Record inserts every entry in diag as its own row, in one transaction.
func (s *Sink) Record(ctx context.Context, diag atomupd.Diagnostics) error {
	if len(diag.Entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("diagnostics/sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range diag.Entries {
		if _, err := tx.ExecContext(ctx, insert, diag.Generation.String(), e.Path, string(e.Kind), e.Message, now); err != nil {
			return fmt.Errorf("diagnostics/sqlite: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("diagnostics/sqlite: commit: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}
