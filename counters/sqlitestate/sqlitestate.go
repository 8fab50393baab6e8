// Package sqlitestate persists lane counters between process runs in a
// SQLite file, so a stream interrupted by process exit resumes exactly
// where it stopped. The engine never sees this package: counters are
// hydrated into the in-memory store before a run and checkpointed back
// after a run completes, keeping generation itself free of I/O.
package sqlitestate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS lane_counters (
	stream  TEXT    NOT NULL,
	lane    INTEGER NOT NULL,
	counter INTEGER NOT NULL,
	PRIMARY KEY (stream, lane)
);`

// DB is a handle to the counter snapshot database. Snapshots are keyed
// by stream name so unrelated configurations can share one file.
type DB struct {
	sqlDB *sql.DB
}

// Open opens (creating if necessary) a snapshot database at path.
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlitestate: path is required")
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestate: open %s: %w", path, err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlitestate: ping %s: %w", path, err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlitestate: ensure schema: %w", err)
	}

	return &DB{sqlDB: sqlDB}, nil
}

// Close closes the database handle.
func (db *DB) Close() error {
	return db.sqlDB.Close()
}

// Load returns the stream's lane counters in lane order. A stream with
// no snapshot yet loads as all zeros; a snapshot whose lane count does
// not match the configured one is rejected rather than silently
// reshaped, since resuming a stream under a different lane count would
// splice unrelated streams together.
func (db *DB) Load(ctx context.Context, stream string, lanes int) ([]uint64, error) {
	out := make([]uint64, lanes)

	rows, err := db.sqlDB.QueryContext(ctx,
		`SELECT lane, counter FROM lane_counters WHERE stream = ? ORDER BY lane`, stream)
	if err != nil {
		return nil, fmt.Errorf("sqlitestate: load %q: %w", stream, err)
	}
	defer rows.Close()

	found := 0
	for rows.Next() {
		var lane int64
		var counter int64
		if err := rows.Scan(&lane, &counter); err != nil {
			return nil, fmt.Errorf("sqlitestate: load %q: %w", stream, err)
		}
		if lane < 0 || lane >= int64(lanes) {
			return nil, fmt.Errorf("sqlitestate: snapshot for %q has lane %d outside configured %d lanes", stream, lane, lanes)
		}
		out[lane] = uint64(counter)
		found++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestate: load %q: %w", stream, err)
	}
	if found != 0 && found != lanes {
		return nil, fmt.Errorf("sqlitestate: snapshot for %q has %d lanes, configured %d", stream, found, lanes)
	}

	return out, nil
}

// Save replaces the stream's snapshot with the given counters in one
// transaction, so a partially written checkpoint can never be observed.
func (db *DB) Save(ctx context.Context, stream string, snapshot []uint64) error {
	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestate: save %q: %w", stream, err)
	}
	defer tx.Rollback()

	// Drop rows from any previous shape of this stream so the
	// snapshot read back is exactly the one written.
	if _, err := tx.ExecContext(ctx, `DELETE FROM lane_counters WHERE stream = ?`, stream); err != nil {
		return fmt.Errorf("sqlitestate: save %q: %w", stream, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO lane_counters (stream, lane, counter) VALUES (?, ?, ?)
		 ON CONFLICT (stream, lane) DO UPDATE SET counter = excluded.counter`)
	if err != nil {
		return fmt.Errorf("sqlitestate: save %q: %w", stream, err)
	}
	defer stmt.Close()

	for lane, counter := range snapshot {
		if _, err := stmt.ExecContext(ctx, stream, int64(lane), int64(counter)); err != nil {
			return fmt.Errorf("sqlitestate: save %q lane %d: %w", stream, lane, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestate: save %q: %w", stream, err)
	}
	return nil
}
