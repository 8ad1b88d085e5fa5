/*
Package sqlite provides a SQLite-backed implementation of the cache store.

PURPOSE:
  Durable backing for the TTL cache so Hijri date conversions and Nisab
  thresholds survive process restarts. The same pattern applies to
  PostgreSQL - only minor SQL dialect differences.

SCHEMA:
  cache_entries:
    key        TEXT PRIMARY KEY
    data       BLOB      (JSON payload, opaque to this layer)
    written_at INTEGER   (unix nanoseconds)

  TTL validation does NOT happen here. The cache layer compares
  written_at against its injected clock, so every store backend shares
  identical staleness semantics. Expired rows are simply overwritten on
  the next write-through.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/zakat-cache.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  hijriCache := cache.New(store, cache.DefaultTTL)

SEE ALSO:
  - cache/cache.go:  TTL semantics and the Store interface
  - cache/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/zakat-engine/cache"
)

// Store implements cache.Store on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the cache database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key        TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		written_at INTEGER NOT NULL
	);`

	_, err := s.db.Exec(schema)
	return err
}

// Get returns the entry stored under key, if any.
func (s *Store) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	var (
		data      []byte
		writtenAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, written_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&data, &writtenAt)
	if err == sql.ErrNoRows {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, err
	}

	return cache.Entry{Data: data, Timestamp: time.Unix(0, writtenAt)}, true, nil
}

// Put writes or replaces the entry under key.
func (s *Store) Put(ctx context.Context, key string, entry cache.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, data, written_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, written_at = excluded.written_at`,
		key, []byte(entry.Data), entry.Timestamp.UnixNano(),
	)
	return err
}
