package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS index_entries (
	key     TEXT PRIMARY KEY,
	volumes TEXT NOT NULL
)`

// SQLiteStore keeps the index in a single-file SQLite database.
// Create relies on the primary key: INSERT ... ON CONFLICT DO NOTHING affects
// zero rows when another writer got there first.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index %s: %w", path, err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT volumes FROM index_entries WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %q: %w", key, err)
	}
	return decodeVolumes(raw), nil
}

func (s *SQLiteStore) Create(ctx context.Context, key string, volumes []string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO index_entries (key, volumes) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
		key, encodeVolumes(volumes))
	if err != nil {
		return fmt.Errorf("sqlite create %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite create %q: %w", key, err)
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM index_entries WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("sqlite delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite delete %q: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
