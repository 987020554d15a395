package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer per process; other views are separate processes and wait on
	// busy_timeout instead.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewID generates a new ULID string.
func NewID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Records ---

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Record, error) {
	r := &Record{}
	err := s.db.QueryRowContext(ctx,
		`SELECT r.key, r.value, r.updated_at, COALESCE(v.revision, 0)
		FROM records r LEFT JOIN record_revisions v ON v.key = r.key
		WHERE r.key = ?`, key,
	).Scan(&r.Key, &r.Value, &r.UpdatedAt, &r.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return r, nil
}

// Put stores value under key and returns the key's new revision.
func (s *SQLiteStore) Put(ctx context.Context, key, value string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin put: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("put record: %w", err)
	}

	rev, err := bumpRevision(ctx, tx, key)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit put: %w", err)
	}
	return rev, nil
}

// Delete removes key and returns its revision. Deleting an absent key is
// not an error and leaves the revision unchanged.
func (s *SQLiteStore) Delete(ctx context.Context, key string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, "DELETE FROM records WHERE key = ?", key)
	if err != nil {
		return 0, fmt.Errorf("delete record: %w", err)
	}

	var rev int64
	if n, _ := result.RowsAffected(); n > 0 {
		if rev, err = bumpRevision(ctx, tx, key); err != nil {
			return 0, err
		}
	} else {
		err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(revision), 0) FROM record_revisions WHERE key = ?", key,
		).Scan(&rev)
		if err != nil {
			return 0, fmt.Errorf("read revision: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return rev, nil
}

// Revisions returns the current revision of each key. Keys never written
// report 0.
func (s *SQLiteStore) Revisions(ctx context.Context, keys ...string) (map[string]int64, error) {
	revs := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return revs, nil
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = k
		revs[k] = 0
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, revision FROM record_revisions WHERE key IN ("+strings.Join(placeholders, ",")+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var rev int64
		if err := rows.Scan(&key, &rev); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs[key] = rev
	}
	return revs, rows.Err()
}

func bumpRevision(ctx context.Context, tx *sql.Tx, key string) (int64, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO record_revisions (key, revision) VALUES (?, 1)
		ON CONFLICT(key) DO UPDATE SET revision = revision + 1`, key)
	if err != nil {
		return 0, fmt.Errorf("bump revision: %w", err)
	}

	var rev int64
	if err := tx.QueryRowContext(ctx, "SELECT revision FROM record_revisions WHERE key = ?", key).Scan(&rev); err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}
