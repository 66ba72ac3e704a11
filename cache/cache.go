// Package cache is the Key Cache (spec.md §4.G), a SQLite-backed store of
// primary-key and index tuples that persists across runs. The
// Open/migrate/WAL-pragma shape is grounded on the teacher's own SQLite
// adapter idiom — a *sql.DB wrapper, an embedded migrations directory
// applied through a schema_migrations bookkeeping table — adapted here to
// the validator's own single-table schema and its four cache modes
// (invalidate, read-only, warm-up, lazy-load).
package cache

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/relstore/xschema/xtypes"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Mode selects one of the four cache policies spec.md §4.G names.
type Mode int

const (
	WarmUp Mode = iota
	LazyLoad
	ReadOnly
	Invalidate
)

func (m Mode) String() string {
	switch m {
	case WarmUp:
		return "warm-up"
	case LazyLoad:
		return "lazy-load"
	case ReadOnly:
		return "read-only"
	case Invalidate:
		return "invalidate"
	default:
		return "unknown"
	}
}

// Cache wraps the cache directory's single SQLite database.
type Cache struct {
	db   *sql.DB
	mode Mode
	path string
}

const fileName = "cache.sqlite3"

// Open opens (or, in Invalidate mode, rebuilds) the cache database under
// dir, applying schema migrations unless mode is ReadOnly.
func Open(dir string, mode Mode) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	path := filepath.Join(dir, fileName)

	if mode == Invalidate {
		if err := rebuild(path); err != nil {
			return nil, err
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	if mode == ReadOnly {
		dsn = "file:" + path + "?mode=ro&_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if mode != ReadOnly {
		if err := migrate(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &Cache{db: db, mode: mode, path: path}, nil
}

// rebuild builds a fresh, migrated database at path+".tmp" and renames it
// over path, so a crash mid-rebuild never corrupts the live cache.
func rebuild(path string) error {
	tmp := path + ".tmp"
	os.Remove(tmp)
	db, err := sql.Open("sqlite3", tmp+"?_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("open tmp cache database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("close tmp cache database: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename tmp cache database into place: %w", err)
	}
	return nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied := map[string]bool{}
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("query migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan migration: %w", err)
		}
		applied[v] = true
	}
	rows.Close()

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		if applied[version] {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Mode reports the mode the cache was opened with.
func (c *Cache) Mode() Mode { return c.mode }

// Has reports whether a tuple with this canonical form is already cached
// for (schemaID, pkName).
func (c *Cache) Has(schemaID xtypes.SchemaID, pkName, tupleCanon string) (bool, error) {
	var n int
	err := c.db.QueryRow(
		`SELECT COUNT(1) FROM cache_entries WHERE schema_id = ? AND pk_name = ? AND tuple_canon = ?`,
		schemaID, pkName, tupleCanon,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query cache: %w", err)
	}
	return n > 0, nil
}

// Put records entry, replacing any prior entry with the same primary key.
// In ReadOnly mode this is a no-op — read-only callers must never write.
func (c *Cache) Put(entry xtypes.CacheEntry) error {
	if c.mode == ReadOnly {
		return nil
	}
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO cache_entries
		 (schema_id, pk_name, origin_key, tuple_canon, origin, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.SchemaID, entry.PKName, entry.OriginKey, entry.Tuple.Canon(), entry.Origin.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// All returns every cached entry for (schemaID, pkName), e.g. to compare
// against a freshly fetched provider feed during warm-up.
func (c *Cache) All(schemaID xtypes.SchemaID, pkName string) ([]xtypes.CacheEntry, error) {
	rows, err := c.db.Query(
		`SELECT origin_key, tuple_canon, origin FROM cache_entries WHERE schema_id = ? AND pk_name = ?`,
		schemaID, pkName,
	)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	defer rows.Close()

	var out []xtypes.CacheEntry
	for rows.Next() {
		var originKey, tupleCanon, origin string
		if err := rows.Scan(&originKey, &tupleCanon, &origin); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		out = append(out, xtypes.CacheEntry{
			SchemaID:  schemaID,
			PKName:    pkName,
			Tuple:     xtypes.KeyTupleFromCanon(tupleCanon),
			Origin:    originOf(origin),
			OriginKey: originKey,
		})
	}
	return out, rows.Err()
}

// OriginKeys returns the set of origin_key values already cached for
// (schemaID, pkName). The validator's warm-up and lazy-load paths do not
// consult it; they fetch every provider URL.
func (c *Cache) OriginKeys(schemaID xtypes.SchemaID, pkName string) (map[string]bool, error) {
	rows, err := c.db.Query(
		`SELECT DISTINCT origin_key FROM cache_entries WHERE schema_id = ? AND pk_name = ?`,
		schemaID, pkName,
	)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan origin key: %w", err)
		}
		out[k] = true
	}
	return out, rows.Err()
}

func originOf(s string) xtypes.Origin {
	switch s {
	case xtypes.Inline.String():
		return xtypes.Inline
	case xtypes.Provider.String():
		return xtypes.Provider
	default:
		return xtypes.LocalInstance
	}
}
