// Package cache persists compiled decoders in SQLite, keyed by a
// stable hash of the IRP source plus compile Options, so re-attaching
// a protocol after a daemon restart can skip recompilation. This is
// daemon bookkeeping: the core (irp/nfa/dfa) still treats an NFA/DFA
// as a value built once per compilation; the cache only decides
// whether that compile needs to happen again.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/irrecv/irrecv/irp"
)

// Entry is a cached compiled decoder.
type Entry struct {
	Key       string
	Name      string
	Bytecode  []byte
	CreatedAt time.Time
}

// Cache stores compiled decoders in a SQLite database.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if necessary) a cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	c := &Cache{db: db}
	if err := c.init(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decoders (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		bytecode BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("cache: create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key computes a stable cache key from IRP source text and the
// compile options that affect the resulting bytecode (tolerances and
// name; Debug only affects dumps, not the compiled program, so it's
// excluded).
func Key(irpSource string, opts irp.Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "name=%s\n", opts.Name)
	fmt.Fprintf(h, "eps=%v\n", opts.Eps)
	fmt.Fprintf(h, "aeps=%v\n", opts.AEps)
	fmt.Fprintf(h, "maxgap=%v\n", opts.MaxGap)
	fmt.Fprintf(h, "source=%s\n", irpSource)
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached compiled decoder by key. It reports
// (nil, nil) on a cache miss, not an error.
func (c *Cache) Get(key string) (*Entry, error) {
	query := `SELECT name, bytecode, created_at FROM decoders WHERE key = ?`
	var e Entry
	e.Key = key
	err := c.db.QueryRow(query, key).Scan(&e.Name, &e.Bytecode, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get %s: %w", key, err)
	}
	return &e, nil
}

// Put stores (or replaces) a compiled decoder under key.
func (c *Cache) Put(key, name string, bytecode []byte) error {
	query := `
		INSERT INTO decoders (key, name, bytecode)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			bytecode = excluded.bytecode,
			created_at = CURRENT_TIMESTAMP
	`
	if _, err := c.db.Exec(query, key, name, bytecode); err != nil {
		return fmt.Errorf("cache: put %s: %w", key, err)
	}
	return nil
}

// List returns every cached decoder, most recently updated first.
func (c *Cache) List() ([]*Entry, error) {
	query := `SELECT key, name, bytecode, created_at FROM decoders ORDER BY created_at DESC`
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("cache: list: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Name, &e.Bytecode, &e.CreatedAt); err != nil {
			continue
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// Delete removes a cached decoder by key.
func (c *Cache) Delete(key string) error {
	result, err := c.db.Exec(`DELETE FROM decoders WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("cache: delete %s: %w", key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("cache: delete %s: rows affected: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("cache: delete %s: not found", key)
	}
	return nil
}
