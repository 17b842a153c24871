package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the durable backend. Each object store maps to one table
// keyed by a TEXT primary key; the schema version lives in PRAGMA
// user_version so migrations commit atomically with their version bump.
type SQLite struct {
	name    string
	version int
	db      *sqlx.DB

	mu     sync.RWMutex
	names  map[string]bool
	closed bool
}

// OpenSQLite opens (creating if needed) a SQLite-backed database and
// migrates it to opts.Version.
func OpenSQLite(ctx context.Context, opts Options) (*SQLite, error) {
	if opts.Version < 1 {
		return nil, fmt.Errorf("store: version must be >= 1, got %d", opts.Version)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", opts.Path)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", opts.Path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", opts.Path, err)
	}

	s := &SQLite{
		name:    opts.Name,
		version: opts.Version,
		db:      db,
		names:   make(map[string]bool),
	}

	if err := s.migrate(ctx, opts); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context, opts Options) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS object_stores (name TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("store: init meta table: %w", err)
	}

	var current int
	if err := s.db.GetContext(ctx, &current, `PRAGMA user_version`); err != nil {
		return fmt.Errorf("store: read version: %w", err)
	}
	if opts.Version < current {
		return fmt.Errorf("%w: have %d, requested %d", ErrDowngrade, current, opts.Version)
	}

	var names []string
	if err := s.db.SelectContext(ctx, &names, `SELECT name FROM object_stores ORDER BY name`); err != nil {
		return fmt.Errorf("store: list object stores: %w", err)
	}
	for _, n := range names {
		s.names[n] = true
	}

	if opts.Version == current {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin migration: %w", err)
	}
	defer tx.Rollback()

	if opts.Upgrade != nil {
		up := &Upgrade{
			OldVersion: current,
			NewVersion: opts.Version,
			ops:        &sqliteUpgrade{tx: tx, names: s.names},
		}
		if err := opts.Upgrade(up); err != nil {
			return fmt.Errorf("store: upgrade %d -> %d: %w", current, opts.Version, err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, opts.Version)); err != nil {
		return fmt.Errorf("store: set version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit migration: %w", err)
	}
	return nil
}

type sqliteUpgrade struct {
	tx    *sqlx.Tx
	names map[string]bool
}

func (u *sqliteUpgrade) createStore(name string) error {
	if _, err := u.tx.Exec(fmt.Sprintf(
		`CREATE TABLE %s (key TEXT PRIMARY KEY, value BLOB NOT NULL)`, tableName(name))); err != nil {
		return fmt.Errorf("store: create %s: %w", name, err)
	}
	if _, err := u.tx.Exec(`INSERT INTO object_stores (name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("store: register %s: %w", name, err)
	}
	u.names[name] = true
	return nil
}

func (u *sqliteUpgrade) deleteStore(name string) error {
	if _, err := u.tx.Exec(fmt.Sprintf(`DROP TABLE %s`, tableName(name))); err != nil {
		return fmt.Errorf("store: drop %s: %w", name, err)
	}
	if _, err := u.tx.Exec(`DELETE FROM object_stores WHERE name = ?`, name); err != nil {
		return fmt.Errorf("store: unregister %s: %w", name, err)
	}
	delete(u.names, name)
	return nil
}

func (u *sqliteUpgrade) hasStore(name string) bool { return u.names[name] }

func tableName(store string) string {
	return `"kv_` + store + `"`
}

// Name returns the logical database name
func (s *SQLite) Name() string { return s.name }

// Version returns the migrated schema version
func (s *SQLite) Version() int { return s.version }

// Stores returns the object store names, sorted
func (s *SQLite) Stores() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.names))
	for n := range s.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *SQLite) check(store string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if !s.names[store] {
		return fmt.Errorf("%w: %s", ErrUnknownStore, store)
	}
	return nil
}

// Get returns the value for key, reporting presence explicitly
func (s *SQLite) Get(ctx context.Context, store, key string) ([]byte, bool, error) {
	if err := s.check(store); err != nil {
		return nil, false, err
	}
	var value []byte
	err := s.db.GetContext(ctx, &value,
		fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, tableName(store)), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get %s/%s: %w", store, key, err)
	}
	return value, true, nil
}

// Put inserts or replaces the value for key
func (s *SQLite) Put(ctx context.Context, store, key string, value []byte) error {
	if err := s.check(store); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, tableName(store)), key, value)
	if err != nil {
		return fmt.Errorf("store: put %s/%s: %w", store, key, err)
	}
	return nil
}

// Delete removes the value for key; deleting a missing key is not an error
func (s *SQLite) Delete(ctx context.Context, store, key string) error {
	if err := s.check(store); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, tableName(store)), key); err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", store, key, err)
	}
	return nil
}

// Clear removes every record in the object store
func (s *SQLite) Clear(ctx context.Context, store string) error {
	if err := s.check(store); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s`, tableName(store))); err != nil {
		return fmt.Errorf("store: clear %s: %w", store, err)
	}
	return nil
}

// GetAll returns every record in the object store, keys ascending
func (s *SQLite) GetAll(ctx context.Context, store string) ([]Record, error) {
	if err := s.check(store); err != nil {
		return nil, err
	}
	var records []Record
	if err := s.db.SelectContext(ctx, &records,
		fmt.Sprintf(`SELECT key, value FROM %s ORDER BY key`, tableName(store))); err != nil {
		return nil, fmt.Errorf("store: get all %s: %w", store, err)
	}
	return records, nil
}

// Keys returns every key in the object store, ascending
func (s *SQLite) Keys(ctx context.Context, store string) ([]string, error) {
	if err := s.check(store); err != nil {
		return nil, err
	}
	var keys []string
	if err := s.db.SelectContext(ctx, &keys,
		fmt.Sprintf(`SELECT key FROM %s ORDER BY key`, tableName(store))); err != nil {
		return nil, fmt.Errorf("store: keys %s: %w", store, err)
	}
	return keys, nil
}

// Transact runs fn atomically against the named object stores
func (s *SQLite) Transact(ctx context.Context, stores []string, mode Mode, fn func(tx Tx) error) error {
	for _, name := range stores {
		if err := s.check(name); err != nil {
			return err
		}
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	wrapped := &sqliteTx{tx: tx, mode: mode, scope: newScope(stores)}
	if err := fn(wrapped); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Close releases the handle; further operations fail with ErrClosed
func (s *SQLite) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.db.Close()
}

type sqliteTx struct {
	tx    *sqlx.Tx
	mode  Mode
	scope scope
}

func (t *sqliteTx) writable() error {
	if t.mode != ReadWrite {
		return ErrReadOnly
	}
	return nil
}

func (t *sqliteTx) Get(store, key string) ([]byte, bool, error) {
	if err := t.scope.check(store); err != nil {
		return nil, false, err
	}
	var value []byte
	err := t.tx.Get(&value,
		fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, tableName(store)), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get %s/%s: %w", store, key, err)
	}
	return value, true, nil
}

func (t *sqliteTx) Put(store, key string, value []byte) error {
	if err := t.scope.check(store); err != nil {
		return err
	}
	if err := t.writable(); err != nil {
		return err
	}
	_, err := t.tx.Exec(fmt.Sprintf(
		`INSERT INTO %s (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, tableName(store)), key, value)
	if err != nil {
		return fmt.Errorf("store: put %s/%s: %w", store, key, err)
	}
	return nil
}

func (t *sqliteTx) Delete(store, key string) error {
	if err := t.scope.check(store); err != nil {
		return err
	}
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.tx.Exec(
		fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, tableName(store)), key); err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", store, key, err)
	}
	return nil
}

func (t *sqliteTx) Clear(store string) error {
	if err := t.scope.check(store); err != nil {
		return err
	}
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.tx.Exec(fmt.Sprintf(`DELETE FROM %s`, tableName(store))); err != nil {
		return fmt.Errorf("store: clear %s: %w", store, err)
	}
	return nil
}

func (t *sqliteTx) GetAll(store string) ([]Record, error) {
	if err := t.scope.check(store); err != nil {
		return nil, err
	}
	var records []Record
	if err := t.tx.Select(&records,
		fmt.Sprintf(`SELECT key, value FROM %s ORDER BY key`, tableName(store))); err != nil {
		return nil, fmt.Errorf("store: get all %s: %w", store, err)
	}
	return records, nil
}

func (t *sqliteTx) Keys(store string) ([]string, error) {
	if err := t.scope.check(store); err != nil {
		return nil, err
	}
	var keys []string
	if err := t.tx.Select(&keys,
		fmt.Sprintf(`SELECT key FROM %s ORDER BY key`, tableName(store))); err != nil {
		return nil, fmt.Errorf("store: keys %s: %w", store, err)
	}
	return keys, nil
}
