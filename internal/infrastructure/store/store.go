package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Mode controls what a transaction may do
type Mode string

const (
	ReadOnly  Mode = "readonly"
	ReadWrite Mode = "readwrite"
)

// Errors shared by all backends
var (
	ErrClosed       = errors.New("store: database closed")
	ErrUnknownStore = errors.New("store: unknown object store")
	ErrOutOfScope   = errors.New("store: object store not in transaction scope")
	ErrReadOnly     = errors.New("store: write in read-only transaction")
	ErrDowngrade    = errors.New("store: requested version below existing version")
)

// Record is one key/value pair from an object store
type Record struct {
	Key   string `db:"key"`
	Value []byte `db:"value"`
}

// UpgradeFunc migrates the schema when the database version increases.
// It runs before any data access, atomically with the version bump.
type UpgradeFunc func(u *Upgrade) error

// Options configures a database handle
type Options struct {
	Path    string // backing file (SQLite only)
	Name    string // logical database name
	Version int    // requested schema version, >= 1
	Upgrade UpgradeFunc
}

// DB is a handle to one named database
type DB interface {
	Name() string
	Version() int
	Stores() []string

	Get(ctx context.Context, store, key string) ([]byte, bool, error)
	Put(ctx context.Context, store, key string, value []byte) error
	Delete(ctx context.Context, store, key string) error
	Clear(ctx context.Context, store string) error
	GetAll(ctx context.Context, store string) ([]Record, error)
	Keys(ctx context.Context, store string) ([]string, error)

	// Transact runs fn atomically against the named object stores.
	// Mutations in a ReadOnly transaction fail with ErrReadOnly;
	// access outside the named stores fails with ErrOutOfScope.
	Transact(ctx context.Context, stores []string, mode Mode, fn func(tx Tx) error) error

	Close() error
}

// Tx is the surface available inside a transaction
type Tx interface {
	Get(store, key string) ([]byte, bool, error)
	Put(store, key string, value []byte) error
	Delete(store, key string) error
	Clear(store string) error
	GetAll(store string) ([]Record, error)
	Keys(store string) ([]string, error)
}

// Upgrade is handed to UpgradeFunc during a version change
type Upgrade struct {
	OldVersion int
	NewVersion int

	ops upgradeOps
}

// upgradeOps is what a backend must expose during migration
type upgradeOps interface {
	createStore(name string) error
	deleteStore(name string) error
	hasStore(name string) bool
}

// CreateStore creates an object store. Creating an existing store is an error.
func (u *Upgrade) CreateStore(name string) error {
	if err := validateStoreName(name); err != nil {
		return err
	}
	if u.ops.hasStore(name) {
		return fmt.Errorf("store: object store %q already exists", name)
	}
	return u.ops.createStore(name)
}

// DeleteStore drops an object store and its records
func (u *Upgrade) DeleteStore(name string) error {
	if !u.ops.hasStore(name) {
		return fmt.Errorf("%w: %s", ErrUnknownStore, name)
	}
	return u.ops.deleteStore(name)
}

// HasStore reports whether an object store exists
func (u *Upgrade) HasStore(name string) bool {
	return u.ops.hasStore(name)
}

var storeNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func validateStoreName(name string) error {
	if !storeNamePattern.MatchString(name) {
		return fmt.Errorf("store: invalid object store name %q", name)
	}
	return nil
}

// scope is a transaction's allowed store set
type scope map[string]bool

func newScope(stores []string) scope {
	s := make(scope, len(stores))
	for _, name := range stores {
		s[name] = true
	}
	return s
}

func (s scope) check(name string) error {
	if !s[name] {
		return fmt.Errorf("%w: %s", ErrOutOfScope, name)
	}
	return nil
}
