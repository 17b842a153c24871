// Package store provides versioned key/value persistence for the kernel.
//
// A database is opened by name at a requested schema version; when the
// on-disk version is older, the caller's upgrade function runs inside a
// transaction to create or drop object stores before any data access.
// Records live in named object stores and are addressed by string key.
//
// Backends:
//   - SQLite: durable storage, one table per object store (jmoiron/sqlx)
//   - Memory: process-local storage for tests, same contract
//
// Features:
//   - Atomic multi-store transactions with read-only enforcement
//   - Deterministic iteration (keys ascending)
//   - Explicit handles: multiple databases may coexist in one process
//
// Example Usage:
//
//	db, err := store.OpenSQLite(ctx, store.Options{
//	    Path:    "desktop.db",
//	    Name:    "desktop",
//	    Version: 1,
//	    Upgrade: func(u *store.Upgrade) error {
//	        return u.CreateStore("nodes")
//	    },
//	})
package store
