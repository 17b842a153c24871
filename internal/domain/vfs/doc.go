// Package vfs implements the virtual file system.
//
// Features:
//   - Hierarchical node tree with files and directories
//   - Write-ahead cache: every mutation lands in memory first, then an
//     ordered flush queue persists it to the backing store
//   - Content blobs stored separately from metadata (zstd compressed),
//     so overwrites update a file in place without changing its identity
//   - Recursive mkdir, atomic subtree rename, recursive copy
//   - Prefix-scoped watch callbacks for create/update/delete/rename
//   - Glob matching over the virtual namespace
//
// Reads always observe the cache, so read-after-write is immediately
// consistent; durability trails the cache and Flush provides a barrier.
// Paths are virtual, slash-separated, and always absolute. Failures are
// *Error values carrying the operation, the offending path, and a POSIX
// style sentinel (ErrNotExist, ErrExist, ErrNotDir, ErrIsDir,
// ErrNotEmpty, ErrInvalid).
//
// Example Usage:
//
//	db, _ := store.OpenMemory("desktop", vfs.SchemaVersion, vfs.Schema)
//	fs, _ := vfs.New(ctx, vfs.Config{DB: db, Logger: logger})
//	fs.WriteFile(ctx, "/Documents/hello.txt", []byte("hello"))
//	data, _ := fs.ReadFile(ctx, "/Documents/hello.txt")
//	fs.Flush(ctx)
package vfs
