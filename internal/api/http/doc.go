// Package http holds the gin handlers behind the kernel's REST
// surface: file system operations, the application catalog and its
// running instances, windows, service execution, shell log ingestion,
// and metrics.
//
// Handlers translate between wire shapes and the kernel managers; no
// kernel policy lives here. File system failures map to HTTP statuses
// through their POSIX-style wire codes (ENOENT is 404, EEXIST and
// ENOTEMPTY are 409, EINVAL and the type mismatches are 400).
package http
