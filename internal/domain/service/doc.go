// Package service provides the kernel service registry.
//
// Features:
//   - Thread-safe provider registration and lookup
//   - Tool execution routed by "service.tool" IDs
//   - Category filtering for listings
//
// Providers implement storage, clipboard, and system tools that
// applications reach through their sandbox context, subject to the
// manifest's service allow-list.
package service
