// Package main is the entry point for the desktop kernel.
//
// This process hosts the whole desktop: the virtual file system on its
// SQLite store, the task and window managers, the app registry and
// runtime, and the service providers, all behind one HTTP and
// WebSocket surface the shell talks to.
//
// Architecture:
//
//	Shell (browser) → HTTP/WebSocket → Kernel → SQLite store
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Persistent desktop on the default port
//	./kernel -store macos98.db
//
//	# Throwaway desktop, bundled apps seeded from a host directory
//	./kernel -memory -seed ./bundles
//
//	# Development mode (colored logs, debug level)
//	./kernel -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
