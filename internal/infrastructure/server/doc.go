// Package server assembles the desktop kernel and serves its API.
//
// Construction order matters: the store backs the file system, the
// file system backs the installer and service providers, and the app
// runtime sits on top of all of them. The server owns that wiring,
// the middleware stack (recovery, tracing, metrics, CORS, rate
// limiting), and the lifecycle: Run blocks until the listener stops,
// Close shuts the runtime down, flushes the file system, and releases
// the store.
//
// Example:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(ctx, cfg, server.Options{})
//	if err != nil {
//		...
//	}
//	defer srv.Close()
//	srv.Run()
package server
