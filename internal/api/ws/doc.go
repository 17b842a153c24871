// Package ws streams kernel events to connected shells.
//
// Every connection carries one write pump goroutine; bus handlers,
// window listeners, and file system watchers enqueue frames into a
// bounded per-client buffer and never block a publisher. A client that
// stops draining its buffer is disconnected; the shell reconnects and
// resynchronizes over the REST surface.
package ws
