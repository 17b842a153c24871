// Package app orchestrates the application lifecycle.
//
// The Runtime ties the other kernel pieces together: launching an app
// spawns a task, builds a sandboxed context, instantiates the factory,
// and runs the optional lifecycle hooks. Terminating unwinds all of it
// in order, with hook failures logged rather than propagated, so a
// misbehaving app can never block its own teardown.
//
// Lifecycle events published on the global bus: app.launched,
// app.activated, app.terminated (payload types.AppEvent).
//
// Invariants:
//   - One task maps to exactly one context and one instance
//   - At most one running app is foreground at a time
//   - A failed OnLaunch leaves no trace: the context is disposed, the
//     task killed, and no running record is retained
package app
