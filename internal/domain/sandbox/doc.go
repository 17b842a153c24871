// Package sandbox provides the per-application capability context.
//
// Every running application gets exactly one Context. It mediates all
// kernel access the application performs:
//
//   - Timers, intervals, frame and idle callbacks, individually
//     cancelable by ID
//   - Event bus subscriptions
//   - A scoped file system view checked against the manifest's
//     prefix grants
//   - Service calls gated by the manifest's service allow-list
//   - Window operations scoped to the owning application
//
// Dispose tears all of it down: timers stop, subscriptions drop,
// watches cancel, owned windows close, and registered cleanup
// callbacks run with their failures isolated. Disposal is idempotent;
// afterwards every method fails with ErrDisposed.
package sandbox
