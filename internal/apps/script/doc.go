// Package script hosts JavaScript applications on the goja VM.
//
// A manifest whose entry names a .js file in the virtual file system
// gets its factory from Engine.Factory. At launch the engine reads and
// compiles the entry, runs it in a fresh VM, and bridges the exported
// hook functions (onLaunch, onActivate, onDeactivate, onTerminate,
// onMenuAction, openFile) into the application lifecycle.
//
// Scripts reach the kernel through the global os object. Every os
// binding delegates to the app's capability context, so file system
// grants, the service allow-list, window ownership, and disposal apply
// to script apps exactly as they do to native ones.
//
// Each app's JavaScript runs on a single goroutine fed by an unbounded
// job queue. Timer, subscription, and watch callbacks are posted onto
// that queue rather than entering the VM from the kernel's goroutines,
// and a callback may publish events that re-enter its own handlers
// without deadlocking. Any run past the configured timeout is
// interrupted.
package script
