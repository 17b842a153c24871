// Package window manages window records, focus, and z-order.
//
// Features:
//   - Window creation with cascading default placement
//   - Positional z-order (front is the last element of the order list)
//   - Single-focus invariant: exactly one open window is focused, or none
//   - Focus hand-off to the next-topmost window on close
//   - State transitions (normal, minimized, maximized, collapsed)
//   - Move and resize with min-size clamping
//   - Typed change notifications for every mutation
//
// Example Usage:
//
//	manager := window.NewManager().WithMetrics(metrics)
//	w := manager.Open("finder", window.Options{Title: "Finder"})
//	manager.Focus(w.ID)
//	manager.Close(w.ID)
//
// All accessors return copies; mutating a returned Window never affects
// manager state.
package window
