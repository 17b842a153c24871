// Package types provides shared data structures for the desktop kernel.
//
// This package defines core types used across kernel components,
// ensuring consistent shapes at package boundaries.
//
// Core Types:
//   - Manifest: Application manifest (identity, permissions, associations)
//   - Permissions: Filesystem grants and service allow-list
//   - FileAssociation: Extension/MIME binding for "open with"
//   - Service: Service provider definition
//   - Tool: Service tool specification
//   - Context: Execution context for service calls
//   - Result: Standard operation result
//
// Event Topics:
//   - EventAppRegistered .. EventAppTerminated: application lifecycle
//
// Example Usage:
//
//	manifest := types.Manifest{
//	    ID:      "notepad",
//	    Name:    "Notepad",
//	    Version: "1.0.0",
//	    Permissions: types.Permissions{
//	        FS: []types.FSGrant{{Path: "/Documents", Mode: types.AccessReadWrite}},
//	    },
//	}
package types
