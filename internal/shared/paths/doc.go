// Package paths provides standardized virtual filesystem paths.
//
// This package defines the canonical directory structure for the desktop
// namespace. All filesystem operations should use these constants to
// ensure consistency.
//
// # Directory Structure
//
//	/System/           (kernel-owned state)
//	  └── AppData/     (per-app key/value storage)
//	/Applications/     (installed app bundles)
//	/Documents/        (user files)
//	/Desktop/          (desktop items)
//	/Trash/            (deleted items awaiting emptying)
//
// # Usage
//
//	import "github.com/64andrewwalker/macos98-sub001/internal/shared/paths"
//
//	// Standard locations
//	docs := paths.Documents
//
//	// App-specific locations
//	app := paths.AppPath("notepad")
//	dataDir := app.DataDir() // /System/AppData/notepad
//
//	// Validation
//	if err := paths.Validate(somePath); err != nil {
//	    // reject
//	}
package paths
