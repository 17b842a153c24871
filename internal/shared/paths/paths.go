package paths

import (
	"fmt"
	gopath "path"
	"strings"
)

// Root of the namespace
const Root = "/"

// Top-level directories
const (
	System       = "/System"
	Applications = "/Applications"
	Documents    = "/Documents"
	Desktop      = "/Desktop"
	Trash        = "/Trash"
)

// System subdirectories
const (
	// AppData contains per-app key/value storage
	AppData = "/System/AppData"

	// Fonts contains installed fonts
	Fonts = "/System/Fonts"
)

// App returns application-specific paths
type App struct {
	ID string
}

// BundleDir returns the app's installed bundle directory
func (a App) BundleDir() string {
	return gopath.Join(Applications, a.ID)
}

// DataDir returns the app's key/value storage directory
func (a App) DataDir() string {
	return gopath.Join(AppData, a.ID)
}

// AppPath returns paths for a specific application
func AppPath(appID string) App {
	return App{ID: appID}
}

// StandardDirectories returns all directories seeded at first boot
func StandardDirectories() []string {
	return []string{
		System,
		AppData,
		Fonts,
		Applications,
		Documents,
		Desktop,
		Trash,
	}
}

// Validate checks that a path is absolute, slash-rooted, and free of
// empty, ".", and ".." segments. The root "/" itself is valid.
func Validate(path string) error {
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path %q is not absolute", path)
	}
	if path == Root {
		return nil
	}
	if strings.HasSuffix(path, "/") {
		return fmt.Errorf("path %q has a trailing slash", path)
	}
	for _, seg := range strings.Split(path[1:], "/") {
		switch seg {
		case "":
			return fmt.Errorf("path %q contains an empty segment", path)
		case ".", "..":
			return fmt.Errorf("path %q contains a relative segment", path)
		}
	}
	return nil
}

// Split returns the segments of a valid path; the root has none
func Split(path string) []string {
	if path == Root {
		return nil
	}
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}

// Parent returns the containing directory; the root is its own parent
func Parent(path string) string {
	if path == Root {
		return Root
	}
	return gopath.Dir(path)
}

// Base returns the final segment; the root has base "/"
func Base(path string) string {
	return gopath.Base(path)
}

// Join joins segments onto a base path
func Join(base string, segments ...string) string {
	return gopath.Join(append([]string{base}, segments...)...)
}

// Within reports whether path equals prefix or lies underneath it
func Within(prefix, path string) bool {
	if prefix == Root {
		return strings.HasPrefix(path, "/")
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Rebase rewrites a path from one prefix to another. The path must be
// within from; callers are expected to have checked that already.
func Rebase(path, from, to string) string {
	if path == from {
		return to
	}
	return to + strings.TrimPrefix(path, from)
}

// ValidateAppID checks if an app ID is safe for path construction
func ValidateAppID(appID string) error {
	if appID == "" {
		return fmt.Errorf("app ID cannot be empty")
	}
	if strings.ContainsAny(appID, "/\\") {
		return fmt.Errorf("app ID cannot contain path separators")
	}
	if appID == "." || appID == ".." {
		return fmt.Errorf("app ID cannot be a relative path component")
	}
	return nil
}
