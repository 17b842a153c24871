package types

import (
	"fmt"
	"strings"
)

// AccessMode represents a filesystem grant mode
type AccessMode string

const (
	AccessRead      AccessMode = "read"
	AccessReadWrite AccessMode = "readwrite"
)

// CanWrite reports whether the mode permits mutation
func (m AccessMode) CanWrite() bool {
	return m == AccessReadWrite
}

// Valid reports whether the mode is a known grant mode
func (m AccessMode) Valid() bool {
	return m == AccessRead || m == AccessReadWrite
}

// FSGrant grants an app access to a path prefix
type FSGrant struct {
	Path string     `json:"path" toml:"path"`
	Mode AccessMode `json:"mode" toml:"mode"`
}

// Covers reports whether the grant applies to the given absolute path
func (g FSGrant) Covers(path string) bool {
	if g.Path == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == g.Path || strings.HasPrefix(path, g.Path+"/")
}

// Permissions declares everything an app may touch outside its own context
type Permissions struct {
	FS       []FSGrant `json:"fs,omitempty" toml:"fs"`
	Services []string  `json:"services,omitempty" toml:"services"`
}

// AllowsService reports whether the named service is on the allow-list
func (p Permissions) AllowsService(name string) bool {
	for _, s := range p.Services {
		if s == name {
			return true
		}
	}
	return false
}

// AssociationRole describes how an app relates to a file type
type AssociationRole string

const (
	RoleEditor AssociationRole = "editor"
	RoleViewer AssociationRole = "viewer"
)

// FileAssociation binds file extensions and MIME types to an app
type FileAssociation struct {
	Extensions []string        `json:"extensions" toml:"extensions"`
	MimeTypes  []string        `json:"mime_types,omitempty" toml:"mime_types"`
	Role       AssociationRole `json:"role" toml:"role"`
}

// MatchesExtension reports whether the association covers the extension.
// Extensions are matched without a leading dot, case-insensitively.
func (a FileAssociation) MatchesExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, e := range a.Extensions {
		if strings.ToLower(strings.TrimPrefix(e, ".")) == ext {
			return true
		}
	}
	return false
}

// MatchesMime reports whether the association covers the MIME type.
// Parameters after ";" are ignored.
func (a FileAssociation) MatchesMime(mime string) bool {
	mime = strings.TrimSpace(strings.SplitN(mime, ";", 2)[0])
	for _, m := range a.MimeTypes {
		if strings.EqualFold(m, mime) {
			return true
		}
	}
	return false
}

// WindowHint sizes an app's initial window. Resizable is a pointer so
// an absent key leaves the window manager default in place.
type WindowHint struct {
	Width     int   `json:"width" toml:"width"`
	Height    int   `json:"height" toml:"height"`
	Resizable *bool `json:"resizable,omitempty" toml:"resizable"`
}

// Manifest describes an installable application
type Manifest struct {
	ID           string            `json:"id" toml:"id"`
	Name         string            `json:"name" toml:"name"`
	Version      string            `json:"version" toml:"version"`
	Icon         string            `json:"icon" toml:"icon"`
	Description  string            `json:"description,omitempty" toml:"description"`
	Author       string            `json:"author,omitempty" toml:"author"`
	Category     string            `json:"category,omitempty" toml:"category"`
	Entry        string            `json:"entry,omitempty" toml:"entry"` // script apps: VFS path of the entry script
	Permissions  Permissions       `json:"permissions,omitempty" toml:"permissions"`
	Associations []FileAssociation `json:"file_associations,omitempty" toml:"file_associations"`
	Window       *WindowHint       `json:"window,omitempty" toml:"window"`
	Tags         []string          `json:"tags,omitempty" toml:"tags"`
}

// Validate checks the manifest for structural problems
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("manifest missing id")
	}
	if m.Name == "" {
		return fmt.Errorf("manifest %s missing name", m.ID)
	}
	if m.Version == "" {
		return fmt.Errorf("manifest %s missing version", m.ID)
	}
	for _, g := range m.Permissions.FS {
		if !strings.HasPrefix(g.Path, "/") {
			return fmt.Errorf("manifest %s: fs grant %q is not absolute", m.ID, g.Path)
		}
		if !g.Mode.Valid() {
			return fmt.Errorf("manifest %s: fs grant %q has unknown mode %q", m.ID, g.Path, g.Mode)
		}
	}
	for i, a := range m.Associations {
		if len(a.Extensions) == 0 && len(a.MimeTypes) == 0 {
			return fmt.Errorf("manifest %s: file association %d matches nothing", m.ID, i)
		}
	}
	return nil
}

// ManifestSummary contains catalog listing information
type ManifestSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Icon        string `json:"icon"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Summary extracts listing metadata from a manifest
func (m *Manifest) Summary() ManifestSummary {
	return ManifestSummary{
		ID:          m.ID,
		Name:        m.Name,
		Version:     m.Version,
		Icon:        m.Icon,
		Description: m.Description,
		Category:    m.Category,
	}
}
