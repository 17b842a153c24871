package vfs

import "time"

// NodeType distinguishes files from directories
type NodeType string

const (
	NodeFile NodeType = "file"
	NodeDir  NodeType = "directory"
)

// Node is one file system metadata record. Path is the unique key;
// every non-root node's path equals its parent's path joined with its
// name. Only files carry a ContentID, which references the content
// blob stored independently of the metadata.
type Node struct {
	ID        string    `json:"id"`
	Type      NodeType  `json:"type"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"` // empty only for root
	Path      string    `json:"path"`
	Size      int64     `json:"size,omitempty"`
	ContentID string    `json:"content_id,omitempty"`
	MimeType  string    `json:"mime_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDir reports whether the node is a directory
func (n *Node) IsDir() bool {
	return n.Type == NodeDir
}

// EventKind identifies what a file system mutation did
type EventKind string

const (
	EventCreate EventKind = "create"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
	EventRename EventKind = "rename"
)

// Event describes one observed mutation. Node is a snapshot taken
// after the mutation (for EventDelete, the final record). OldPath is
// set only for EventRename.
type Event struct {
	Kind    EventKind `json:"kind"`
	Path    string    `json:"path"`
	OldPath string    `json:"old_path,omitempty"`
	Node    Node      `json:"node"`
}

// WatchFunc observes file system events
type WatchFunc func(Event)
