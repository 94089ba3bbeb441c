package files

// EventChange is the hub event type for filesystem notifications.
const EventChange = "file.change"

// Node is one entry of a directory snapshot. Children is populated only
// for directories and is sorted folders-first, then case-insensitively
// by name.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	IsDir    bool    `json:"isDir"`
	Children []*Node `json:"children,omitempty"`
}

// ChangePayload is one forwarded filesystem event.
type ChangePayload struct {
	Type string `json:"type"` // add|change|remove|addDir|removeDir
	Path string `json:"path"`
}

// Service provides directory snapshots and change monitoring for the
// extractor's output tree.
type Service interface {
	// Snapshot lists dir recursively, applying the extension allow-list
	// and sort order. A missing directory yields an empty tree.
	Snapshot(dir string) ([]*Node, error)

	// Watch starts monitoring dir, replacing any active watch.
	Watch(dir string) error

	// Unwatch stops monitoring. Idempotent.
	Unwatch()
}
