package session

import (
	"context"
	"errors"
)

var (
	// ErrExists is returned by Create when the id is already registered.
	ErrExists = errors.New("session already exists")
	// ErrNotFound is returned by Kill for an unknown id.
	ErrNotFound = errors.New("session not found")
)

// Event type names published on the hub.
const (
	EventData = "session.data"
	EventExit = "session.exit"
)

// Options controls how a session's shell is started.
type Options struct {
	Cwd   string            `json:"cwd,omitempty"`
	Shell string            `json:"shell,omitempty"`
	Env   map[string]string `json:"env,omitempty"`
}

// DataPayload carries raw terminal output. Data is byte-for-byte what
// the pty produced; control sequences are preserved.
type DataPayload struct {
	ID   string `json:"id"`
	Data []byte `json:"data"`
}

// ExitPayload is published when a session's process exits, whether
// killed or on its own.
type ExitPayload struct {
	ID       string `json:"id"`
	ExitCode int    `json:"exitCode"`
}

// Registry owns every interactive pseudo-terminal session, keyed by a
// caller-supplied identifier. Only the registry touches the underlying
// pty.
type Registry interface {
	// Create starts a new shell session and returns its pid. Fails with
	// ErrExists if id is taken; on spawn failure nothing is registered.
	Create(ctx context.Context, id string, opts Options) (int, error)

	// Write forwards raw bytes to the session's input. Fire-and-forget:
	// unknown ids are a no-op.
	Write(id string, data []byte)

	// Resize updates the pty geometry. No-op for unknown ids.
	Resize(id string, cols, rows uint16)

	// Kill terminates and deregisters a session. ErrNotFound when the
	// id is unknown.
	Kill(id string) error

	// List returns the currently registered session ids.
	List() []string

	// CloseAll kills every session, best-effort. Called at shutdown so
	// no pty processes are orphaned.
	CloseAll(ctx context.Context)
}
