package executor

import "context"

// Executor defines the interface for running external commands
type Executor interface {
	// Execute runs a command to completion and returns its stdout.
	Execute(ctx context.Context, name string, args ...string) (string, error)

	// Start spawns a command and returns a handle with live output pipes.
	Start(ctx context.Context, spec StartSpec) (*Process, error)
}

// StartSpec describes a process to spawn.
type StartSpec struct {
	Dir  string
	Env  []string
	Name string
	Args []string
}
