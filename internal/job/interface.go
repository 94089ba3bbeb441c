package job

import "context"

// Runner owns the single active extraction job. At most one job runs at
// a time; starting a new one replaces (kills) the previous one.
type Runner interface {
	// Run spawns the extractor for spec and returns its pid. It never
	// waits for completion; output is delivered through the hub.
	Run(ctx context.Context, spec Spec) (int, error)

	// Kill terminates the active job. ErrNoJob when none is running.
	Kill() error

	// Running reports whether a job is currently active.
	Running() bool
}
