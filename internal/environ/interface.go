package environ

// Resolver builds the environment for a spawned process from layered
// sources: the host's inherited environment, the project .env file,
// persisted settings, and values computed for the spawn.
type Resolver interface {
	Resolve(opts Options) map[string]string
	ResolveList(opts Options) []string
}

// Options carries per-spawn inputs to resolution.
type Options struct {
	// Overrides is the highest-precedence layer, supplied by the caller.
	Overrides map[string]string
}
