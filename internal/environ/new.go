package environ

import (
	"os"

	"github.com/comprehend-desk/comprehend-host/internal/config"
)

type implResolver struct {
	projectRoot string
	store       *config.Store

	// base is injectable for tests; defaults to os.Environ.
	base func() []string
}

// New creates a Resolver rooted at projectRoot, reading settings from store.
func New(projectRoot string, store *config.Store) Resolver {
	return &implResolver{
		projectRoot: projectRoot,
		store:       store,
		base:        os.Environ,
	}
}
