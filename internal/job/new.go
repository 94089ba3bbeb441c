package job

import (
	"sync"

	"github.com/comprehend-desk/comprehend-host/internal/config"
	"github.com/comprehend-desk/comprehend-host/internal/environ"
	"github.com/comprehend-desk/comprehend-host/internal/hub"
	"github.com/comprehend-desk/comprehend-host/internal/logger"
	"github.com/comprehend-desk/comprehend-host/pkg/executor"
)

type implRunner struct {
	exec  executor.Executor
	env   environ.Resolver
	hub   *hub.Hub
	store *config.Store
	log   logger.Logger

	// cmdMu serializes the command path (Run/Kill) so two callers cannot
	// interleave the replace-on-run teardown.
	cmdMu sync.Mutex

	// stateMu guards current, which is also cleared by the drain loop.
	stateMu sync.Mutex
	current *generation
}

// New creates a Runner. The extractor binary, project root and default
// mode flags come from the settings store at each Run.
func New(exec executor.Executor, env environ.Resolver, h *hub.Hub, store *config.Store, log logger.Logger) Runner {
	return &implRunner{
		exec:  exec,
		env:   env,
		hub:   h,
		store: store,
		log:   log.WithPrefix("job"),
	}
}
