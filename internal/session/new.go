package session

import (
	"os"
	"sync"

	"github.com/creack/pty"

	"github.com/comprehend-desk/comprehend-host/internal/config"
	"github.com/comprehend-desk/comprehend-host/internal/environ"
	"github.com/comprehend-desk/comprehend-host/internal/hub"
	"github.com/comprehend-desk/comprehend-host/internal/logger"
)

type implRegistry struct {
	env   environ.Resolver
	hub   *hub.Hub
	store *config.Store
	log   logger.Logger

	mu       sync.Mutex
	sessions map[string]*session

	// setPTYSize is injectable for tests; defaults to pty.Setsize.
	setPTYSize func(*os.File, *pty.Winsize) error
}

// New creates an empty Registry.
func New(env environ.Resolver, h *hub.Hub, store *config.Store, log logger.Logger) Registry {
	return &implRegistry{
		env:        env,
		hub:        h,
		store:      store,
		log:        log.WithPrefix("session"),
		sessions:   make(map[string]*session),
		setPTYSize: pty.Setsize,
	}
}
