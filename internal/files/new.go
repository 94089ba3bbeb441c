package files

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/comprehend-desk/comprehend-host/internal/config"
	"github.com/comprehend-desk/comprehend-host/internal/hub"
	"github.com/comprehend-desk/comprehend-host/internal/logger"
)

type implService struct {
	hub   *hub.Hub
	store *config.Store
	log   logger.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	root    string
	// dirs tracks directories we added watches for, so their removal
	// can be classified as removeDir after the node is already gone.
	dirs map[string]bool
}

// New creates a Service. The extension allow-list and watch depth come
// from the settings store.
func New(h *hub.Hub, store *config.Store, log logger.Logger) Service {
	return &implService{
		hub:   h,
		store: store,
		log:   log.WithPrefix("files"),
	}
}
