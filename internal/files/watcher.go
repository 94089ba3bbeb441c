package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/comprehend-desk/comprehend-host/internal/hub"
)

func (s *implService) Watch(dir string) error {
	if dir == "" {
		dir = s.store.Config().Paths.Output
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Exactly one watch is ever active: replacing stops the old one first.
	s.stopLocked()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	s.watcher = w
	s.root = dir
	s.dirs = make(map[string]bool)

	depth := s.store.Config().Files.WatchDepth
	if err := s.addRecursive(dir, depth); err != nil {
		w.Close()
		s.watcher = nil
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go s.loop(w, dir, depth)
	s.log.Info(context.Background(), "watching %s (depth %d)", dir, depth)

	return nil
}

func (s *implService) Unwatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// stopLocked closes the active watcher, ending its loop goroutine.
// Caller holds s.mu.
func (s *implService) stopLocked() {
	if s.watcher == nil {
		return
	}
	s.watcher.Close()
	s.log.Info(context.Background(), "stopped watching %s", s.root)
	s.watcher = nil
	s.root = ""
	s.dirs = nil
}

// addRecursive registers watches for dir and its subdirectories up to
// depth levels below it. Caller holds s.mu.
func (s *implService) addRecursive(dir string, depth int) error {
	if err := s.watcher.Add(dir); err != nil {
		return err
	}
	s.dirs[dir] = true

	if depth <= 0 {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := s.addRecursive(filepath.Join(dir, entry.Name()), depth-1); err != nil {
			return err
		}
	}

	return nil
}

func (s *implService) loop(w *fsnotify.Watcher, root string, depth int) {
	ctx := context.Background()
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			s.handle(w, event, root, depth)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Error(ctx, "watcher error: %v", err)
		}
	}
}

func (s *implService) handle(w *fsnotify.Watcher, event fsnotify.Event, root string, depth int) {
	var changeType string

	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			changeType = "addDir"
			s.trackDir(w, event.Name, root, depth)
		} else {
			changeType = "add"
		}

	case event.Op&fsnotify.Write != 0:
		changeType = "change"

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		s.mu.Lock()
		if s.dirs[event.Name] {
			delete(s.dirs, event.Name)
			changeType = "removeDir"
		} else {
			changeType = "remove"
		}
		s.mu.Unlock()

	default:
		return
	}

	s.hub.Publish(hub.Event{Type: EventChange, Payload: ChangePayload{
		Type: changeType,
		Path: event.Name,
	}})
}

// trackDir starts watching a directory that appeared after Watch, as
// long as it sits within the recursion bound.
func (s *implService) trackDir(w *fsnotify.Watcher, dir, root string, depth int) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return
	}
	if strings.Count(rel, string(filepath.Separator))+1 > depth {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != w {
		// A replacing Watch won the race; this watcher is being torn down.
		return
	}
	if err := w.Add(dir); err != nil {
		s.log.Warn(context.Background(), "watch new dir %s: %v", dir, err)
		return
	}
	s.dirs[dir] = true
}
