package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func (s *implService) Snapshot(dir string) ([]*Node, error) {
	if dir == "" {
		dir = s.store.Config().Paths.Output
	}

	info, err := os.Stat(dir)
	if err != nil {
		// A not-yet-created output directory is an expected startup
		// state, not an error.
		if os.IsNotExist(err) {
			return []*Node{}, nil
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	allowed := make(map[string]bool)
	for _, ext := range s.store.Config().Files.Extensions {
		allowed[strings.ToLower(ext)] = true
	}

	return s.list(dir, allowed)
}

func (s *implService) list(dir string, allowed map[string]bool) ([]*Node, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var nodes []*Node
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			children, err := s.list(path, allowed)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, &Node{
				Name:     entry.Name(),
				Path:     path,
				IsDir:    true,
				Children: children,
			})
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == "" || !allowed[ext] {
			continue
		}
		nodes = append(nodes, &Node{
			Name: entry.Name(),
			Path: path,
		})
	}

	// Folders before files; within each group, case-insensitive by name.
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].IsDir != nodes[j].IsDir {
			return nodes[i].IsDir
		}
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})

	return nodes, nil
}
