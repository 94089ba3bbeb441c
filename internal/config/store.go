package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store holds the persisted settings and supports nested key access so the
// settings surface can read/write individual values without knowing the
// struct layout.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// Load reads the settings file at path. A missing file is not an error: the
// store starts from defaults and the file is created on first Save.
func Load(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if verr := s.cfg.Validate(); verr != nil {
				return nil, verr
			}
			return s, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return s, nil
}

// Config returns a copy of the current configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Get returns the value at a dotted key path, e.g. "provider.api_key".
func (s *Store) Get(key string) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, err := s.asMap()
	if err != nil {
		return nil, err
	}

	var cur interface{} = m
	for _, part := range strings.Split(key, ".") {
		node, ok := cur.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("key %q not found", key)
		}
		cur, ok = node[part]
		if !ok {
			return nil, fmt.Errorf("key %q not found", key)
		}
	}

	return cur, nil
}

// Set writes the value at a dotted key path and re-validates the result.
// The change is in-memory until Save is called.
func (s *Store) Set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.asMap()
	if err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	node := m
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	var next Config
	if err := yaml.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}

	s.cfg = next
	return nil
}

// Save writes the current configuration back to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := yaml.Marshal(&s.cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// asMap round-trips the typed config through yaml into a generic map,
// which is what the dotted-path walkers operate on. Caller holds the lock.
func (s *Store) asMap() (map[string]interface{}, error) {
	data, err := yaml.Marshal(&s.cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	m := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return m, nil
}
