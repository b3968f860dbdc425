// Package memory implements a map-backed confstore.Store.
package memory

import (
	"context"
	"sync"

	"github.com/marmos91/wwwserver/pkg/store/confstore"
)

// Store keeps sections in memory. Lookups complete in a single call.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sections map[string]map[string]string
	closed   bool
}

// New creates a store holding a copy of sections.
func New(sections map[string]map[string]string) *Store {
	s := &Store{sections: make(map[string]map[string]string, len(sections))}
	for name, values := range sections {
		s.AddSection(name)
		for k, v := range values {
			s.Set(name, k, v)
		}
	}
	return s
}

// AddSection creates an empty section if it does not exist.
func (s *Store) AddSection(section string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sections[section]; !ok {
		s.sections[section] = make(map[string]string)
	}
}

// Set stores value under section/key, creating the section as needed.
func (s *Store) Set(section, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.sections[section]
	if !ok {
		values = make(map[string]string)
		s.sections[section] = values
	}
	values[key] = value
}

// Delete removes a key. Removing the last key keeps the section.
func (s *Store) Delete(section, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sections[section], key)
}

func (s *Store) GetValue(ctx context.Context, section, key string, buf []byte, _ *confstore.ReadState) (confstore.Status, int, error) {
	if err := ctx.Err(); err != nil {
		return confstore.StatusInProgress, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return confstore.StatusInProgress, 0, confstore.ErrClosed
	}

	values, ok := s.sections[section]
	if !ok {
		return confstore.StatusSectionNotFound, 0, nil
	}
	value, ok := values[key]
	if !ok {
		return confstore.StatusKeyNotFound, 0, nil
	}
	if len(value) > len(buf) {
		return confstore.StatusInProgress, 0, confstore.ErrBufferTooSmall
	}
	return confstore.StatusFound, copy(buf, value), nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
