package store

import (
	"context"
	"sync"
)

var _ SettingsStore = (*MemoryStore)(nil)

// MemoryStore is an in-process SettingsStore. Nothing is persisted.
type MemoryStore struct {
	notifier

	mu   sync.RWMutex
	data map[string][]string
}

// NewMemoryStore creates a MemoryStore seeded with initial (which is copied).
func NewMemoryStore(initial map[string][]string) *MemoryStore {
	s := &MemoryStore{data: make(map[string][]string, len(initial))}
	for k, v := range initial {
		s.data[k] = cloneStrings(v)
	}
	return s
}

// Strings returns a copy of the list under key.
func (s *MemoryStore) Strings(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneStrings(s.data[key]), nil
}

// SetStrings replaces the list under key and notifies on change.
func (s *MemoryStore) SetStrings(_ context.Context, key string, values []string) error {
	s.mu.Lock()
	if equalStrings(s.data[key], values) {
		s.mu.Unlock()
		return nil
	}
	s.data[key] = cloneStrings(values)
	s.mu.Unlock()

	s.broadcast(Change{Key: key})
	return nil
}

// Close closes all subscriber channels.
func (s *MemoryStore) Close() error {
	s.closeAll()
	return nil
}
