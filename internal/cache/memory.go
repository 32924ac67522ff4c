package cache

import (
	"context"
	"sync"
)

// MemorySettingsStore is an in-memory implementation of SettingsStore.
// Use this for development/testing; values do not survive a restart.
type MemorySettingsStore struct {
	mu     sync.RWMutex
	values map[string]int64
}

// NewMemorySettingsStore creates an empty in-memory settings store.
func NewMemorySettingsStore() *MemorySettingsStore {
	return &MemorySettingsStore{
		values: make(map[string]int64),
	}
}

// GetLong returns the value for key or def.
func (s *MemorySettingsStore) GetLong(ctx context.Context, key string, def int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return def, nil
	}
	return v, nil
}

// PutLong stores value under key.
func (s *MemorySettingsStore) PutLong(ctx context.Context, key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Remove deletes key.
func (s *MemorySettingsStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// AllKeys returns every stored key.
func (s *MemorySettingsStore) AllKeys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys, nil
}

// Clear removes every key.
func (s *MemorySettingsStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = make(map[string]int64)
	return nil
}

// Ping always succeeds.
func (s *MemorySettingsStore) Ping(ctx context.Context) error {
	return nil
}

var _ SettingsStore = (*MemorySettingsStore)(nil)
