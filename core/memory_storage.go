package core

import (
	"context"
	"strings"
	"sync"
)

// MemoryStorage is a process-local KeyValueStorage.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (s *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[strings.TrimSpace(key)]
	return value, ok, nil
}

func (s *MemoryStorage) Set(_ context.Context, key string, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errStorageKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, strings.TrimSpace(key))
	}
	return nil
}

func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
