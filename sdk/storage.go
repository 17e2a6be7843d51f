package sdk

import (
	"context"
	"sync"
)

// StorageHandler is a key/value store used by App to keep session state
// such as the access token and the current user.
//
// Get reports whether the key was present. Remove of an absent key is not
// an error. Networked implementations (internal/cache, internal/database)
// may return errors; the in-memory one never does.
type StorageHandler interface {
	Get(ctx context.Context, key string) (interface{}, bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// InMemoryStorageHandler is a process-local StorageHandler. Nothing
// survives the process.
type InMemoryStorageHandler struct {
	mu      sync.RWMutex
	entries map[string]interface{}
}

var _ StorageHandler = (*InMemoryStorageHandler)(nil)

// NewInMemoryStorageHandler creates an empty store.
func NewInMemoryStorageHandler() *InMemoryStorageHandler {
	return &InMemoryStorageHandler{
		entries: make(map[string]interface{}),
	}
}

// Get returns the value stored under key.
func (s *InMemoryStorageHandler) Get(_ context.Context, key string) (interface{}, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[key]
	return value, ok, nil
}

// Set stores value under key, replacing any previous value.
func (s *InMemoryStorageHandler) Set(_ context.Context, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

// Remove deletes key.
func (s *InMemoryStorageHandler) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Clear deletes every entry.
func (s *InMemoryStorageHandler) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]interface{})
	return nil
}

// Len returns the number of stored entries.
func (s *InMemoryStorageHandler) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
