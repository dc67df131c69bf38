package memory

import (
	"context"
	"sync"
)

// Well-known namespaces and keys.
const (
	NamespaceUser   = "user"
	KeyPreferences  = "preferences"
	KeyHomeLocation = "home_location"
)

// Store is a namespaced key-value store for long-lived user memory
// (saved preferences, home location). Values are JSON-serializable:
// objects round-trip as map[string]any, strings as string.
type Store interface {
	Get(ctx context.Context, namespace, key string) (any, bool, error)
	Put(ctx context.Context, namespace, key string, value any) error
}

// InMemoryStore is the default Store backend. It persists for process
// lifetime only.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]any
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]any)}
}

func (s *InMemoryStore) Get(_ context.Context, namespace, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[namespace+"/"+key]
	return value, ok, nil
}

func (s *InMemoryStore) Put(_ context.Context, namespace, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[namespace+"/"+key] = value
	return nil
}
