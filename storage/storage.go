// Package storage provides the persistent key-value store consumed by the
// chain-scoped configuration layers, plus the guarded persistence of
// user-supplied RPC endpoint lists.
package storage

import "sync"

// Store is a synchronous key-value store. Keys are namespaced by the caller
// using the "<chainKey>_<baseKey>" convention.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryStore is an in-memory Store, safe for concurrent use. It backs tests
// and short-lived sessions without a database file.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]

	return v, ok
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value

	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)

	return nil
}
