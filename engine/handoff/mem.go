package handoff

import (
	"fmt"
	"sync"
)

// MemStore is a map-backed handoff store.
//
// It decouples controller and stage logic from the filesystem for unit
// testing; the pipeline itself remains single-writer-per-key, but the store
// is safe for concurrent use anyway.
type MemStore struct {
	mu        sync.RWMutex
	artifacts map[string][]byte
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		artifacts: make(map[string][]byte),
	}
}

// Put implements Store.
func (m *MemStore) Put(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.artifacts[key] = buf
	return nil
}

// Get implements Store.
func (m *MemStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.artifacts[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Exists implements Store.
func (m *MemStore) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.artifacts[key]
	return ok
}

// Copy implements Store.
func (m *MemStore) Copy(src, dst string) error {
	data, err := m.Get(src)
	if err != nil {
		return err
	}
	return m.Put(dst, data)
}

// Keys returns the keys currently present, for test assertions.
func (m *MemStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.artifacts))
	for k := range m.artifacts {
		keys = append(keys, k)
	}
	return keys
}
