package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process KV. Nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string][]byte
	updated time.Time
}

var _ KV = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	m.updated = time.Now()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	m.updated = time.Now()
	return nil
}

func (m *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var size int64
	for _, v := range m.values {
		size += int64(len(v))
	}
	return &Stats{Backend: "memory", Entries: len(m.values), SizeBytes: size, LastUpdated: m.updated}, nil
}

func (m *MemoryStore) Close() error { return nil }
