package storage

import (
	"context"
	"sync"

	"pharmacie-admin/pkg/eventbus"
)

// MemoryStorage keeps client state in process. Used when no redis is
// configured and in tests.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
	bus  *eventbus.Bus
}

func NewMemoryStorage(bus *eventbus.Bus) *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string), bus: bus}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (m *MemoryStorage) Set(ctx context.Context, key string, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	m.notify(ctx, key)
	return nil
}

func (m *MemoryStorage) Del(ctx context.Context, keys ...string) error {
	var removed []string
	m.mu.Lock()
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			removed = append(removed, key)
		}
	}
	m.mu.Unlock()
	for _, key := range removed {
		m.notify(ctx, key)
	}
	return nil
}

func (m *MemoryStorage) notify(ctx context.Context, key string) {
	if m.bus != nil {
		m.bus.Publish(ctx, eventbus.StorageChanged{Key: key})
	}
}
