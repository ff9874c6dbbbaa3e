package store

import (
	"context"
	"sync"
	"time"
)

// MemoryKV is the non-redis fallback used in dev mode and tests. Expiry is
// checked lazily on read.
type MemoryKV struct {
	mu    sync.RWMutex
	items map[string]memItem
}

type memItem struct {
	value     string
	expiresAt time.Time // zero means no TTL
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: map[string]memItem{}}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrMiss
	}
	if !it.expiresAt.IsZero() && time.Now().After(it.expiresAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return "", ErrMiss
	}
	return it.value, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	it := memItem{value: value}
	if ttl > 0 {
		it.expiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = it
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}
