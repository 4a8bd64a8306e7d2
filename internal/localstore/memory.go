package localstore

import (
	"context"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore - хранилище в памяти процесса (тесты и режим LOCAL_STORE=memory).
// Данные не переживают перезапуск.
type MemoryStore struct {
	cache *gocache.Cache

	mu     sync.Mutex
	writes int
}

// NewMemoryStore создает пустое хранилище без истечения срока записей
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, 0)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, found := m.cache.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	raw := v.([]byte)
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.cache.Set(key, stored, gocache.NoExpiration)
	m.mu.Lock()
	m.writes++
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Writes возвращает число выполненных Set
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
