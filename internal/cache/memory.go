package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory. Fast and always
// available, but entries die with the process.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemory creates an in-process store. A background janitor sweeps
// expired entries every 10 minutes; reads past the expiry see the entry
// as absent regardless.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, found := m.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	data, ok := value.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		m.cache.Set(key, value, gocache.NoExpiration)
		return nil
	}
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.cache.Flush()
	return nil
}

func (m *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	items := m.cache.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	return keys, nil
}

func (m *MemoryStore) DeletePattern(ctx context.Context, pattern string) (int, error) {
	return deleteByScan(ctx, m, pattern)
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}
