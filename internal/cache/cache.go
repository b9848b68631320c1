package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrBackendUnavailable is returned when the underlying storage cannot
	// be reached (e.g. Redis down, cache directory unwritable). Callers
	// should treat it as "skip caching", never as fatal.
	ErrBackendUnavailable = errors.New("cache backend unavailable")

	// ErrNotSupported is returned by operations the backend cannot
	// perform, such as key enumeration on a non-enumerable store.
	ErrNotSupported = errors.New("operation not supported by cache backend")
)

const (
	// NoExpiration marks an entry that lives until an explicit delete
	// or clear.
	NoExpiration time.Duration = -1

	// DefaultTTL tells Set and the memoization helpers to apply the
	// cache-wide default TTL.
	DefaultTTL time.Duration = 0
)

// Store is the backend interface behind the cache. Implementations exist
// for process memory, a filesystem directory and Redis; they are selected
// once at construction and never switched at runtime.
//
// Get/Set/Delete on a single key are atomic with respect to concurrent
// callers. Multi-key operations (Clear, DeletePattern) are not atomic as a
// whole: a concurrent Set during a pattern scan may or may not be caught
// by that pass. This race is accepted; serializing all cache traffic to
// close it would cost more than it buys.
type Store interface {
	// Get returns the value for key, reporting whether it was present.
	// An expired entry reads as absent and may be lazily removed.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A ttl of zero or below means the entry
	// never expires (subject to backend eviction); the Cache wrapper
	// resolves DefaultTTL before the store sees it.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a single key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry in the store.
	Clear(ctx context.Context) error

	// Keys lists all live keys. Backends that cannot enumerate keys
	// return ErrNotSupported.
	Keys(ctx context.Context) ([]string, error)

	// DeletePattern removes every key matching pattern and returns how
	// many were removed. Backends with native pattern scanning delegate
	// to it; others scan Keys. Non-enumerable backends return
	// ErrNotSupported rather than silently doing nothing.
	DeletePattern(ctx context.Context, pattern string) (int, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Name identifies the backend ("memory", "filesystem", "redis").
	Name() string

	Close() error
}

// Cache wraps a Store with an application key prefix and a default TTL.
// Construct one at startup and pass it by reference to every consumer;
// there is no package-level instance.
type Cache struct {
	store      Store
	prefix     string
	defaultTTL time.Duration
}

// New creates a cache over the given backend. All keys are namespaced
// with prefix so several applications can share one backend.
func New(store Store, prefix string, defaultTTL time.Duration) *Cache {
	return &Cache{
		store:      store,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

// Get returns the raw value stored under key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.store.Get(ctx, c.prefix+key)
}

// Set stores value under key with the given ttl. DefaultTTL applies the
// cache-wide default; NoExpiration keeps the entry until an explicit
// delete or clear.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == DefaultTTL {
		ttl = c.defaultTTL
	}
	return c.store.Set(ctx, c.prefix+key, value, ttl)
}

// Delete removes a single entry.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, c.prefix+key)
}

// Clear removes every entry belonging to this cache. With a key prefix
// only prefixed entries are touched; without one the whole store is
// cleared.
func (c *Cache) Clear(ctx context.Context) error {
	if c.prefix == "" {
		return c.store.Clear(ctx)
	}
	_, err := c.store.DeletePattern(ctx, c.prefix+"*")
	return err
}

// Invalidate removes all entries whose key matches pattern (a plain
// substring, or a glob with '*' wildcards). Returns the number of
// entries removed. Fails with ErrNotSupported on backends that cannot
// enumerate keys.
func (c *Cache) Invalidate(ctx context.Context, pattern string) (int, error) {
	return c.store.DeletePattern(ctx, c.prefix+"*"+pattern+"*")
}

// DefaultTTL returns the TTL applied when Set is handed the DefaultTTL
// sentinel.
func (c *Cache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Backend returns the backend name, for health reporting.
func (c *Cache) Backend() string {
	return c.store.Name()
}

// Ping reports whether the backend is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close releases backend resources.
func (c *Cache) Close() error {
	return c.store.Close()
}

// matchPattern reports whether key matches pattern. A pattern without
// wildcards matches by substring containment; '*' matches any run of
// characters.
func matchPattern(key, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return strings.Contains(key, pattern)
	}

	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	key = key[len(parts[0]):]

	last := parts[len(parts)-1]
	if !strings.HasSuffix(key, last) {
		return false
	}
	key = key[:len(key)-len(last)]

	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(key, part)
		if idx < 0 {
			return false
		}
		key = key[idx+len(part):]
	}
	return true
}

// deleteByScan implements DeletePattern for enumerating backends.
func deleteByScan(ctx context.Context, s Store, pattern string) (int, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if !matchPattern(key, pattern) {
			continue
		}
		if err := s.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("failed to delete %q: %w", key, err)
		}
		removed++
	}
	return removed, nil
}
