package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/WebblyCMS/Webbly/internal/logging"
)

// Memoize wraps a computation with the get-before-call / set-after-call
// contract: on a hit the cached value is returned and fn is not invoked
// at all, so callers must not rely on fn's side effects happening on
// every logical call. fn should be pure over its arguments and its
// result must round-trip encoding/json.
//
// A backend failure on either side degrades to calling fn directly —
// caching is a performance optimization, never a correctness dependency.
// Two goroutines racing on the same miss may both execute fn and both
// write; that duplicate work is accepted, no single-flight is attempted.
//
// A ttl of DefaultTTL applies the cache-wide default; NoExpiration keeps
// entries until explicitly invalidated.
func Memoize[R any](c *Cache, name string, ttl time.Duration, fn func(context.Context, ...any) (R, error)) func(context.Context, ...any) (R, error) {
	return func(ctx context.Context, args ...any) (R, error) {
		key := Key("memo", name, args, nil, nil)
		return lookupOrCall(ctx, c, key, ttl, func(ctx context.Context) (R, error) {
			return fn(ctx, args...)
		})
	}
}

// CachedView wraps a request-style handler. It behaves like Memoize but
// additionally folds the ambient per-request parameters (typically the
// query string) into the key, since the same handler invoked with
// different request parameters must produce different entries.
func CachedView[R any](c *Cache, name string, ttl time.Duration, fn func(context.Context, map[string]string) (R, error)) func(context.Context, map[string]string) (R, error) {
	return func(ctx context.Context, params map[string]string) (R, error) {
		key := Key("view", name, nil, nil, params)
		return lookupOrCall(ctx, c, key, ttl, func(ctx context.Context) (R, error) {
			return fn(ctx, params)
		})
	}
}

// Remember caches a computation under an explicit key instead of a
// derived one, for values that must be invalidatable by pattern (e.g.
// "content:42:rendered").
func Remember[R any](c *Cache, key string, ttl time.Duration, fn func(context.Context) (R, error)) func(context.Context) (R, error) {
	return func(ctx context.Context) (R, error) {
		return lookupOrCall(ctx, c, key, ttl, fn)
	}
}

func lookupOrCall[R any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(context.Context) (R, error)) (R, error) {
	logger := logging.WithCache(c.Backend())

	if data, found, err := c.Get(ctx, key); err != nil {
		logger.Warn("cache get failed, executing directly", "key", key, "error", err)
	} else if found {
		var out R
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		// Undecodable entry counts as a miss and gets overwritten below.
	}

	out, err := fn(ctx)
	if err != nil {
		return out, err
	}

	data, err := json.Marshal(out)
	if err != nil {
		logger.Warn("cache value not serializable, skipping store", "key", key, "error", err)
		return out, nil
	}

	if err := c.Set(ctx, key, data, ttl); err != nil {
		logger.Warn("cache set failed", "key", key, "error", err)
	}
	return out, nil
}
