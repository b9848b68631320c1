package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const entrySuffix = ".cache"

// fsEntry is the on-disk representation of one cache entry. The original
// key is stored inside the file because filenames are hashed, and
// pattern invalidation needs the real keys to scan.
type fsEntry struct {
	Key       string `json:"key"`
	Value     []byte `json:"value"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds, 0 = never
}

func (e *fsEntry) expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.Unix() >= e.ExpiresAt
}

// FilesystemStore persists entries as one JSON file per key in a
// directory. Survives restarts; suited to single-node deployments
// without a Redis.
type FilesystemStore struct {
	dir string
}

// NewFilesystem creates (if needed) the cache directory and returns a
// store over it.
func NewFilesystem(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create cache dir: %v", ErrBackendUnavailable, err)
	}
	return &FilesystemStore{dir: dir}, nil
}

func (f *FilesystemStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+entrySuffix)
}

func (f *FilesystemStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := f.readEntry(f.path(key))
	if err != nil {
		return nil, false, err
	}
	if entry == nil {
		return nil, false, nil
	}
	if entry.expired(time.Now()) {
		// Lazy removal of expired entries.
		_ = os.Remove(f.path(key))
		return nil, false, nil
	}
	return entry.Value, true, nil
}

func (f *FilesystemStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := fsEntry{Key: key, Value: value}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl).Unix()
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	// Write-then-rename so a concurrent Get never sees a torn entry.
	path := f.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: failed to write cache entry: %v", ErrBackendUnavailable, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: failed to store cache entry: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (f *FilesystemStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to delete cache entry: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (f *FilesystemStore) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return fmt.Errorf("%w: failed to read cache dir: %v", ErrBackendUnavailable, err)
	}
	for _, dirEntry := range entries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), entrySuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, dirEntry.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: failed to clear cache: %v", ErrBackendUnavailable, err)
		}
	}
	return nil
}

func (f *FilesystemStore) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read cache dir: %v", ErrBackendUnavailable, err)
	}

	now := time.Now()
	var keys []string
	for _, dirEntry := range entries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), entrySuffix) {
			continue
		}
		entry, err := f.readEntry(filepath.Join(f.dir, dirEntry.Name()))
		if err != nil || entry == nil {
			continue
		}
		if entry.expired(now) {
			_ = os.Remove(filepath.Join(f.dir, dirEntry.Name()))
			continue
		}
		keys = append(keys, entry.Key)
	}
	return keys, nil
}

func (f *FilesystemStore) DeletePattern(ctx context.Context, pattern string) (int, error) {
	return deleteByScan(ctx, f, pattern)
}

func (f *FilesystemStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(f.dir); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (f *FilesystemStore) Name() string { return "filesystem" }

func (f *FilesystemStore) Close() error { return nil }

// readEntry returns nil, nil when the entry does not exist. A file that
// cannot be decoded is treated as absent and removed; it is a cache, a
// corrupt entry is just a miss.
func (f *FilesystemStore) readEntry(path string) (*fsEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read cache entry: %v", ErrBackendUnavailable, err)
	}

	var entry fsEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(path)
		return nil, nil
	}
	return &entry, nil
}
