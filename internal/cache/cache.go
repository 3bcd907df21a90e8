// Package cache provides a TTL cache backed by memory and, optionally, a
// directory on disk. It is used to avoid refetching archive indexes and
// API responses between runs during development.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTTL is used when Config.TTL is zero.
	DefaultTTL = time.Hour

	dataExt = ".data"
	metaExt = ".meta"
)

var errExpired = errors.New("cache entry expired")

// Cache stores byte payloads by key until they expire.
type Cache struct {
	dir    string
	ttl    time.Duration
	mu     sync.RWMutex
	memory map[string]*entry
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

type metadata struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

// Config configures the cache behavior.
type Config struct {
	// Dir is the directory for the file cache. Empty keeps entries in
	// memory only.
	Dir string

	// TTL is the time-to-live for cached entries.
	TTL time.Duration
}

// New creates a cache, creating its directory if needed.
func New(cfg Config) (*Cache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	return &Cache{
		dir:    cfg.Dir,
		ttl:    cfg.TTL,
		memory: make(map[string]*entry),
	}, nil
}

// DefaultDir returns the per-user cache directory for forwardport.
func DefaultDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "forwardport"), nil
}

// Dir returns the file cache directory, or "" for a memory-only cache.
func (c *Cache) Dir() string {
	return c.dir
}

// TTL returns the time-to-live of new entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get retrieves a cached value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	hash := hashKey(key)

	c.mu.RLock()
	if e, ok := c.memory[hash]; ok && time.Now().Before(e.expiresAt) {
		c.mu.RUnlock()
		return e.data, true
	}
	c.mu.RUnlock()

	if c.dir == "" {
		return nil, false
	}

	data, expiresAt, err := c.readFile(hash)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			zap.L().Named("cache").Debug("cache miss", zap.String("hash", hash), zap.Error(err))
		}
		return nil, false
	}

	c.mu.Lock()
	c.memory[hash] = &entry{data: data, expiresAt: expiresAt}
	c.mu.Unlock()

	return data, true
}

// Set stores a value in the cache.
func (c *Cache) Set(ctx context.Context, key string, data []byte) error {
	hash := hashKey(key)
	expiresAt := time.Now().Add(c.ttl)

	c.mu.Lock()
	c.memory[hash] = &entry{data: data, expiresAt: expiresAt}
	c.mu.Unlock()

	if c.dir == "" {
		return nil
	}
	return c.writeFile(hash, metadata{ExpiresAt: expiresAt}, data)
}

// Delete removes a value from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	hash := hashKey(key)

	c.mu.Lock()
	delete(c.memory, hash)
	c.mu.Unlock()

	if c.dir != "" {
		c.removeFiles(hash)
	}
	return nil
}

// Clear removes all entries from the cache.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.memory = make(map[string]*entry)
	c.mu.Unlock()

	if c.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), dataExt) || strings.HasSuffix(e.Name(), metaExt) {
			_ = os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	return nil
}

// Stats describes cache usage.
type Stats struct {
	MemoryEntries int
	FileEntries   int
	TotalSizeKB   int64
}

// Stats returns cache statistics.
func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.RLock()
	stats := Stats{MemoryEntries: len(c.memory)}
	c.mu.RUnlock()

	if c.dir == "" {
		return stats
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return stats
	}

	var total int64
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), dataExt) {
			continue
		}
		stats.FileEntries++
		if info, err := e.Info(); err == nil {
			total += info.Size()
		}
	}
	stats.TotalSizeKB = total / 1024

	return stats
}

// Prune removes expired entries and returns how many were removed.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	pruned := 0
	now := time.Now()

	c.mu.Lock()
	for hash, e := range c.memory {
		if now.After(e.expiresAt) {
			delete(c.memory, hash)
			pruned++
		}
	}
	c.mu.Unlock()

	if c.dir == "" {
		return pruned, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return pruned, err
	}

	for _, e := range entries {
		hash, ok := strings.CutSuffix(e.Name(), metaExt)
		if !ok {
			continue
		}
		meta, err := c.readMeta(hash)
		if err != nil || now.After(meta.ExpiresAt) {
			c.removeFiles(hash)
			pruned++
		}
	}

	return pruned, nil
}

func (c *Cache) paths(hash string) (data, meta string) {
	return filepath.Join(c.dir, hash+dataExt), filepath.Join(c.dir, hash+metaExt)
}

func (c *Cache) readMeta(hash string) (metadata, error) {
	_, metaPath := c.paths(hash)

	var meta metadata
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(raw, &meta)
	return meta, err
}

func (c *Cache) readFile(hash string) ([]byte, time.Time, error) {
	meta, err := c.readMeta(hash)
	if err != nil {
		return nil, time.Time{}, err
	}

	if time.Now().After(meta.ExpiresAt) {
		c.removeFiles(hash)
		return nil, time.Time{}, errExpired
	}

	dataPath, _ := c.paths(hash)
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, meta.ExpiresAt, nil
}

// writeFile writes the payload before its metadata so a reader never sees
// metadata for a missing payload.
func (c *Cache) writeFile(hash string, meta metadata, data []byte) error {
	dataPath, metaPath := c.paths(hash)

	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dataPath, data, 0o600); err != nil {
		return err
	}
	return os.WriteFile(metaPath, raw, 0o600)
}

func (c *Cache) removeFiles(hash string) {
	dataPath, metaPath := c.paths(hash)
	_ = os.Remove(metaPath)
	_ = os.Remove(dataPath)
}

// hashKey returns a file-name-safe digest of key.
func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:16])
}
