package matchcache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lunefort/tuneid/src/music"
)

// Entry is one cached primary-provider lookup.
type Entry struct {
	Fingerprint string        `json:"fingerprint"`
	Duration    int           `json:"duration"`
	Timestamp   float64       `json:"timestamp"`
	Matches     []music.Match `json:"matches"`
}

func entryKey(fingerprint string, duration int) string {
	return fmt.Sprintf("%s:%d", fingerprint, duration)
}

// Cache maps (fingerprint, rounded duration) to primary-provider matches
// with a TTL. A disabled cache is a no-op on every method. Nothing is read
// from disk until the first access and nothing is written until at least one
// mutation happened, so read-only runs do no cache I/O.
//
// Concurrent writers race on the backing file; last writer wins. Entries are
// provider-derived and cheap to recompute, so that is accepted.
type Cache struct {
	path    string
	ttl     time.Duration
	enabled bool

	mu      sync.Mutex
	loaded  bool
	dirty   bool
	entries map[string]Entry

	now func() time.Time
}

// New creates a cache persisted at path. A zero ttl means entries never
// expire. Pass enabled=false to turn every operation into a no-op.
func New(path string, ttl time.Duration, enabled bool) *Cache {
	return &Cache{
		path:    path,
		ttl:     ttl,
		enabled: enabled && path != "",
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Enabled reports whether the cache is active.
func (c *Cache) Enabled() bool { return c.enabled }

// Get returns the cached matches for the fingerprint, or ok=false when the
// cache is disabled, the key is absent, or the entry is older than the TTL.
func (c *Cache) Get(fingerprint string, duration float64) ([]music.Match, bool) {
	if !c.enabled {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	key := entryKey(fingerprint, roundDuration(duration))
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 {
		age := float64(c.now().UnixNano()) / 1e9 - entry.Timestamp
		if age > c.ttl.Seconds() {
			return nil, false
		}
	}
	matches := make([]music.Match, len(entry.Matches))
	copy(matches, entry.Matches)
	return matches, true
}

// Set stores matches for the fingerprint, overwriting any previous entry
// for the same key.
func (c *Cache) Set(fingerprint string, duration float64, matches []music.Match) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	rounded := roundDuration(duration)
	c.entries[entryKey(fingerprint, rounded)] = Entry{
		Fingerprint: fingerprint,
		Duration:    rounded,
		Timestamp:   float64(c.now().UnixNano()) / 1e9,
		Matches:     matches,
	}
	c.dirty = true
}

// Clear drops every entry.
func (c *Cache) Clear() {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	c.entries = make(map[string]Entry)
	c.dirty = true
}

// Save flushes the cache to disk if it was mutated since the last flush.
func (c *Cache) Save() error {
	if !c.enabled {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	c.dirty = false
	slog.Debug("Match cache flushed", "path", c.path, "entries", len(c.entries))
	return nil
}

// ensureLoaded reads the backing file once. Read failures are treated as an
// empty cache, never as an error to the caller.
func (c *Cache) ensureLoaded() {
	if c.loaded {
		return
	}
	c.loaded = true

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read match cache, starting empty", "path", c.path, "error", err)
		}
		return
	}
	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("Failed to parse match cache, starting empty", "path", c.path, "error", err)
		return
	}
	c.entries = entries
}

func roundDuration(duration float64) int {
	return music.FingerprintResult{Duration: duration}.RoundedDuration()
}
