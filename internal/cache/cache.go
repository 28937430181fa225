// Package cache holds time-bounded lookup results keyed by normalized query.
// Entries expire lazily: expiry is checked at read time against the
// configured duration, never swept.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const cacheFileName = "phone_cache.json"

// DefaultDurationDays is used when no duration is configured.
const DefaultDurationDays = 30

// Entry is one cached resolution.
type Entry struct {
	Department  string    `json:"department"`
	PhoneNumber string    `json:"phoneNumber"`
	LastValid   time.Time `json:"lastValid"`
	Aliases     []string  `json:"aliases"`
}

type metadata struct {
	LastUpdated       time.Time `json:"last_updated"`
	CacheDurationDays int       `json:"cache_duration_days"`
}

type cacheFile struct {
	Cache    map[string]Entry `json:"cache"`
	Metadata metadata         `json:"metadata"`
}

// Cache is a mutex-guarded repository over the JSON cache file.
type Cache struct {
	mu           sync.Mutex
	path         string
	durationDays int
	now          func() time.Time
}

// Open creates dataDir if needed and initializes an empty cache file on
// first run. durationDays <= 0 falls back to DefaultDurationDays.
func Open(dataDir string, durationDays int) (*Cache, error) {
	if durationDays <= 0 {
		durationDays = DefaultDurationDays
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	c := &Cache{
		path:         filepath.Join(dataDir, cacheFileName),
		durationDays: durationDays,
		now:          time.Now,
	}
	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		if err := c.persist(c.empty()); err != nil {
			return nil, fmt.Errorf("initializing cache: %w", err)
		}
	}
	return c, nil
}

func (c *Cache) empty() cacheFile {
	return cacheFile{
		Cache: map[string]Entry{},
		Metadata: metadata{
			LastUpdated:       c.now().UTC(),
			CacheDurationDays: c.durationDays,
		},
	}
}

func (c *Cache) load() cacheFile {
	data, err := os.ReadFile(c.path)
	if err != nil {
		slog.Warn("cache: unreadable file, reinitializing", "path", c.path, "error", err)
		f := c.empty()
		_ = c.persist(f)
		return f
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		slog.Warn("cache: corrupt file, reinitializing", "path", c.path, "error", err)
		f = c.empty()
		_ = c.persist(f)
		return f
	}
	if f.Cache == nil {
		f.Cache = map[string]Entry{}
	}
	return f
}

func (c *Cache) persist(f cacheFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling cache: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), cacheFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// fresh reports whether an entry written at lastValid is still within the
// cache duration. The duration stored in the file's metadata wins over the
// configured one so an operator can tune it without restarting.
func (c *Cache) fresh(f cacheFile, lastValid time.Time) bool {
	days := f.Metadata.CacheDurationDays
	if days <= 0 {
		days = c.durationDays
	}
	return c.now().Sub(lastValid) < time.Duration(days)*24*time.Hour
}

// Lookup returns the cached entry for the normalized query, trying the
// direct key first and then every entry's alias set. Expired entries are
// skipped, not evicted.
func (c *Cache) Lookup(query string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := c.load()
	q := strings.ToLower(strings.TrimSpace(query))

	if e, ok := f.Cache[q]; ok && c.fresh(f, e.LastValid) {
		return e, true
	}

	for _, e := range f.Cache {
		if !c.fresh(f, e.LastValid) {
			continue
		}
		for _, alias := range e.Aliases {
			if alias == q {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// Store writes (or fully replaces) the entry for the normalized query. The
// alias set is reset to just the normalized query itself; aliases never
// accumulate across writes.
func (c *Cache) Store(query, department, phoneNumber string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := c.load()
	q := strings.ToLower(strings.TrimSpace(query))
	now := c.now().UTC()

	f.Cache[q] = Entry{
		Department:  department,
		PhoneNumber: phoneNumber,
		LastValid:   now,
		Aliases:     []string{q},
	}
	f.Metadata.LastUpdated = now
	return c.persist(f)
}
