package briefing

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache provides file-based caching for generated briefings, keyed on
// cell and risk level so a cell whose risk changes gets fresh text.
type Cache struct {
	dir    string
	maxAge time.Duration
}

// NewCache creates a new briefing cache in the specified directory.
// Entries are refreshed after maxAge so the text tracks recent reports.
func NewCache(dir string) *Cache {
	if err := os.MkdirAll(dir, 0755); err != nil {
		// Log but don't fail - cache is optional
		fmt.Printf("Warning: could not create briefing cache directory: %v\n", err)
	}
	return &Cache{
		dir:    dir,
		maxAge: 6 * time.Hour,
	}
}

// path returns the cache file path for a cell + risk level pair.
func (c *Cache) path(cell, level string) string {
	return filepath.Join(c.dir, fmt.Sprintf("briefing_%s_%s.txt", cell, level))
}

// Get retrieves a cached briefing if it exists and is not stale.
func (c *Cache) Get(cell, level string) (string, bool) {
	path := c.path(cell, level)
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if time.Since(info.ModTime()) > c.maxAge {
		return "", false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Set stores a briefing in the cache.
func (c *Cache) Set(cell, level, text string) error {
	return os.WriteFile(c.path(cell, level), []byte(text), 0644)
}
