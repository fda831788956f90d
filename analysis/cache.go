package analysis

import (
	"sync"
	"time"

	"github.com/c360studio/reqderive/requirement"
)

// Cache stores derivation results keyed by requirement fingerprint.
// Entries are immutable once stored and live until explicit invalidation;
// there is no automatic expiry, so repeated analyses of unchanged
// requirements never re-spend gateway calls.
//
// Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]requirement.CacheEntry
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]requirement.CacheEntry),
	}
}

// Get returns the entry for a fingerprint key.
func (c *Cache) Get(key string) (requirement.CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	return entry, ok
}

// Put stores a derivation result under its fingerprint key, replacing any
// previous entry.
func (c *Cache) Put(key, requirementID string, result requirement.DerivationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = requirement.CacheEntry{
		Key:           key,
		RequirementID: requirementID,
		Result:        result,
		CreatedAt:     time.Now(),
	}
}

// Invalidate removes all entries for a requirement ID and returns how many
// were removed. A requirement can hold multiple entries when its text has
// changed between analyses.
func (c *Cache) Invalidate(requirementID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.RequirementID == requirementID {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]requirement.CacheEntry)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
