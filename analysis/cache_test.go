package analysis

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/reqderive/requirement"
)

func resultWith(msg string) requirement.DerivationResult {
	return requirement.DerivationResult{
		Capabilities: []requirement.DerivedCapability{{ID: "c1", Text: msg}},
		Successful:   true,
	}
}

func TestCachePutGet(t *testing.T) {
	cache := NewCache()

	_, ok := cache.Get("k1")
	assert.False(t, ok)

	cache.Put("k1", "REQ-1", resultWith("first"))

	entry, ok := cache.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "k1", entry.Key)
	assert.Equal(t, "REQ-1", entry.RequirementID)
	assert.Equal(t, "first", entry.Result.Capabilities[0].Text)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Equal(t, 1, cache.Len())
}

func TestCachePutReplaces(t *testing.T) {
	cache := NewCache()
	cache.Put("k1", "REQ-1", resultWith("first"))
	cache.Put("k1", "REQ-1", resultWith("second"))

	entry, ok := cache.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "second", entry.Result.Capabilities[0].Text)
	assert.Equal(t, 1, cache.Len())
}

func TestCacheInvalidateByRequirementID(t *testing.T) {
	cache := NewCache()
	// Two fingerprints for the same requirement (its text changed between
	// analyses) plus one for another requirement.
	cache.Put("k1", "REQ-1", resultWith("old"))
	cache.Put("k2", "REQ-1", resultWith("new"))
	cache.Put("k3", "REQ-2", resultWith("other"))

	removed := cache.Invalidate("REQ-1")

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get("k3")
	assert.True(t, ok)

	assert.Zero(t, cache.Invalidate("REQ-404"))
}

func TestCacheClear(t *testing.T) {
	cache := NewCache()
	cache.Put("k1", "REQ-1", resultWith("a"))
	cache.Put("k2", "REQ-2", resultWith("b"))

	cache.Clear()

	assert.Zero(t, cache.Len())
	_, ok := cache.Get("k1")
	assert.False(t, ok)
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			reqID := fmt.Sprintf("REQ-%d", i%5)
			cache.Put(key, reqID, resultWith(key))
			cache.Get(key)
			if i%7 == 0 {
				cache.Invalidate(reqID)
			}
			cache.Len()
		}(i)
	}
	wg.Wait()
}
