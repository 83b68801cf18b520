package semantic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache(2)
	nq := &normalizedQuery{Original: "run"}
	c.Set("run", nq)

	got, ok := c.Get("run")
	require.True(t, ok)
	require.Same(t, nq, got)
}

func TestLRUCacheMissReturnsFalse(t *testing.T) {
	c := NewLRUCache(2)
	_, ok := c.Get("missing")
	require.False(t, ok)
}

func TestLRUCacheEvictsOldestOverCapacity(t *testing.T) {
	c := NewLRUCache(2)
	c.Set("a", &normalizedQuery{Original: "a"})
	c.Set("b", &normalizedQuery{Original: "b"})
	c.Set("c", &normalizedQuery{Original: "c"})

	_, ok := c.Get("a")
	require.False(t, ok, "oldest entry should have been evicted")
	require.Equal(t, 2, c.Size())
}

func TestLRUCacheGetRefreshesRecency(t *testing.T) {
	c := NewLRUCache(2)
	c.Set("a", &normalizedQuery{Original: "a"})
	c.Set("b", &normalizedQuery{Original: "b"})

	c.Get("a") // touch a, making b the least recently used
	c.Set("c", &normalizedQuery{Original: "c"})

	_, ok := c.Get("b")
	require.False(t, ok)
	_, ok = c.Get("a")
	require.True(t, ok)
}

func TestLRUCacheClear(t *testing.T) {
	c := NewLRUCache(2)
	c.Set("a", &normalizedQuery{Original: "a"})
	c.Clear()
	require.Equal(t, 0, c.Size())
	_, ok := c.Get("a")
	require.False(t, ok)
}
