package extractor

import (
	"container/list"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// treeCache is a bounded LRU of parsed trees keyed by content hash, one per extractor
// instance, capped around 100 entries.
type treeCache struct {
	maxSize int
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List
}

type treeCacheEntry struct {
	hash string
	tree *tree_sitter.Tree
}

func newTreeCache(maxSize int) *treeCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &treeCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (c *treeCache) get(hash string) (*tree_sitter.Tree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[hash]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*treeCacheEntry).tree, true
	}
	return nil, false
}

func (c *treeCache) put(hash string, tree *tree_sitter.Tree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[hash]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*treeCacheEntry).tree = tree
		return
	}
	entry := &treeCacheEntry{hash: hash, tree: tree}
	elem := c.order.PushFront(entry)
	c.items[hash] = elem

	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			evicted := oldest.Value.(*treeCacheEntry)
			delete(c.items, evicted.hash)
			evicted.tree.Close()
		}
	}
}
