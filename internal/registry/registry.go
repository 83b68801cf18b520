// Package registry implements the Extractor Registry + Factory: an
// explicitly owned Registry (built with New, one per Engine; there is no package-level
// instance) that lazily constructs Language Extractors, measures their
// resident memory cost, and evicts least-recently-used, non-priority extractors when the
// configured memory budget is exceeded.
package registry

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/lcid-dev/lcid/internal/extractor"
)

// Factory constructs the Extractor for a given name the first time it is needed.
type Factory func() extractor.Extractor

// Registry owns the set of live extractors and enforces the memory budget.
type Registry struct {
	mu sync.Mutex

	factories map[string]Factory
	live      map[string]*entry
	priority  map[string]bool // protected set: never evicted, configured via priority_languages

	maxBytes     int64
	currentBytes int64

	order []string // least-recently-used order, front = most recent
}

type entry struct {
	ext       extractor.Extractor
	bytes     int64
	touchedAt time.Time
}

// New creates a Registry with the given memory budget in bytes and priority languages
// that are exempt from eviction.
func New(maxBytes int64, priorityLanguages []string) *Registry {
	priority := make(map[string]bool, len(priorityLanguages))
	for _, p := range priorityLanguages {
		priority[p] = true
	}
	return &Registry{
		factories: make(map[string]Factory),
		live:      make(map[string]*entry),
		priority:  priority,
		maxBytes:  maxBytes,
	}
}

// Register associates a name (matching an extractor's extension claim, e.g. "go",
// "python") with a Factory. Call before the first Get for that name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Get returns the live extractor for name, constructing it on first use and measuring
// its resident cost via runtime.ReadMemStats deltas around construction.
func (r *Registry) Get(name string) (extractor.Extractor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.live[name]; ok {
		r.touch(name)
		e.touchedAt = time.Now()
		return e.ext, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("registry: no factory registered for %q", name)
	}

	before := readHeapBytes()
	ext := factory()
	after := readHeapBytes()

	size := after - before
	if size < 0 {
		size = 0
	}
	if sized, ok := ext.(extractor.EstimatedMemoryBytes); ok {
		if estimate := sized.EstimatedMemoryBytes(); estimate > size {
			size = estimate
		}
	}

	r.live[name] = &entry{ext: ext, bytes: size, touchedAt: time.Now()}
	r.order = append([]string{name}, r.order...)
	r.currentBytes += size

	r.evictIfOverBudget()
	return ext, nil
}

// touch moves name to the front of the LRU order.
func (r *Registry) touch(name string) {
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.order = append([]string{name}, r.order...)
}

// evictIfOverBudget drops least-recently-used, non-priority extractors until the
// registry is back under budget or nothing left is evictable.
func (r *Registry) evictIfOverBudget() {
	if r.maxBytes <= 0 {
		return
	}
	for r.currentBytes > r.maxBytes {
		idx := -1
		for i := len(r.order) - 1; i >= 0; i-- {
			if !r.priority[r.order[i]] {
				idx = i
				break
			}
		}
		if idx == -1 {
			return // everything remaining is protected
		}
		name := r.order[idx]
		r.order = append(r.order[:idx], r.order[idx+1:]...)
		r.currentBytes -= r.live[name].bytes
		delete(r.live, name)
	}
}

// Shutdown releases every live extractor and resets the registry to empty.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = make(map[string]*entry)
	r.order = nil
	r.currentBytes = 0
}

// ListLoaded returns the names of currently resident extractors, most-recently-used
// first, for status reporting.
func (r *Registry) ListLoaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// MemoryBytes reports the estimated resident cost of every currently live extractor,
// for status reporting.
func (r *Registry) MemoryBytes() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentBytes
}

func readHeapBytes() int64 {
	runtime.GC()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.HeapAlloc)
}
