// Package watch implements the File Watcher: it emits debounced,
// move-correlated filesystem events to the Incremental Indexer.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/lcid-dev/lcid/internal/logging"
)

var log = logging.New("watch")

// EventKind mirrors the kinds of file events the Incremental Indexer consumes.
type EventKind int

const (
	Created EventKind = iota
	Modified
	Moved
	Deleted
)

// Event is a single, already-debounced filesystem event.
type Event struct {
	Kind     EventKind
	Path     string
	OldPath  string // populated only when Kind == Moved
	Observed time.Time
}

// Watcher recursively watches a root directory, debounces events per path, and
// correlates rename+create pairs within the debounce window into a single Moved event.
type Watcher struct {
	fsw     *fsnotify.Watcher
	root    string
	include []string
	exclude []string
	debounce time.Duration

	events chan Event

	mu         sync.Mutex
	pending    map[string]*pendingEvent
	timers     map[string]*time.Timer
	removeTime map[string]time.Time // recently removed paths, for rename correlation

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type pendingEvent struct {
	kind EventKind
}

const moveCorrelationWindow = 50 * time.Millisecond

// New creates a Watcher rooted at root. debounce is the per-path coalescing interval
// (default 250ms); include/exclude are doublestar glob patterns, with
// exclude taking precedence over include.
func New(root string, include, exclude []string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		fsw:        fsw,
		root:       root,
		include:    include,
		exclude:    exclude,
		debounce:   debounce,
		events:     make(chan Event, 1024), // bounded queue, backpressure over unbounded growth
		pending:    make(map[string]*pendingEvent),
		timers:     make(map[string]*time.Timer),
		removeTime: make(map[string]time.Time),
		ctx:        ctx,
		cancel:     cancel,
	}
	return w, nil
}

// Events returns the channel of debounced, move-correlated events.
func (w *Watcher) Events() <-chan Event { return w.events }

// Start begins watching w.root recursively and launches the event-processing goroutine.
func (w *Watcher) Start() error {
	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop cancels watching, closes the underlying fsnotify watcher, and waits for the
// processing goroutine to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatchesRecursive(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if w.shouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		_ = w.fsw.Add(path) // best-effort; a failed watch on one subtree shouldn't abort the walk
		return nil
	})
}

func (w *Watcher) shouldIgnoreDir(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldProcess(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range w.exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return false // exclusion takes precedence
		}
	}
	if len(w.include) == 0 {
		return true
	}
	for _, pattern := range w.include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("fsnotify error on %s: %v", w.root, err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	info, statErr := os.Stat(ev.Name)
	if statErr == nil && info.IsDir() {
		if ev.Op&fsnotify.Create != 0 && !w.shouldIgnoreDir(ev.Name) {
			_ = w.fsw.Add(ev.Name)
		}
		return
	}
	if !w.shouldProcess(ev.Name) {
		return
	}

	switch {
	case ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0:
		w.recordRemoval(ev.Name)
		w.schedule(ev.Name, Deleted)
	case ev.Op&fsnotify.Create != 0:
		if old, ok := w.correlateMove(ev.Name); ok {
			w.scheduleMove(old, ev.Name)
			return
		}
		w.schedule(ev.Name, Created)
	case ev.Op&fsnotify.Write != 0:
		w.schedule(ev.Name, Modified)
	}
}

// recordRemoval notes a removed path so a Create within moveCorrelationWindow can be
// recognized as the other half of a rename. Moved events are only produced when the
// underlying filesystem notification can correlate a create/delete pair this way.
func (w *Watcher) recordRemoval(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeTime[path] = time.Now()
}

func (w *Watcher) correlateMove(newPath string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	for old, at := range w.removeTime {
		if now.Sub(at) <= moveCorrelationWindow {
			delete(w.removeTime, old)
			// cancel the pending Deleted event for `old`, it is superseded by the move
			if t, ok := w.timers[old]; ok {
				t.Stop()
				delete(w.timers, old)
				delete(w.pending, old)
			}
			return old, true
		}
	}
	return "", false
}

// schedule debounces an event for path, coalescing consecutive writes into the latest
// kind observed within the debounce window, except that a Modified following a pending
// Created stays Created. A later Deleted always wins over an earlier Created/Modified
// for the same path.
func (w *Watcher) schedule(path string, kind EventKind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if prev, ok := w.pending[path]; ok && prev.kind == Created && kind == Modified {
		kind = Created
	}
	w.pending[path] = &pendingEvent{kind: kind}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.flush(path) })
}

func (w *Watcher) scheduleMove(oldPath, newPath string) {
	w.mu.Lock()
	w.pending[newPath] = &pendingEvent{kind: Moved}
	moveOld := oldPath
	if t, ok := w.timers[newPath]; ok {
		t.Stop()
	}
	w.timers[newPath] = time.AfterFunc(w.debounce, func() { w.flushMove(newPath, moveOld) })
	w.mu.Unlock()
}

func (w *Watcher) flush(path string) {
	w.mu.Lock()
	pe, ok := w.pending[path]
	delete(w.pending, path)
	delete(w.timers, path)
	w.mu.Unlock()
	if !ok {
		return
	}
	w.emit(Event{Kind: pe.kind, Path: path, Observed: time.Now()})
}

func (w *Watcher) flushMove(newPath, oldPath string) {
	w.mu.Lock()
	delete(w.pending, newPath)
	delete(w.timers, newPath)
	w.mu.Unlock()
	w.emit(Event{Kind: Moved, Path: newPath, OldPath: oldPath, Observed: time.Now()})
}

// emit delivers ev, dropping it if the queue is full rather than blocking indefinitely.
func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	case <-w.ctx.Done():
	default:
		select {
		case w.events <- ev:
		case <-time.After(10 * time.Millisecond):
		}
	}
}
