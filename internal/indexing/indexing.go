// Package indexing implements the Incremental Indexer: it keeps the
// Index Store in sync with the filesystem for one repository by driving a per-file
// state machine off Watcher events.
package indexing

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/lcid-dev/lcid/internal/dispatch"
	lciderrors "github.com/lcid-dev/lcid/internal/errors"
	"github.com/lcid-dev/lcid/internal/logging"
	"github.com/lcid-dev/lcid/internal/pathresolve"
	"github.com/lcid-dev/lcid/internal/security"
	"github.com/lcid-dev/lcid/internal/store"
	"github.com/lcid-dev/lcid/internal/types"
	"github.com/lcid-dev/lcid/internal/watch"
)

var log = logging.New("indexing")

// largeFileThresholdKB gates when a file's header is validated before its full content
// is read; a few hundred KB is a reasonable default for catching binary/generated files
// early without adding overhead to typical source files.
const largeFileThresholdKB = 256

// semanticIndexer is the subset of *semantic.Indexer's methods this package depends on,
// kept as an interface so the Incremental Indexer doesn't import the semantic package
// when enable_semantic is off and so tests can substitute a fake embedder/store.
type semanticIndexer interface {
	IndexFile(ctx context.Context, relativePath string, content []byte) (embedded, skipped, failed int, err error)
	HandleMove(ctx context.Context, newRelativePath string, content []byte) error
}

// Indexer drives the per-file state machine for a single repository, consuming Watcher
// events and calling the Dispatcher/Index Store to realize each transition.
type Indexer struct {
	resolver   *pathresolve.Resolver
	dispatcher *dispatch.Dispatcher
	store      *store.Store
	validator  *security.FileValidator
	workers    int

	mu       sync.Mutex
	states   map[string]*fileState // keyed by repo-relative path
	locks    sync.Map               // path -> *sync.Mutex, enforces one in-flight extraction per path
	semMu    sync.RWMutex
	semantic semanticIndexer // nil unless enable_semantic is configured

	filterMu        sync.RWMutex
	include, exclude []string // doublestar patterns, mirroring the Watcher's own filter
}

// SetFilters attaches the include/exclude glob patterns a whole-tree reindex (IndexTree)
// should honor, matching config.Config's watch filters so a manual reindex walks the same
// set of files the Watcher would ever hand it.
func (ix *Indexer) SetFilters(include, exclude []string) {
	ix.filterMu.Lock()
	defer ix.filterMu.Unlock()
	ix.include = include
	ix.exclude = exclude
}

func (ix *Indexer) filters() (include, exclude []string) {
	ix.filterMu.RLock()
	defer ix.filterMu.RUnlock()
	return ix.include, ix.exclude
}

// SetSemanticIndexer wires a Semantic Indexer into the state machine: once set, every created/modified event also chunks and embeds the
// file's content, and every clean move repoints chunk payloads without re-embedding. A
// nil sem (the default) makes indexOne/handleMove a pure full-text/symbol path, matching
// enable_semantic=false.
func (ix *Indexer) SetSemanticIndexer(sem semanticIndexer) {
	ix.semMu.Lock()
	defer ix.semMu.Unlock()
	ix.semantic = sem
}

func (ix *Indexer) semanticIndexerOrNil() semanticIndexer {
	ix.semMu.RLock()
	defer ix.semMu.RUnlock()
	return ix.semantic
}

// New creates an Indexer for one repository. workers bounds the number of files
// extracted concurrently, up to a configured worker count.
func New(resolver *pathresolve.Resolver, d *dispatch.Dispatcher, st *store.Store, workers int) *Indexer {
	if workers < 1 {
		workers = 1
	}
	return &Indexer{
		resolver:   resolver,
		dispatcher: d,
		store:      st,
		validator:  security.NewFileValidator(largeFileThresholdKB),
		workers:    workers,
		states:     make(map[string]*fileState),
	}
}

// Run consumes events from the Watcher until events closes or ctx is cancelled,
// processing up to workers files concurrently. Events for the same path always run
// serially and in arrival order regardless of worker count (each waits for the previous
// event on its path to finish, then takes the per-path lock in process), so a rapid
// modify-then-delete pair can never apply out of order.
func (ix *Indexer) Run(ctx context.Context, events <-chan watch.Event) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	lastDone := make(map[string]chan struct{}) // path -> completion of its latest event

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case ev, ok := <-events:
			if !ok {
				return g.Wait()
			}
			prev := lastDone[ev.Path]
			done := make(chan struct{})
			lastDone[ev.Path] = done
			g.Go(func() error {
				defer close(done)
				if prev != nil {
					<-prev
				}
				ix.process(gctx, ev)
				return nil
			})
		}
	}
}

// IndexPath indexes a single file outside the Watcher's event stream, used by
// reindex(path) when path names a single file. It runs the same retry/state-machine
// path a created/modified event would, serialized against any concurrent event for the
// same file.
func (ix *Indexer) IndexPath(ctx context.Context, absPath string) error {
	lock := ix.lockFor(absPath)
	lock.Lock()
	defer lock.Unlock()
	ix.indexWithRetry(ctx, absPath)
	return nil
}

// IndexTree walks the repository root and indexes every file matching the configured
// include/exclude filters (SetFilters), used by the reindex("") to rebuild the
// whole index on demand. Files run up to workers at a time; it returns once every
// matched file has been attempted.
func (ix *Indexer) IndexTree(ctx context.Context) (int, error) {
	root := ix.resolver.Root()
	include, exclude := ix.filters()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	var count int
	var countMu sync.Mutex

	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries rather than aborting the whole walk
		}
		if d.IsDir() {
			return nil
		}
		rel, err := ix.resolver.Normalize(path)
		if err != nil {
			return nil
		}
		if !matchesFilters(rel, include, exclude) {
			return nil
		}
		countMu.Lock()
		count++
		countMu.Unlock()
		g.Go(func() error {
			ix.IndexPath(gctx, path)
			return nil
		})
		return nil
	})
	if walkErr != nil {
		return count, lciderrors.New(lciderrors.IO, "indexing.IndexTree", walkErr).WithPath(root)
	}
	if err := g.Wait(); err != nil {
		return count, err
	}
	return count, nil
}

func matchesFilters(rel string, include, exclude []string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// process applies a single Watcher event, serialized per path.
func (ix *Indexer) process(ctx context.Context, ev watch.Event) {
	lock := ix.lockFor(ev.Path)
	lock.Lock()
	defer lock.Unlock()

	switch ev.Kind {
	case watch.Created, watch.Modified:
		ix.indexWithRetry(ctx, ev.Path)
	case watch.Moved:
		ix.handleMove(ctx, ev.OldPath, ev.Path)
	case watch.Deleted:
		ix.handleDelete(ctx, ev.Path)
	}
}

func (ix *Indexer) lockFor(path string) *sync.Mutex {
	v, _ := ix.locks.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// indexWithRetry runs indexOne, retrying up to maxAttempts times with exponential
// backoff on a recoverable failure before parking the file in StateFailed.
func (ix *Indexer) indexWithRetry(ctx context.Context, absPath string) {
	rel, err := ix.resolver.Normalize(absPath)
	if err != nil {
		return // outside the repository root; not this indexer's concern
	}
	ix.setState(rel, StateScheduled)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffFor(attempt)):
			case <-ctx.Done():
				return
			}
		}
		lastErr = ix.indexOne(ctx, absPath, rel)
		if lastErr == nil {
			return
		}
		if kind, ok := lciderrors.KindOf(lastErr); ok && !lciderrors.New(kind, "", nil).Recoverable() {
			break // unrecoverable: don't waste retries
		}
	}
	log.Warnf("parking %s after repeated failures: %v", rel, lastErr)
	ix.park(rel)
}

func (ix *Indexer) indexOne(ctx context.Context, absPath, rel string) error {
	if err := ix.validator.ValidateLargeFile(absPath); err != nil {
		return lciderrors.New(lciderrors.Syntax, "indexing.indexOne", err).WithPath(rel)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			// the file vanished between the event firing and our read; treat as deleted.
			ix.handleDelete(ctx, absPath)
			return nil
		}
		return lciderrors.New(lciderrors.IO, "indexing.indexOne", err).WithPath(rel)
	}
	hash := pathresolve.HashBytes(content)

	repo := ix.resolver.RepositoryID()
	if existing, err := ix.store.GetFile(ctx, repo, rel); err == nil && existing.ContentHash == hash && !existing.Deleted {
		ix.setState(rel, StateStored) // content-hash unchanged: skip (created/modified rule)
		return nil
	}

	language := languageForExt(filepath.Ext(rel))
	result, err := ix.dispatcher.IndexFile(ctx, rel, content)
	if err != nil {
		return lciderrors.New(lciderrors.Syntax, "indexing.indexOne", err).WithPath(rel)
	}
	ix.setState(rel, StateParsed)

	fileID, err := ix.store.StoreFile(ctx, repo, rel, language, hash)
	if err != nil {
		return err
	}
	if err := ix.store.ReplaceSymbols(ctx, fileID, rehomeSymbols(fileID, result.Symbols)); err != nil {
		return err
	}
	if err := ix.store.ReplaceReferences(ctx, fileID, rehomeReferences(fileID, result.References)); err != nil {
		return err
	}
	if err := ix.store.IndexFileContent(ctx, rel, string(content)); err != nil {
		return err
	}

	if sem := ix.semanticIndexerOrNil(); sem != nil {
		// embedding failures are counted, not propagated: a stuck embedding provider must
		// never park an otherwise-healthy full-text/symbol index.
		embedded, skipped, failed, semErr := sem.IndexFile(ctx, rel, content)
		if semErr != nil {
			log.Warnf("semantic indexing failed for %s: %v", rel, semErr)
		} else if failed > 0 {
			log.Warnf("semantic indexing for %s: %d embedded, %d skipped, %d failed", rel, embedded, skipped, failed)
		}
	}

	ix.setState(rel, StateStored)
	return nil
}

// handleMove implements the moved(old, new) rule: when content is unchanged
// from the prior record of old, StoreFile's own rename detection (by matching
// content_hash within the repo) re-parents the existing row and its symbols onto new,
// so no separate soft-delete of old is needed — it is the same row. Otherwise this
// degrades to delete(old) + created(new).
func (ix *Indexer) handleMove(ctx context.Context, oldAbsPath, newAbsPath string) {
	newRel, err := ix.resolver.Normalize(newAbsPath)
	if err != nil {
		return
	}
	oldRel, err := ix.resolver.Normalize(oldAbsPath)
	if err != nil {
		ix.indexWithRetry(ctx, newAbsPath)
		return
	}

	content, err := os.ReadFile(newAbsPath)
	if err != nil {
		ix.handleDelete(ctx, oldAbsPath)
		return
	}
	hash := pathresolve.HashBytes(content)

	repo := ix.resolver.RepositoryID()
	prior, err := ix.store.GetFile(ctx, repo, oldRel)
	if err != nil || prior.ContentHash != hash {
		ix.handleDelete(ctx, oldAbsPath)
		ix.indexWithRetry(ctx, newAbsPath)
		return
	}

	language := languageForExt(filepath.Ext(newRel))
	if _, err := ix.store.StoreFile(ctx, repo, newRel, language, hash); err != nil {
		ix.setState(newRel, StateFailed)
		return
	}
	if sem := ix.semanticIndexerOrNil(); sem != nil {
		_ = sem.HandleMove(ctx, newRel, content)
	}
	ix.setState(oldRel, StateStored)
	ix.setState(newRel, StateStored)
}

// handleDelete implements the deleted rule: mark_file_deleted(file_of(old)).
func (ix *Indexer) handleDelete(ctx context.Context, absPath string) {
	rel, err := ix.resolver.Normalize(absPath)
	if err != nil {
		return
	}
	repo := ix.resolver.RepositoryID()
	f, err := ix.store.GetFile(ctx, repo, rel)
	if err != nil {
		return // never indexed; nothing to mark
	}
	if err := ix.store.MarkFileDeleted(ctx, f.ID); err != nil {
		ix.setState(rel, StateFailed)
		return
	}
	ix.setState(rel, StateDeleted)
}

func (ix *Indexer) setState(rel string, s State) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	fs, ok := ix.states[rel]
	if !ok {
		fs = &fileState{}
		ix.states[rel] = fs
	}
	fs.state = s
	if s == StateStored {
		fs.attempts = 0
	}
}

func (ix *Indexer) park(rel string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	fs, ok := ix.states[rel]
	if !ok {
		fs = &fileState{}
		ix.states[rel] = fs
	}
	fs.state = StateFailed
	fs.attempts++
	fs.parkedAt = time.Now()
}

// StateOf reports the current state machine position for a repo-relative path, mostly
// useful for status reporting.
func (ix *Indexer) StateOf(rel string) (State, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	fs, ok := ix.states[rel]
	if !ok {
		return StateUnseen, false
	}
	return fs.state, true
}

func rehomeSymbols(fileID types.FileID, symbols []types.Symbol) []types.Symbol {
	out := make([]types.Symbol, len(symbols))
	for i, s := range symbols {
		s.FileID = fileID
		out[i] = s
	}
	return out
}

func rehomeReferences(fileID types.FileID, refs []types.Reference) []types.Reference {
	out := make([]types.Reference, len(refs))
	for i, r := range refs {
		r.FileID = fileID
		out[i] = r
	}
	return out
}

var extLanguages = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
}

func languageForExt(ext string) string {
	if lang, ok := extLanguages[strings.ToLower(ext)]; ok {
		return lang
	}
	return "text"
}
