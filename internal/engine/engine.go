// Package engine composes the Path Resolver, Index Store, Extractor Registry,
// Dispatcher, Incremental Indexer, File Watcher, Index Discovery and (optionally)
// Semantic Indexer into the single concrete implementation of
// dispatch.Engine: the in-process command surface cmd/lcid's
// subcommands call through.
package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/lcid-dev/lcid/internal/chunk"
	"github.com/lcid-dev/lcid/internal/config"
	"github.com/lcid-dev/lcid/internal/discovery"
	"github.com/lcid-dev/lcid/internal/dispatch"
	"github.com/lcid-dev/lcid/internal/embedding"
	lciderrors "github.com/lcid-dev/lcid/internal/errors"
	"github.com/lcid-dev/lcid/internal/extractor"
	"github.com/lcid-dev/lcid/internal/indexing"
	"github.com/lcid-dev/lcid/internal/logging"
	"github.com/lcid-dev/lcid/internal/pathresolve"
	"github.com/lcid-dev/lcid/internal/registry"
	"github.com/lcid-dev/lcid/internal/semantic"
	"github.com/lcid-dev/lcid/internal/store"
	"github.com/lcid-dev/lcid/internal/types"
	"github.com/lcid-dev/lcid/internal/watch"
)

var log = logging.New("engine")

// chunkTargetTokens/chunkOverlapTokens size the Semantic Indexer's chunker when
// enable_semantic is on; leaves the exact window to the implementation.
const (
	chunkTargetTokens        = 400
	chunkOverlapTokens       = 50
	semanticSearchMultiplier = 3 // over-fetch semantic hits before merging with text results
)

// languageCatalogue is the static set of languages this build knows how to extract,
// used both to populate the Registry and to answer ListExtractors. Order is also the
// Dispatcher's extractor priority order.
var languageCatalogue = []dispatch.ExtractorInfo{
	{Language: "go", Suffixes: []string{".go"}, Enhanced: true},
	{Language: "python", Suffixes: []string{".py"}, Enhanced: true},
	{Language: "javascript", Suffixes: []string{".js", ".jsx", ".mjs"}, Enhanced: false},
	{Language: "typescript", Suffixes: []string{".ts", ".tsx"}, Enhanced: false},
	{Language: "java", Suffixes: []string{".java"}, Enhanced: false},
}

func registerExtractors(reg *registry.Registry) {
	reg.Register("go", func() extractor.Extractor { return extractor.NewEnhancedGo() })
	reg.Register("python", func() extractor.Extractor { return extractor.NewEnhancedPython() })
	reg.Register("javascript", func() extractor.Extractor { return extractor.NewJavaScriptExtractor() })
	reg.Register("typescript", func() extractor.Extractor { return extractor.NewTypeScriptExtractor() })
	reg.Register("java", func() extractor.Extractor { return extractor.NewJavaExtractor() })
}

func priorityNames() []string {
	names := make([]string, len(languageCatalogue))
	for i, l := range languageCatalogue {
		names[i] = l.Language
	}
	return names
}

// Engine is the concrete, single-repository implementation of dispatch.Engine. It owns
// every live component for one repository: opening it starts the Watcher and the
// Incremental Indexer's consume loop, running until its context is cancelled.
type Engine struct {
	cfg        *config.Config
	resolver   *pathresolve.Resolver
	store      *store.Store
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	indexer    *indexing.Indexer
	watcher    *watch.Watcher
	discovery  *discovery.Discovery
	semantic   *semantic.Indexer // nil unless cfg.EnableSemantic

	cancel context.CancelFunc
}

var _ dispatch.Engine = (*Engine)(nil)

// Open wires up every component for the repository rooted at cfg.ProjectRoot, locating
// or auto-creating its index database and starting the Watcher ->
// Incremental Indexer pipeline in the background. Callers must call Close when done.
func Open(ctx context.Context, cfg *config.Config) (*Engine, error) {
	resolver, err := pathresolve.New(ctx, cfg.ProjectRoot)
	if err != nil {
		return nil, err
	}

	disc := discovery.New(cfg)
	dbPath, err := disc.Locate(cfg.ProjectRoot, resolver.RepositoryID())
	if err != nil {
		info := resolver.GitInfo()
		dbPath, err = disc.AutoCreate(cfg.ProjectRoot, resolver.RepositoryID(), info.Branch, info.CommitSHA)
		if err != nil {
			return nil, err
		}
		log.Infof("auto-created index for %s at %s", resolver.RepositoryID(), dbPath)
	}

	st, err := store.Open(ctx, resolver.RepositoryID(), dbPath)
	if err != nil {
		return nil, err
	}

	reg := registry.New(cfg.MaxMemoryBytes, cfg.PriorityLanguages)
	registerExtractors(reg)

	d := dispatch.New(reg, st, priorityNames())

	ix := indexing.New(resolver, d, st, cfg.WorkerPoolSize)
	ix.SetFilters(cfg.Include, cfg.Exclude)

	w, err := watch.New(resolver.Root(), cfg.Include, cfg.Exclude, time.Duration(cfg.WatcherDebounceMs)*time.Millisecond)
	if err != nil {
		st.Close()
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		resolver:   resolver,
		store:      st,
		registry:   reg,
		dispatcher: d,
		indexer:    ix,
		watcher:    w,
		discovery:  disc,
	}

	if cfg.EnableSemantic {
		if err := e.wireSemantic(); err != nil {
			// a misconfigured embedding provider degrades to full-text/symbol indexing
			// only, rather than refusing to start the whole engine.
			log.Warnf("semantic indexing disabled: %v", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	if err := w.Start(); err != nil {
		cancel()
		st.Close()
		return nil, err
	}
	go func() {
		if err := ix.Run(runCtx, w.Events()); err != nil {
			log.Warnf("indexer run loop exited: %v", err)
		}
	}()

	return e, nil
}

// wireSemantic builds the chunker/embedder/vector-store pipeline and the query
// expansion signal, attaching both to the Indexer and Dispatcher respectively.
func (e *Engine) wireSemantic() error {
	apiKey := os.Getenv("VOYAGE_API_KEY")
	embedder := embedding.NewVoyageClient(apiKey, e.cfg.EmbeddingModel)

	collection := string(e.resolver.RepositoryID())
	vs, err := semantic.NewVectorStore(e.cfg.VectorStoreEndpoint, collection)
	if err != nil {
		return err
	}

	chunker := chunk.NewChunker(chunkTargetTokens, chunkOverlapTokens)
	sem := semantic.NewIndexer(chunker, embedder, vs)
	e.indexer.SetSemanticIndexer(sem)
	e.semantic = sem

	stemmer := semantic.NewStemmer(true, "porter2", 3, nil)
	fuzzy := semantic.NewFuzzyMatcher(true, 0.80, "jaro-winkler")
	e.dispatcher.SetQueryExpander(semantic.NewQueryExpander(stemmer, fuzzy, 256))
	return nil
}

// Close stops the Watcher and Indexer run loop and releases the Index Store and
// Extractor Registry.
func (e *Engine) Close() error {
	if e.cancel != nil {
		e.cancel()
	}
	_ = e.watcher.Stop()
	e.registry.Shutdown()
	return e.store.Close()
}

// SymbolLookup implements dispatch.Engine.
func (e *Engine) SymbolLookup(ctx context.Context, name string) (types.SymbolRecord, bool, error) {
	sym, ok := e.dispatcher.Lookup(ctx, name)
	if !ok {
		return types.SymbolRecord{}, false, nil
	}
	f, err := e.store.GetFileByID(ctx, sym.FileID)
	if err != nil {
		return types.SymbolRecord{}, false, err
	}
	return types.SymbolRecord{
		Name:         sym.Name,
		Kind:         sym.Kind,
		AbsoluteFile: e.resolver.Resolve(f.RelativePath),
		RelativeFile: f.RelativePath,
		Start:        sym.Start,
		End:          sym.End,
		Signature:    sym.Signature,
		Docstring:    sym.Docstring,
		ParentName:   sym.ParentName,
	}, true, nil
}

// SearchCode implements dispatch.Engine. When useSemantic is set and semantic indexing
// is configured, semantic matches are merged in behind text matches the same way
// stemmed matches are in Dispatcher.Search: direct hits rank first, vector hits widen
// recall rather than replacing it.
func (e *Engine) SearchCode(ctx context.Context, query string, useSemantic bool, limit int) ([]types.SearchResult, error) {
	results, err := e.dispatcher.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if !useSemantic || e.semantic == nil {
		return results, nil
	}

	matches, err := e.semantic.SearchSemantic(ctx, query, limit*semanticSearchMultiplier)
	if err != nil {
		log.Warnf("semantic search degraded: %v", err)
		return results, nil
	}
	return mergeSemanticMatches(results, matches, limit), nil
}

func mergeSemanticMatches(results []types.SearchResult, matches []semantic.SemanticMatch, limit int) []types.SearchResult {
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		seen[r.RelativeFile] = true
	}
	for _, m := range matches {
		if seen[m.RelativePath] {
			continue
		}
		results = append(results, types.SearchResult{
			RelativeFile: m.RelativePath,
			Line:         m.StartLine,
			Snippet:      m.Content,
			Score:        float64(m.Score) - 1000, // ranked behind every text-matched result
			HasScore:     true,
		})
		seen[m.RelativePath] = true
	}
	if len(results) > limit && limit > 0 {
		results = results[:limit]
	}
	return results
}

// GetStatus implements dispatch.Engine.
func (e *Engine) GetStatus(ctx context.Context) (dispatch.Status, error) {
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return dispatch.Status{}, err
	}
	return dispatch.Status{
		Files:         stats.Files,
		Symbols:       stats.Symbols,
		MemoryBytes:   e.registry.MemoryBytes(),
		LastIndexedAt: stats.LastIndexedAt,
	}, nil
}

// ListExtractors implements dispatch.Engine. It reports the full static catalogue this
// build knows about, not just the subset currently resident in the Registry: the
// available extractors, not a live-memory dump.
func (e *Engine) ListExtractors(ctx context.Context) []dispatch.ExtractorInfo {
	out := make([]dispatch.ExtractorInfo, len(languageCatalogue))
	copy(out, languageCatalogue)
	return out
}

// Reindex implements dispatch.Engine. An empty path walks and re-indexes the whole
// repository tree; a non-empty path re-indexes just that file.
func (e *Engine) Reindex(ctx context.Context, path string) (int, error) {
	if path == "" {
		return e.indexer.IndexTree(ctx)
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = e.resolver.Resolve(path)
	}
	if _, err := os.Stat(abs); err != nil {
		return 0, lciderrors.New(lciderrors.IO, "engine.Reindex", err).WithPath(path)
	}
	if err := e.indexer.IndexPath(ctx, abs); err != nil {
		return 0, err
	}
	return 1, nil
}
