// Package dispatch implements the Dispatcher: it routes lookup/search/
// index_file requests to Language Extractors, aggregates and ranks results, and falls
// back to the Index Store's bypass full-text path when no extractor is usable.
package dispatch

import (
	"context"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lcid-dev/lcid/internal/extractor"
	"github.com/lcid-dev/lcid/internal/logging"
	"github.com/lcid-dev/lcid/internal/registry"
	"github.com/lcid-dev/lcid/internal/semantic"
	"github.com/lcid-dev/lcid/internal/store"
	"github.com/lcid-dev/lcid/internal/types"
)

var log = logging.New("dispatch")

const (
	extractorTimeout  = 5 * time.Second
	degradedCooldown  = 30 * time.Second
	maxConcurrency    = 8
	bypassLatencyHint = 100 * time.Millisecond // not enforced, documents the bypass latency target
)

// Dispatcher routes one repository's requests, trying extractor names in declared
// priority order.
type Dispatcher struct {
	reg        *registry.Registry
	store      *store.Store
	priority   []string // extractor names in priority order
	bypassOnly bool      // forces bypass mode regardless of registry state

	mu       sync.Mutex
	degraded map[string]time.Time // extractor name -> cooldown expiry

	expander *semantic.QueryExpander // optional stem/fuzzy expansion signal
}

// New creates a Dispatcher over reg (the Extractor Registry) and st (the Index Store)
// for one repository, trying extractors in priority order.
func New(reg *registry.Registry, st *store.Store, priority []string) *Dispatcher {
	return &Dispatcher{
		reg:      reg,
		store:    st,
		priority: priority,
		degraded: make(map[string]time.Time),
	}
}

// SetQueryExpander attaches the stem/fuzzy expansion signal. A nil expander (the
// default) leaves Search running on literal full-text/trigram matching only.
func (d *Dispatcher) SetQueryExpander(qe *semantic.QueryExpander) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expander = qe
}

// SetBypass forces every search through the Index Store's bypass full-text path,
// regardless of extractor availability.
func (d *Dispatcher) SetBypass(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bypassOnly = on
}

// Lookup returns the first symbol definition named name.
// Extractor priority already shaped which definitions exist in the store at index time
// (IndexFile tries extractors in priority order), so lookup itself is a direct store
// read rather than a second extractor fan-out.
func (d *Dispatcher) Lookup(ctx context.Context, name string) (types.Symbol, bool) {
	defs, err := d.store.GetDefinition(ctx, name, "")
	if err != nil || len(defs) == 0 {
		return types.Symbol{}, false
	}
	return defs[0], true
}

// Search runs a bounded-concurrency fan-out search across symbol and code full-text
// indexes, aggregating and ranking the results. When bypass is forced, or every
// extractor in the priority list is in its degraded cooldown (after failing to load
// from the registry or failing to extract), it queries the Index Store directly.
func (d *Dispatcher) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	if d.shouldBypass() {
		return d.bypassSearch(ctx, query, limit)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	var mu sync.Mutex
	var fts, trigram, stemmed, code []types.SearchResult

	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, extractorTimeout)
		defer cancel()
		res, err := d.store.SearchSymbolsFTS(cctx, query, limit)
		if err != nil {
			log.Warnf("FTS search degraded: %v", err)
			return nil // recoverable: degrade, don't fail the whole search
		}
		mu.Lock()
		fts = res
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, extractorTimeout)
		defer cancel()
		res, err := d.store.SearchSymbolsTrigram(cctx, query, limit)
		if err != nil {
			log.Warnf("trigram search degraded: %v", err)
			return nil
		}
		mu.Lock()
		trigram = res
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, extractorTimeout)
		defer cancel()
		res, err := d.store.SearchCodeFTS(cctx, query, limit)
		if err != nil {
			log.Warnf("code search degraded: %v", err)
			return nil
		}
		mu.Lock()
		code = res
		mu.Unlock()
		return nil
	})
	if expander := d.queryExpander(); expander != nil {
		if stemmedQuery := expander.StemmedPrefixQuery(query); stemmedQuery != query {
			g.Go(func() error {
				cctx, cancel := context.WithTimeout(gctx, extractorTimeout)
				defer cancel()
				res, err := d.store.SearchSymbolsFTS(cctx, stemmedQuery, limit)
				if err != nil {
					return nil
				}
				mu.Lock()
				stemmed = res
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait() // errors are never returned here; extractor/store failures degrade, not fail

	return aggregate(query, fts, trigram, stemmed, code, limit), nil
}

func (d *Dispatcher) queryExpander() *semantic.QueryExpander {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.expander
}

// IndexFile selects the first extractor supporting path's extension, or falls back to
// plain-text full-text-only indexing when none does.
func (d *Dispatcher) IndexFile(ctx context.Context, path string, content []byte) (extractor.Result, error) {
	ext := strings.ToLower(filepath.Ext(path))

	for _, name := range d.priority {
		if d.isDegraded(name) {
			continue
		}
		e, err := d.reg.Get(name)
		if err != nil {
			d.markDegraded(name) // the registry cannot load it: count toward automatic bypass
			continue
		}
		if !e.Supports(ext) {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, extractorTimeout)
		result, err := e.Extract(cctx, path, content)
		cancel()
		if err != nil {
			d.markDegraded(name)
			continue
		}
		return result, nil
	}
	// No extractor claims this path: index as plain text for full-text search only.
	return extractor.Result{}, nil
}

func (d *Dispatcher) shouldBypass() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bypassOnly {
		return true
	}
	for _, name := range d.priority {
		if !d.isDegradedLocked(name) {
			return false
		}
	}
	return true // every extractor is degraded: bypass automatically
}

func (d *Dispatcher) bypassSearch(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	return d.store.SearchCodeFTS(ctx, query, limit)
}

func (d *Dispatcher) isDegraded(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isDegradedLocked(name)
}

func (d *Dispatcher) isDegradedLocked(name string) bool {
	until, ok := d.degraded[name]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(d.degraded, name)
		return false
	}
	return true
}

func (d *Dispatcher) markDegraded(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.degraded[name] = time.Now().Add(degradedCooldown)
}

// rankBase anchors each match tier to its own band within [0,1], highest first: an
// exact symbol-name match (3), a prefix match (2), any other symbol full-text hit (1),
// a trigram or raw file-content hit (0; these share a tier since neither claims to
// match the whole query term), then a stem-expanded hit (-1). The stemmed query runs
// alongside the literal ones whenever it differs from the query; its hits survive only
// at (relative_path, line) keys that no literal hit claimed.
var rankBase = map[int]float64{
	3:  0.85,
	2:  0.65,
	1:  0.45,
	0:  0.25,
	-1: 0.05,
}

// normalizeScore folds a match's raw engine score into a bounded bonus within its tier's
// band, so the published Score always lands in [0,1] regardless of the underlying
// engine's native scale. bm25 (used by the symbol fts, stemmed and file-content hits)
// is unbounded and more negative denotes a better match; trigram overlap ratios are
// already a non-negative [0,1] fraction where higher is better.
func normalizeScore(rank int, raw float64) float64 {
	base, ok := rankBase[rank]
	if !ok {
		base = rankBase[-1]
	}
	var frac float64
	if rank == 0 && raw >= 0 {
		frac = raw
	} else {
		frac = math.Abs(raw) / (1 + math.Abs(raw))
	}
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	return base + frac*0.15
}

type scoredResult struct {
	result types.SearchResult
	rank   int
}

// aggregate merges symbol FTS, trigram, file-content FTS and stem-expanded hits: dedup by
// (relative_path, line), rank exact/prefix/generic-FTS/stem, truncate at limit. stemmed
// carries the lowest rank since it only matches when the literal query found nothing
// under that key.
func aggregate(query string, fts, trigram, stemmed, code []types.SearchResult, limit int) []types.SearchResult {
	seen := make(map[string]scoredResult)
	order := make([]string, 0, len(fts)+len(trigram)+len(code))

	add := func(r types.SearchResult, rank int) {
		key := r.RelativeFile + "#" + strconv.Itoa(r.Line)
		r.Score = normalizeScore(rank, r.Score)
		existing, ok := seen[key]
		if !ok || rank > existing.rank || (rank == existing.rank && r.Score > existing.result.Score) {
			seen[key] = scoredResult{result: r, rank: rank}
			if !ok {
				order = append(order, key)
			}
		}
	}

	lowerQuery := strings.ToLower(query)
	for _, r := range fts {
		rank := 1
		if strings.EqualFold(r.Snippet, query) {
			rank = 3
		} else if strings.HasPrefix(strings.ToLower(r.Snippet), lowerQuery) {
			rank = 2
		}
		add(r, rank)
	}
	for _, r := range trigram {
		add(r, 0)
	}
	for _, r := range code {
		add(r, 0)
	}
	for _, r := range stemmed {
		add(r, -1)
	}

	out := make([]types.SearchResult, 0, len(order))
	for _, key := range order {
		out = append(out, seen[key].result)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) > limit && limit > 0 {
		out = out[:limit]
	}
	return out
}
