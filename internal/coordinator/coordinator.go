// Package coordinator implements the Multi-Repo Coordinator: it runs a
// single query across several registered repositories' Dispatchers and merges the
// results, attributing each hit back to the repositories that produced it.
package coordinator

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lcid-dev/lcid/internal/dispatch"
	lciderrors "github.com/lcid-dev/lcid/internal/errors"
	"github.com/lcid-dev/lcid/internal/logging"
	"github.com/lcid-dev/lcid/internal/types"
)

var log = logging.New("coordinator")

const (
	symbolSearchTimeout = 30 * time.Second
	codeSearchTimeout   = 60 * time.Second
	maxConcurrentRepos  = 4
	perRepoResultLimit  = 200 // coordinator merges then the caller truncates at its own limit
)

// handle pairs a registered Repository with the Dispatcher that serves it.
type handle struct {
	repo       types.Repository
	dispatcher *dispatch.Dispatcher
}

// Scope restricts a cross-repository search: an allow-list of
// repositories, a language filter, a file-extension filter, and a cap on how many
// repositories participate.
type Scope struct {
	Repos     []types.RepositoryID
	Languages []string
	FileTypes []string // file extensions, e.g. ".go"
	MaxRepos  int
}

// Coordinator holds the set of registered repositories and fans out searches across
// them.
type Coordinator struct {
	mu    sync.RWMutex
	repos map[types.RepositoryID]*handle
}

// New creates an empty Coordinator.
func New() *Coordinator {
	return &Coordinator{repos: make(map[types.RepositoryID]*handle)}
}

// Register adds or replaces a repository's handle. A repository must be registered
// before any cross-repo search will include it.
func (c *Coordinator) Register(repo types.Repository, d *dispatch.Dispatcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repos[repo.ID] = &handle{repo: repo, dispatcher: d}
}

// Unregister removes a repository; subsequent searches no longer consider it.
func (c *Coordinator) Unregister(id types.RepositoryID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.repos, id)
}

// List returns every registered repository. activeOnly has no additional effect today:
// this repo models registration as the sole activity signal (there is no separate
// enable/disable op), so every registered repository is already active.
func (c *Coordinator) List(activeOnly bool) []types.Repository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Repository, 0, len(c.repos))
	for _, h := range c.repos {
		out = append(out, h.repo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetPriority updates a registered repository's priority, used as the secondary sort key
// in cross-repo result ordering.
func (c *Coordinator) SetPriority(id types.RepositoryID, priority int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.repos[id]
	if !ok {
		return lciderrors.New(lciderrors.NotFound, "coordinator.SetPriority", nil).WithPath(string(id))
	}
	h.repo.Priority = priority
	return nil
}

// SearchSymbol fans query out across every in-scope repository, each bounded by its own
// 30s timeout. It runs the same combined Dispatcher.Search as SearchCode; only the
// per-repository timeout differs.
func (c *Coordinator) SearchSymbol(ctx context.Context, query string, scope Scope) ([]types.SearchResult, error) {
	return c.fanOut(ctx, query, scope, symbolSearchTimeout)
}

// SearchCode fans a code search out across every in-scope repository, each bounded by
// its own 60s timeout.
func (c *Coordinator) SearchCode(ctx context.Context, query string, scope Scope) ([]types.SearchResult, error) {
	return c.fanOut(ctx, query, scope, codeSearchTimeout)
}

func (c *Coordinator) fanOut(ctx context.Context, query string, scope Scope, perRepoTimeout time.Duration) ([]types.SearchResult, error) {
	targets := c.scopedHandles(scope)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRepos)

	var mu sync.Mutex
	var all []types.SearchResult
	resultCount := make(map[types.RepositoryID]int)

	for _, h := range targets {
		h := h
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, perRepoTimeout)
			defer cancel()

			res, err := h.dispatcher.Search(cctx, query, perRepoResultLimit)
			if err != nil {
				log.Warnf("search against repository %s failed: %v", h.repo.ID, err)
				return nil // a failing/timed-out repo contributes nothing, never fails the whole request
			}
			res = filterByFileType(res, scope)

			mu.Lock()
			defer mu.Unlock()
			for i := range res {
				res[i].RepositoryID = h.repo.ID
			}
			all = append(all, res...)
			resultCount[h.repo.ID] += len(res)
			return nil
		})
	}
	_ = g.Wait() // per-repo errors are swallowed above; fanOut itself never fails

	return c.mergeAndRank(all, resultCount), nil
}

// scopedHandles resolves scope to the concrete set of repositories to search, honoring
// the allow-list and MaxRepos cap (highest-priority repositories kept first when the
// scope trims the set).
func (c *Coordinator) scopedHandles(scope Scope) []*handle {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*handle
	if len(scope.Repos) > 0 {
		for _, id := range scope.Repos {
			if h, ok := c.repos[id]; ok {
				out = append(out, h)
			}
		}
	} else {
		for _, h := range c.repos {
			out = append(out, h)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].repo.Priority > out[j].repo.Priority })
	if scope.MaxRepos > 0 && len(out) > scope.MaxRepos {
		out = out[:scope.MaxRepos]
	}
	return out
}

// filterByFileType drops results whose file extension doesn't match scope's language or
// file-type filters; an empty filter matches everything.
func filterByFileType(results []types.SearchResult, scope Scope) []types.SearchResult {
	if len(scope.Languages) == 0 && len(scope.FileTypes) == 0 {
		return results
	}
	allowed := make(map[string]bool)
	for _, ext := range scope.FileTypes {
		allowed[strings.ToLower(ext)] = true
	}
	for _, lang := range scope.Languages {
		for ext, l := range extToLanguage {
			if strings.EqualFold(l, lang) {
				allowed[ext] = true
			}
		}
	}

	out := results[:0]
	for _, r := range results {
		if allowed[strings.ToLower(filepath.Ext(r.RelativeFile))] {
			out = append(out, r)
		}
	}
	return out
}

var extToLanguage = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
}

// mergeAndRank implements the aggregation rule: dedup by an MD5-prefix
// signature over (relative_path, line, snippet), carrying repository attribution for
// every repo that independently produced the same hit, then orders by relevance score,
// then repository priority, then the producing repo's total result count. A merged hit
// keeps the highest score and is attributed to the repo that produced it; on a score
// tie, to the higher-priority repo.
func (c *Coordinator) mergeAndRank(all []types.SearchResult, resultCount map[types.RepositoryID]int) []types.SearchResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	priority := func(id types.RepositoryID) int {
		if h, ok := c.repos[id]; ok {
			return h.repo.Priority
		}
		return 0
	}

	seen := make(map[string]*types.SearchResult)
	order := make([]string, 0, len(all))

	for _, r := range all {
		r := r
		key := signature(r)
		existing, ok := seen[key]
		if !ok {
			r.RepositoryIDs = appendUnique(r.RepositoryIDs, r.RepositoryID)
			seen[key] = &r
			order = append(order, key)
			continue
		}
		existing.RepositoryIDs = appendUnique(existing.RepositoryIDs, r.RepositoryID)
		if r.Score > existing.Score || (r.Score == existing.Score && priority(r.RepositoryID) > priority(existing.RepositoryID)) {
			existing.Score = r.Score
			existing.RepositoryID = r.RepositoryID
		}
	}

	out := make([]types.SearchResult, 0, len(order))
	for _, key := range order {
		out = append(out, *seen[key])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		pi, pj := priority(out[i].RepositoryID), priority(out[j].RepositoryID)
		if pi != pj {
			return pi > pj
		}
		return resultCount[out[i].RepositoryID] > resultCount[out[j].RepositoryID]
	})
	return out
}

func signature(r types.SearchResult) string {
	sum := md5.Sum([]byte(r.RelativeFile + "|" + strconv.Itoa(r.Line) + "|" + r.Snippet))
	return hex.EncodeToString(sum[:8]) // MD5-prefix signature
}

func appendUnique(ids []types.RepositoryID, id types.RepositoryID) []types.RepositoryID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
