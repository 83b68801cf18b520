package dispatch

import (
	"context"
	"time"

	"github.com/lcid-dev/lcid/internal/types"
)

// ExtractorInfo describes one registered Language Extractor, backing the
// list_extractors operation.
type ExtractorInfo struct {
	Language string
	Suffixes []string
	Enhanced bool // true for a hand-written Enhanced extractor, false for a Generic one
}

// Status is a snapshot of one repository's index, backing the get_status
// operation.
type Status struct {
	Files         int
	Symbols       int
	MemoryBytes   int64
	LastIndexedAt time.Time
}

// Engine is the in-process command surface one repository's index exposes. cmd/lcid's
// subcommands are thin callers of this interface; any future wire-protocol front end
// would be too, since outward framing is explicitly out of scope here.
type Engine interface {
	// SymbolLookup implements symbol_lookup: name -> 0 or 1 Symbol record.
	SymbolLookup(ctx context.Context, name string) (types.SymbolRecord, bool, error)
	// SearchCode implements search_code: query (+ optional semantic search)
	// -> up to limit SearchResults.
	SearchCode(ctx context.Context, query string, useSemantic bool, limit int) ([]types.SearchResult, error)
	// GetStatus implements get_status.
	GetStatus(ctx context.Context) (Status, error)
	// ListExtractors implements list_extractors.
	ListExtractors(ctx context.Context) []ExtractorInfo
	// Reindex implements reindex: an empty path reindexes the whole
	// repository, a non-empty path reindexes just that file, returning the count of
	// files processed.
	Reindex(ctx context.Context, path string) (int, error)
}
