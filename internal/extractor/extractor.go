// Package extractor implements the Language Extractor: a capability-set
// interface with Generic (grammar-driven) and Enhanced (hand-written) implementations,
// plus a plain-text Plaintext extractor that claims every extension and yields nothing.
package extractor

import (
	"context"

	"github.com/lcid-dev/lcid/internal/types"
)

// Result is everything one extraction pass over a file yields.
type Result struct {
	Symbols    []types.Symbol
	References []types.Reference
}

// Extractor is the capability set a language implementation offers. Implementations
// that cannot resolve references still satisfy the interface; their Extract returns a
// Result with no References rather than an error.
type Extractor interface {
	// Name identifies the extractor for registry bookkeeping and status reporting.
	Name() string
	// Supports reports whether this extractor claims a file extension (e.g. ".go").
	Supports(ext string) bool
	// Extract parses content and returns the symbols and references it declares.
	Extract(ctx context.Context, path string, content []byte) (Result, error)
}

// EstimatedMemoryBytes is implemented by extractors that report a static estimate of
// their resident cost. The Registry measures every extractor via runtime.ReadMemStats
// deltas around construction and uses this estimate as a floor when the measured delta
// is smaller. Extractors that hold a compiled grammar implement this.
type EstimatedMemoryBytes interface {
	EstimatedMemoryBytes() int64
}
