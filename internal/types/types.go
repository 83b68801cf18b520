// Package types defines the data model shared across the indexing and query engine:
// repositories, files, symbols, references, move history, and search results.
package types

import "time"

// RepositoryID is a 12-hex-character prefix of the SHA-256 of a repository's remote URL
// (preferred) or its absolute filesystem path.
type RepositoryID string

// Repository identifies a source tree under management.
type Repository struct {
	ID           RepositoryID
	Name         string
	RootPath     string
	IndexDir     string
	RemoteURL    string
	Priority     int
	RegisteredAt time.Time
}

// FileID identifies a row in the Index Store's file table.
type FileID int64

// SymbolID identifies a row in the Index Store's symbol table.
type SymbolID int64

// File is a single source file tracked within a Repository.
type File struct {
	ID           FileID
	Repo         RepositoryID
	RelativePath string // always POSIX form, never absolute, never escapes repo root
	Language     string
	ContentHash  string // hex SHA-256 of file bytes
	LastIndexed  time.Time
	Deleted      bool
}

// SymbolKind enumerates the fixed set of declaration kinds a Symbol may have.
type SymbolKind string

const (
	KindClass       SymbolKind = "class"
	KindStruct      SymbolKind = "struct"
	KindInterface   SymbolKind = "interface"
	KindTrait       SymbolKind = "trait"
	KindFunction    SymbolKind = "function"
	KindMethod      SymbolKind = "method"
	KindConstructor SymbolKind = "constructor"
	KindField       SymbolKind = "field"
	KindVariable    SymbolKind = "variable"
	KindConstant    SymbolKind = "constant"
	KindEnum        SymbolKind = "enum"
	KindEnumerator  SymbolKind = "enumerator"
	KindTypedef     SymbolKind = "typedef"
	KindNamespace   SymbolKind = "namespace"
	KindModule      SymbolKind = "module"
	KindMacro       SymbolKind = "macro"
	KindProperty    SymbolKind = "property"
)

// Position is a 1-based line/column pair.
type Position struct {
	Line   int
	Column int
}

// Symbol is a named declaration produced by an extractor.
type Symbol struct {
	ID         SymbolID
	FileID     FileID
	Name       string
	Kind       SymbolKind
	Start      Position
	End        Position
	Signature  string
	Docstring  string
	ParentName string // enclosing class/namespace, empty if top-level
}

// ReferenceKind enumerates how a symbol is used at a reference site.
type ReferenceKind string

const (
	RefCall    ReferenceKind = "call"
	RefRead    ReferenceKind = "read"
	RefWrite   ReferenceKind = "write"
	RefImport  ReferenceKind = "import"
	RefInherit ReferenceKind = "inherit"
)

// Reference is a use-site of a symbol.
type Reference struct {
	ID         int64
	SymbolName string
	SymbolID   SymbolID // 0 if the defining symbol is unresolved
	FileID     FileID
	Line       int
	Column     int
	Kind       ReferenceKind
}

// MoveKind classifies a Move History Entry.
type MoveKind string

const (
	MoveRename                MoveKind = "rename"
	MoveMove                  MoveKind = "move"
	MoveContentPreservingEdit MoveKind = "content-preserving-edit"
)

// MoveHistoryEntry is an append-only record of a file rename/move.
type MoveHistoryEntry struct {
	ID          int64
	Repo        RepositoryID
	OldPath     string
	NewPath     string
	ContentHash string
	MovedAt     time.Time
	Kind        MoveKind
}

// Embedding is a vector representation of one chunk of a file, keyed by content hash so
// that moves and duplicate content do not require re-embedding.
type Embedding struct {
	FileID      FileID
	ChunkID     int
	ContentHash string
	Vector      []float32
	Deleted     bool
}

// SearchResult is one hit from a code or symbol search.
type SearchResult struct {
	RelativeFile  string
	Line          int
	Snippet       string // match span marked, e.g. with »…«
	Score         float64
	HasScore      bool
	RepositoryID  RepositoryID
	RepositoryIDs []RepositoryID // populated when results from multiple repos merge
}

// SymbolRecord is the external-facing representation of a Symbol.
type SymbolRecord struct {
	Name         string
	Kind         SymbolKind
	AbsoluteFile string
	RelativeFile string
	Start        Position
	End          Position
	Signature    string
	Docstring    string
	ParentName   string
}
