// Package errors defines the engine's error taxonomy: a fixed set of kinds
// rather than ad-hoc sentinel values, so callers can branch on Kind without type-asserting
// concrete error types.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind is one of a fixed set of taxonomy entries.
type Kind string

const (
	// NotFound: symbol/file/repository absent; expected outcome, not a failure.
	NotFound Kind = "not_found"
	// Syntax: extractor could not parse; recorded per-file, surfaced in status.
	Syntax Kind = "syntax"
	// Unsupported: no extractor claimed the path; file treated as plain-text for FTS only.
	Unsupported Kind = "unsupported"
	// IO: filesystem error; retried with backoff up to 3 times.
	IO Kind = "io"
	// Storage: database operation failed; one automatic retry on serialization conflict.
	Storage Kind = "storage"
	// Timeout: extractor or per-repo task exceeded its budget; degraded-marked.
	Timeout Kind = "timeout"
	// MemoryBudget: extractor could not be loaded under the budget.
	MemoryBudget Kind = "memory_budget"
	// OutsideRepository: path normalization refused; programmer error.
	OutsideRepository Kind = "outside_repository"
)

// Error carries a Kind plus enough context to log or retry intelligently.
type Error struct {
	Kind      Kind
	Op        string
	Path      string
	Err       error
	Timestamp time.Time
}

// New creates an Error of the given kind for the given operation.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err, Timestamp: time.Now()}
}

// WithPath attaches a file path to the error for logging/context.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap allows errors.Is/errors.As to reach the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target carries the same Kind, so callers can write
// errors.Is(err, errors.New(NotFound, "", nil)) or, more idiomatically, use KindOf.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// KindOf extracts the Kind from err, returning ("", false) if err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Recoverable reports whether the propagation policy treats this kind as
// recoverable: logged, counted, and never aborting an aggregate query. OutsideRepository
// and MemoryBudget are unrecoverable and propagate to the operation's caller.
func (e *Error) Recoverable() bool {
	switch e.Kind {
	case Syntax, Unsupported, Timeout, IO, Storage:
		return true
	case OutsideRepository, MemoryBudget, NotFound:
		return false
	default:
		return false
	}
}
