package extractor

import "context"

// Plaintext is an always-supporting, never-producing-symbols extractor. It is not
// registered with the Registry: when no registered extractor claims a file, the
// Dispatcher's IndexFile returns an empty Result itself, and code search over that file
// still works via the Index Store's file-content FTS.
type Plaintext struct{}

func NewPlaintext() *Plaintext { return &Plaintext{} }

func (Plaintext) Name() string { return "plaintext" }

func (Plaintext) Supports(ext string) bool { return true }

func (Plaintext) Extract(ctx context.Context, path string, content []byte) (Result, error) {
	return Result{}, nil
}
