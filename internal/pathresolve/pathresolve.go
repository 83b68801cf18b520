// Package pathresolve implements the Path Resolver component: normalizing
// absolute paths to repo-relative POSIX form and back, and computing content hashes.
//
// A Resolver is stateless except for its cached root path and repository id, both computed
// once at construction, and is safe for concurrent read access from multiple goroutines.
package pathresolve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	lciderrors "github.com/lcid-dev/lcid/internal/errors"
	"github.com/lcid-dev/lcid/internal/git"
	"github.com/lcid-dev/lcid/internal/repoid"
	"github.com/lcid-dev/lcid/internal/types"
	"github.com/lcid-dev/lcid/pkg/pathutil"
)

// Resolver converts between absolute and repo-relative paths for a single repository root.
type Resolver struct {
	root      string
	repoID    types.RepositoryID
	gitInfo   git.Info
}

// New constructs a Resolver rooted at absRoot, discovering git metadata synchronously.
// Call once per opened repository; the result is safe to share across goroutines.
func New(ctx context.Context, absRoot string) (*Resolver, error) {
	absRoot, err := filepath.Abs(absRoot)
	if err != nil {
		return nil, lciderrors.New(lciderrors.IO, "pathresolve.New", err).WithPath(absRoot)
	}
	info := git.Discover(ctx, absRoot)
	root := absRoot
	if info.Root != "" {
		root = info.Root
	}
	return &Resolver{
		root:    root,
		repoID:  repoid.Compute(info.RemoteURL, root),
		gitInfo: info,
	}, nil
}

// Root returns the repository's absolute root path.
func (r *Resolver) Root() string { return r.root }

// RepositoryID returns the 12-hex repository identity.
func (r *Resolver) RepositoryID() types.RepositoryID { return r.repoID }

// GitInfo returns the git metadata discovered at construction (remote URL, branch, commit).
func (r *Resolver) GitInfo() git.Info { return r.gitInfo }

// Normalize converts an absolute path to a repo-relative POSIX path. Returns
// OutsideRepository if absPath does not fall under the repository root.
func (r *Resolver) Normalize(absPath string) (string, error) {
	abs, err := filepath.Abs(absPath)
	if err != nil {
		return "", lciderrors.New(lciderrors.IO, "Normalize", err).WithPath(absPath)
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") || rel == ".." {
		return "", lciderrors.New(lciderrors.OutsideRepository, "Normalize", nil).WithPath(absPath)
	}
	if rel == "." {
		return "", lciderrors.New(lciderrors.OutsideRepository, "Normalize", nil).WithPath(absPath)
	}
	return pathutil.ToPOSIX(rel), nil
}

// Resolve converts a repo-relative POSIX path back to an absolute, OS-native path.
func (r *Resolver) Resolve(relPath string) string {
	return pathutil.ToAbsolute(relPath, r.root)
}

// ContentHash streams path's bytes through SHA-256 and returns the 64-hex digest.
func (r *Resolver) ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", lciderrors.New(lciderrors.IO, "ContentHash", err).WithPath(path)
	}
	defer f.Close()
	return HashReader(f)
}

// HashBytes computes the content hash of in-memory content, for callers (e.g. the watcher
// re-reading a just-changed file) that already hold the bytes.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashReader streams r through SHA-256, used for ContentHash and for hashing content read
// once and shared with an extractor.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", lciderrors.New(lciderrors.IO, "HashReader", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
