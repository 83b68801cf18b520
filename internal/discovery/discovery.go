// Package discovery implements Index Discovery: mapping a working-tree
// path to its central index location and creating that location on first use.
package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lcid-dev/lcid/internal/config"
	lciderrors "github.com/lcid-dev/lcid/internal/errors"
	"github.com/lcid-dev/lcid/internal/types"
)

// CurrentDBName is the well-known symlink/pointer name inside a repo_hash directory that
// always resolves to the active versioned database.
const CurrentDBName = "current.db"

const shortCommitLen = 8

// Discovery locates and creates index database paths per the layout and
// 5-path lookup order, rooted at cfg.IndexStorageRoot.
type Discovery struct {
	cfg *config.Config
}

// New creates a Discovery over cfg's configured storage root.
func New(cfg *config.Config) *Discovery {
	return &Discovery{cfg: cfg}
}

// DBFileName builds the versioned database file name `<branch>_<short_commit>.db` from
// the layout. Branch separators are flattened since '/' cannot appear in a
// filename component.
func DBFileName(branch, commitSHA string) string {
	return fmt.Sprintf("%s_%s.db", sanitizeBranch(branch), shortCommit(commitSHA))
}

// MetaFileName builds the sidecar metadata file name for the same branch/commit pair.
func MetaFileName(branch, commitSHA string) string {
	return fmt.Sprintf("%s_%s.meta", sanitizeBranch(branch), shortCommit(commitSHA))
}

func sanitizeBranch(branch string) string {
	if branch == "" {
		return "detached"
	}
	return strings.ReplaceAll(branch, "/", "-")
}

func shortCommit(sha string) string {
	if sha == "" {
		return "nocommit"
	}
	if len(sha) > shortCommitLen {
		return sha[:shortCommitLen]
	}
	return sha
}

// candidatePaths returns the 5 `current.db` locations this build recognizes, in lookup order.
func (d *Discovery) candidatePaths(workspaceRoot string, repo types.RepositoryID) []string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return []string{
		filepath.Join(workspaceRoot, ".indexes", string(repo), CurrentDBName),
		filepath.Join(workspaceRoot, ".mcp-index", string(repo), CurrentDBName),
		filepath.Join(d.cfg.IndexStorageRoot, string(repo), CurrentDBName),
		filepath.Join(d.cfg.IndexStorageRoot, "test_indexes", string(repo), CurrentDBName),
		filepath.Join(home, ".mcp", "indexes", string(repo), CurrentDBName),
	}
}

// autoCreateIndex is path 3 in the lookup order (0-indexed: 2), the only path
// auto-create is authorized to use.
const autoCreateIndex = 2

// Locate runs the 5-path discovery order and returns the resolved, real database file
// (following a current.db symlink or pointer file to its target). If none of the 5
// paths exist, it returns a NotFound error naming every path attempted.
func (d *Discovery) Locate(workspaceRoot string, repo types.RepositoryID) (string, error) {
	candidates := d.candidatePaths(workspaceRoot, repo)
	attempted := make([]string, 0, len(candidates))

	for _, current := range candidates {
		attempted = append(attempted, current)
		if _, err := os.Lstat(current); err != nil {
			continue
		}
		resolved, err := resolveCurrent(current)
		if err != nil {
			continue
		}
		return resolved, nil
	}
	return "", lciderrors.New(lciderrors.NotFound, "discovery.Locate",
		fmt.Errorf("no index found, tried: %s", strings.Join(attempted, ", ")))
}

// AutoCreate materializes path 3 (`<storage-root>/<repo_hash>/current.db`) pointing at a
// freshly named versioned database, creating the containing directory if needed. The
// database file itself is created lazily by store.Open against the returned path.
func (d *Discovery) AutoCreate(workspaceRoot string, repo types.RepositoryID, branch, commitSHA string) (string, error) {
	candidates := d.candidatePaths(workspaceRoot, repo)
	dir := filepath.Dir(candidates[autoCreateIndex])

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", lciderrors.New(lciderrors.IO, "discovery.AutoCreate", err).WithPath(dir)
	}

	dbName := DBFileName(branch, commitSHA)
	if err := d.PromoteCurrent(dir, dbName); err != nil {
		return "", err
	}
	if err := writeMeta(filepath.Join(dir, MetaFileName(branch, commitSHA)), branch, commitSHA); err != nil {
		return "", err
	}
	return filepath.Join(dir, dbName), nil
}

// PromoteCurrent repoints dir's current.db at dbName, used both by AutoCreate and by a
// later re-index that produces a new versioned database for the same repository (e.g.
// a branch switch). It prefers a real symlink; on platforms where os.Symlink fails
// (EPERM/ENOTSUP) it falls back to a one-line pointer file holding dbName.
func (d *Discovery) PromoteCurrent(dir, dbName string) error {
	currentPath := filepath.Join(dir, CurrentDBName)
	_ = os.Remove(currentPath)

	if err := os.Symlink(dbName, currentPath); err == nil {
		return nil
	}
	if err := os.WriteFile(currentPath, []byte(dbName), 0o644); err != nil {
		return lciderrors.New(lciderrors.IO, "discovery.PromoteCurrent", err).WithPath(currentPath)
	}
	return nil
}

// resolveCurrent follows current.db to the real database file it names, whether
// current.db is a symlink or a plain-file fallback pointer.
func resolveCurrent(currentPath string) (string, error) {
	info, err := os.Lstat(currentPath)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(currentPath)

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(currentPath)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		return target, nil
	}

	content, err := os.ReadFile(currentPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, strings.TrimSpace(string(content))), nil
}

type metaDocument struct {
	Branch    string    `json:"branch"`
	CommitSHA string    `json:"commit_sha"`
	CreatedAt time.Time `json:"created_at"`
}

func writeMeta(path, branch, commitSHA string) error {
	doc := metaDocument{Branch: branch, CommitSHA: commitSHA, CreatedAt: time.Now().UTC()}
	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return lciderrors.New(lciderrors.IO, "discovery.writeMeta", err).WithPath(path)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return lciderrors.New(lciderrors.IO, "discovery.writeMeta", err).WithPath(path)
	}
	return nil
}
