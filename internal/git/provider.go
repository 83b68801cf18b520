// Package git provides the minimal git-awareness the engine needs: locating a
// repository's root and its origin remote URL, used to compute the repository identity
// and to tag persisted index metadata with branch/commit.
package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Info describes the git-level identity of a working tree.
type Info struct {
	Root      string
	RemoteURL string
	Branch    string
	CommitSHA string
}

// Discover finds the git root (if any) containing path and reads its origin remote,
// current branch and HEAD commit. It never fails hard: a non-git directory yields a
// zero-value Info with Root set to path's nearest ancestor, so callers (Path Resolver)
// can still fall back to hashing the absolute path for repository identity.
func Discover(ctx context.Context, path string) Info {
	root, err := revParseShowToplevel(ctx, path)
	if err != nil {
		root = nearestGitMarker(path)
		return Info{Root: root}
	}

	info := Info{Root: root}
	info.RemoteURL = runGit(ctx, root, "remote", "get-url", "origin")
	if branch := runGit(ctx, root, "rev-parse", "--abbrev-ref", "HEAD"); branch != "" {
		info.Branch = branch
	}
	info.CommitSHA = runGit(ctx, root, "rev-parse", "HEAD")
	return info
}

func revParseShowToplevel(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = path
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository: %s: %w", path, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// runGit runs a git subcommand and returns trimmed stdout, or "" on any failure —
// callers treat a missing remote/branch as optional metadata, not an error.
func runGit(ctx context.Context, dir string, args ...string) string {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// nearestGitMarker walks up from path looking for a .git directory or file (worktrees use
// a .git file), returning the first ancestor that has one, or path itself if none is
// found. Used as the repository-root fallback when git itself is unavailable.
func nearestGitMarker(path string) string {
	dir := path
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return path
		}
		dir = parent
	}
}
