// Package repoid computes a repository's stable identity: a 12-hex-character
// prefix of the SHA-256 of the repository's remote URL (preferred) or its absolute
// filesystem path.
package repoid

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/lcid-dev/lcid/internal/types"
)

const length = 12

// FromRemoteURL derives a RepositoryID from a git remote URL.
func FromRemoteURL(remoteURL string) types.RepositoryID {
	return hash(remoteURL)
}

// FromAbsolutePath derives a RepositoryID from an absolute filesystem path, used when no
// remote URL is available.
func FromAbsolutePath(absPath string) types.RepositoryID {
	return hash(absPath)
}

// Compute picks the remote URL if non-empty, else the absolute path.
func Compute(remoteURL, absPath string) types.RepositoryID {
	if remoteURL != "" {
		return FromRemoteURL(remoteURL)
	}
	return FromAbsolutePath(absPath)
}

func hash(s string) types.RepositoryID {
	sum := sha256.Sum256([]byte(s))
	return types.RepositoryID(hex.EncodeToString(sum[:])[:length])
}
