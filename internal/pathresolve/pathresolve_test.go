package pathresolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	lciderrors "github.com/lcid-dev/lcid/internal/errors"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib"), 0o755))
	r, err := New(context.Background(), root)
	require.NoError(t, err)
	return r, root
}

// Property 1: round-trip path.
func TestNormalizeResolveRoundTrip(t *testing.T) {
	r, root := newTestResolver(t)
	abs := filepath.Join(root, "lib", "mod.ext")

	rel, err := r.Normalize(abs)
	require.NoError(t, err)
	require.False(t, filepath.IsAbs(rel))
	require.NotContains(t, rel, "\\")

	got := r.Resolve(rel)
	require.Equal(t, filepath.Clean(abs), filepath.Clean(got))
}

func TestNormalizeOutsideRepository(t *testing.T) {
	r, _ := newTestResolver(t)
	other := t.TempDir()

	_, err := r.Normalize(filepath.Join(other, "x.go"))
	require.Error(t, err)
	kind, ok := lciderrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lciderrors.OutsideRepository, kind)
}

// Property 2: content hash stability.
func TestContentHashStability(t *testing.T) {
	a := HashBytes([]byte("package main\n"))
	b := HashBytes([]byte("package main\n"))
	require.Equal(t, a, b)

	c := HashBytes([]byte("package main \n"))
	require.NotEqual(t, a, c)
}

func TestRepositoryIDIsStableAndShort(t *testing.T) {
	r, _ := newTestResolver(t)
	require.Len(t, string(r.RepositoryID()), 12)
}
