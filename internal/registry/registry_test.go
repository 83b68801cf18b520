package registry

import (
	"testing"

	"github.com/lcid-dev/lcid/internal/extractor"
	"github.com/stretchr/testify/require"
)

func TestGetConstructsOnce(t *testing.T) {
	r := New(0, nil)
	calls := 0
	r.Register("go", func() extractor.Extractor {
		calls++
		return extractor.NewPlaintext()
	})

	_, err := r.Get("go")
	require.NoError(t, err)
	_, err = r.Get("go")
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestUnregisteredNameErrors(t *testing.T) {
	r := New(0, nil)
	_, err := r.Get("nope")
	require.Error(t, err)
}

func TestMemoryBytesTracksLiveExtractors(t *testing.T) {
	r := New(0, nil)
	require.Zero(t, r.MemoryBytes())

	r.Register("go", func() extractor.Extractor { return extractor.NewPlaintext() })
	_, err := r.Get("go")
	require.NoError(t, err)
	require.GreaterOrEqual(t, r.MemoryBytes(), int64(0))

	r.Shutdown()
	require.Zero(t, r.MemoryBytes())
}

func TestPriorityLanguageSurvivesEviction(t *testing.T) {
	r := New(1, []string{"go"}) // 1 byte budget forces eviction on anything measurable
	r.Register("go", func() extractor.Extractor { return extractor.NewPlaintext() })
	r.Register("python", func() extractor.Extractor { return extractor.NewPlaintext() })

	_, err := r.Get("go")
	require.NoError(t, err)
	_, err = r.Get("python")
	require.NoError(t, err)

	loaded := r.ListLoaded()
	require.Contains(t, loaded, "go")
}

func TestShutdownClearsLive(t *testing.T) {
	r := New(0, nil)
	r.Register("go", func() extractor.Extractor { return extractor.NewPlaintext() })
	_, err := r.Get("go")
	require.NoError(t, err)
	require.NotEmpty(t, r.ListLoaded())

	r.Shutdown()
	require.Empty(t, r.ListLoaded())
}
