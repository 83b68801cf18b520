package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func withCapturedOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(Debug)
	SetQuiet(false)
	t.Cleanup(func() {
		SetOutput(nil)
		SetLevel(Info)
		SetQuiet(false)
	})
	return &buf
}

func TestLoggerTagsLinesWithComponentAndLevel(t *testing.T) {
	buf := withCapturedOutput(t)
	l := New("indexing")

	l.Infof("indexed %d files", 3)

	out := buf.String()
	require.Contains(t, out, "[INFO]")
	require.Contains(t, out, "indexing")
	require.Contains(t, out, "indexed 3 files")
}

func TestLevelGatesBelowThreshold(t *testing.T) {
	buf := withCapturedOutput(t)
	SetLevel(Warn)
	l := New("watch")

	l.Debugf("noisy detail")
	l.Infof("still noisy")
	l.Warnf("a watcher error")

	out := buf.String()
	require.NotContains(t, out, "noisy detail")
	require.NotContains(t, out, "still noisy")
	require.Contains(t, out, "a watcher error")
}

func TestQuietSuppressesEverything(t *testing.T) {
	buf := withCapturedOutput(t)
	SetQuiet(true)
	l := New("coordinator")

	l.Errorf("this must not appear")

	require.Empty(t, buf.String())
}

func TestParseLevelDefaultsToInfoOnUnknown(t *testing.T) {
	require.Equal(t, Debug, ParseLevel("debug"))
	require.Equal(t, Warn, ParseLevel("warn"))
	require.Equal(t, Error, ParseLevel("error"))
	require.Equal(t, Info, ParseLevel("garbage"))
}

func TestLevelStringIsKnownForEveryLevel(t *testing.T) {
	for _, lvl := range []Level{Debug, Info, Warn, Error} {
		require.False(t, strings.Contains(lvl.String(), "UNKNOWN"))
	}
}
