package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkEmptyContentReturnsNoChunks(t *testing.T) {
	c := NewChunker(400, 50)
	require.Empty(t, c.Chunk("a.go", nil))
}

func TestChunkSmallFileReturnsOneChunk(t *testing.T) {
	c := NewChunker(400, 50)
	content := "package main\n\nfunc main() {}\n"
	chunks := c.Chunk("a.go", []byte(content))
	require.Len(t, chunks, 1)
	require.Equal(t, 0, chunks[0].Index)
	require.Equal(t, "a.go", chunks[0].RelativePath)
	require.NotEmpty(t, chunks[0].ContentHash)
}

func TestChunkLargeFileSplitsIntoMultipleChunksWithIncreasingLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("func Handler")
		b.WriteString(string(rune('A' + i%26)))
		b.WriteString("() {\n\tdoWork()\n}\n\n")
	}
	c := NewChunker(100, 10)
	chunks := c.Chunk("big.go", []byte(b.String()))
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		require.Equal(t, i, ch.Index)
		require.NotEmpty(t, ch.ContentHash)
	}
	// chunks progress forward through the file
	for i := 1; i < len(chunks); i++ {
		require.GreaterOrEqual(t, chunks[i].StartLine, chunks[i-1].StartLine)
	}
}

func TestChunkHashDependsOnContent(t *testing.T) {
	c := NewChunker(400, 0)
	a := c.Chunk("a.go", []byte("func A() {}\n"))
	b := c.Chunk("a.go", []byte("func B() {}\n"))
	require.NotEqual(t, a[0].ContentHash, b[0].ContentHash)
}

func TestChunkIdenticalContentHashesTheSame(t *testing.T) {
	c := NewChunker(400, 0)
	content := []byte("func A() {}\n")
	a := c.Chunk("a.go", content)
	b := c.Chunk("b.go", content)
	require.Equal(t, a[0].ContentHash, b[0].ContentHash)
}

func TestTokenEstimateRoughlyQuartersContentLength(t *testing.T) {
	ch := Chunk{Content: "12345678"}
	require.Equal(t, 2, ch.TokenEstimate())
}
