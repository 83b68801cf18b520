// Package chunk segments file content into overlapping windows for the Semantic
// Indexer's embedding pipeline. Each chunk targets a token budget,
// preferring to break at a structural boundary (a blank-line run or a top-level
// declaration) over a blind character cut, with a small overlap carried into the next
// chunk so embeddings on either side of a cut still see shared context.
package chunk

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// charsPerToken approximates a token as 4 characters, a common rough estimate for
// English-like source text; exact tokenization belongs to the embedding model, not
// the chunker.
const charsPerToken = 4

// Chunk is an indexable unit of file content. Its identity is the triple
// (RelativePath, Index, ContentHash), which keys dedup and move-relocation.
type Chunk struct {
	RelativePath string
	Index        int
	ContentHash  string
	StartLine    int
	EndLine      int
	Content      string
}

// TokenEstimate returns a rough token count for the chunk's content.
func (c Chunk) TokenEstimate() int {
	return len(c.Content) / charsPerToken
}

// fastHash hashes a chunk's text for dedup/equality checks. Chunk identity only needs to
// survive within one vector store, not across untrusted input, so a 64-bit xxhash is
// preferred over a cryptographic digest: it's the hash checked on every chunk of every
// indexed file.
func fastHash(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(text), 16)
}

// topLevelDecl matches a line starting a top-level declaration in one of the
// languages this repo indexes: Go, Python, JS/TS, Java.
var topLevelDecl = regexp.MustCompile(`^(func|type|class|def|interface|struct|public |private |protected )\S?`)

// Chunker splits file content into overlapping, boundary-aware windows.
type Chunker struct {
	targetTokens  int
	overlapTokens int
}

// NewChunker creates a Chunker targeting targetTokens per chunk with overlapTokens of
// trailing content repeated at the start of the next chunk.
func NewChunker(targetTokens, overlapTokens int) *Chunker {
	if targetTokens <= 0 {
		targetTokens = 400
	}
	if overlapTokens < 0 || overlapTokens >= targetTokens {
		overlapTokens = targetTokens / 8
	}
	return &Chunker{targetTokens: targetTokens, overlapTokens: overlapTokens}
}

// Chunk segments content into Chunks for relativePath, each hashed independently so the
// Semantic Indexer can dedup unchanged chunks by content hash alone.
func (c *Chunker) Chunk(relativePath string, content []byte) []Chunk {
	lines := strings.Split(string(content), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}

	targetChars := c.targetTokens * charsPerToken
	overlapChars := c.overlapTokens * charsPerToken

	var chunks []Chunk
	start := 0
	for start < len(lines) {
		end := c.windowEnd(lines, start, targetChars)
		chunkLines := lines[start:end]
		text := strings.Join(chunkLines, "\n")

		chunks = append(chunks, Chunk{
			RelativePath: relativePath,
			Index:        len(chunks),
			ContentHash:  fastHash(text),
			StartLine:    start + 1, // 1-indexed to match types.Symbol line numbering
			EndLine:      end,
			Content:      text,
		})

		if end >= len(lines) {
			break
		}
		nextStart := end - overlapLines(chunkLines, overlapChars)
		if nextStart <= start { // guard against a zero-progress loop when overlap would swallow the whole chunk
			nextStart = end
		}
		start = nextStart
	}
	return chunks
}

// windowEnd finds the line index (exclusive) closing a chunk that starts at start,
// preferring a blank line or top-level declaration near the target size over cutting
// mid-token-budget.
func (c *Chunker) windowEnd(lines []string, start, targetChars int) int {
	size := 0
	lastBoundary := -1

	for i := start; i < len(lines); i++ {
		size += len(lines[i]) + 1 // +1 for the joining newline
		if size >= targetChars {
			if isBoundary(lines, i) {
				return i + 1
			}
			if lastBoundary > start {
				return lastBoundary
			}
			return i + 1 // no boundary found nearby: cut here rather than grow unbounded
		}
		if isBoundary(lines, i) {
			lastBoundary = i + 1
		}
	}
	return len(lines)
}

func isBoundary(lines []string, i int) bool {
	if strings.TrimSpace(lines[i]) == "" {
		return true
	}
	if i+1 < len(lines) && topLevelDecl.MatchString(lines[i+1]) {
		return true
	}
	return false
}

// overlapLines returns how many trailing lines of chunkLines fit within overlapChars,
// used to seed the start of the next chunk with shared context.
func overlapLines(chunkLines []string, overlapChars int) int {
	if overlapChars <= 0 {
		return 0
	}
	size, n := 0, 0
	for i := len(chunkLines) - 1; i >= 0; i-- {
		size += len(chunkLines[i]) + 1
		if size > overlapChars {
			break
		}
		n++
	}
	return n
}
