package chunker

import (
	"fmt"
	"strings"

	"lexrag/internal/domain"
)

// WordChunker splits text into consecutive windows of whole words, never
// inside a word. Overlap repeats the trailing words of the previous window
// at the start of the next so context is not lost at boundaries.
type WordChunker struct {
	wordsPerChunk int
	overlapWords  int
}

// NewWordChunker validates the parameters and returns a chunker. An overlap
// equal to or larger than the chunk size would never advance, so it is
// rejected along with non-positive sizes.
func NewWordChunker(wordsPerChunk, overlapWords int) (*WordChunker, error) {
	if wordsPerChunk <= 0 {
		return nil, fmt.Errorf("%w: words per chunk must be positive, got %d", domain.ErrChunking, wordsPerChunk)
	}
	if overlapWords < 0 || overlapWords >= wordsPerChunk {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrChunking, wordsPerChunk, overlapWords)
	}
	return &WordChunker{wordsPerChunk: wordsPerChunk, overlapWords: overlapWords}, nil
}

// Chunk splits text on whitespace into windows of the configured size.
// Deterministic: identical input always yields the identical sequence.
// Empty or whitespace-only text yields no chunks; text shorter than one
// window yields a single chunk.
func (c *WordChunker) Chunk(text string) ([]string, error) {
	if c.wordsPerChunk <= 0 {
		return nil, fmt.Errorf("%w: chunker not initialized", domain.ErrChunking)
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}
	var chunks []string
	step := c.wordsPerChunk - c.overlapWords
	for start := 0; start < len(words); start += step {
		end := start + c.wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks, nil
}
