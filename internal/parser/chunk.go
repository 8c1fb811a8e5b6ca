package parser

import (
	"strings"

	"document-qa/internal/models"
)

const (
	DefaultChunkSize    = 500 // characters
	DefaultChunkOverlap = 100 // characters
)

// Span is a half-open [Start, End) window of rune offsets
type Span struct {
	Start int
	End   int
}

// ChunkSpans walks n characters in windows of maxChars, stepping back by overlap after each
// window. A non-advancing step (overlap >= maxChars) jumps to the end of the current window.
func ChunkSpans(n, maxChars, overlap int) []Span {
	if n <= 0 || maxChars <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}

	spans := make([]Span, 0, n/maxChars+1)
	start := 0
	for start < n {
		end := min(start+maxChars, n)
		spans = append(spans, Span{Start: start, End: end})
		if end == n {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// SplitIntoChunks splits text into overlapping windows, each trimmed of surrounding whitespace
func SplitIntoChunks(text string, maxChars, overlap int) []string {
	chunks := GetChunks(text, maxChars, overlap)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

// GetChunks is SplitIntoChunks keeping the pre-trim span and a 1-based chunk id
func GetChunks(text string, maxChars, overlap int) []models.Chunk {
	runes := []rune(text)
	spans := ChunkSpans(len(runes), maxChars, overlap)
	chunks := make([]models.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, models.Chunk{
			Content: strings.TrimSpace(string(runes[s.Start:s.End])),
			Start:   s.Start,
			End:     s.End,
			ChunkID: i + 1,
		})
	}
	return chunks
}
