// Package chunk splits extracted document text into overlapping,
// boundary-aware chunks suitable for indexing and citation.
package chunk

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/docdex/docdex/internal/errors"
)

// Chunk size defaults tuned for prose documents.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// pageMarkerRegex matches page markers embedded by PDF extraction.
var pageMarkerRegex = regexp.MustCompile(`--- Page (\d+) ---`)

// Chunk is a retrievable unit of document text.
type Chunk struct {
	// Text is the chunk content, whitespace-trimmed.
	Text string
	// Index is the 0-based position among emitted chunks.
	Index int
	// StartChar and EndChar locate the untrimmed window in the source
	// text, counted in characters.
	StartChar int
	EndChar   int
	// Page is the 1-based page number parsed from a page marker,
	// or 0 when the chunk carries no marker.
	Page int
}

// Chunker splits text into character windows, preferring to cut at
// paragraph breaks, then sentence boundaries.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker.
// size must be positive and overlap must be non-negative and smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size < 1 {
		return nil, errors.New(errors.ErrCodeInvalidChunkParams,
			"chunk size must be positive, got "+strconv.Itoa(size), nil)
	}
	if overlap < 0 {
		return nil, errors.New(errors.ErrCodeInvalidChunkParams,
			"chunk overlap must be non-negative, got "+strconv.Itoa(overlap), nil)
	}
	if overlap >= size {
		return nil, errors.New(errors.ErrCodeInvalidChunkParams,
			"chunk overlap must be smaller than chunk size", nil).
			WithDetail("size", strconv.Itoa(size)).
			WithDetail("overlap", strconv.Itoa(overlap))
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured window size in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks text into windows of at most the configured size.
//
// Each window prefers to end at the last paragraph break ("\n\n") inside
// it, then at the last sentence boundary (". ", "! ", "? "), and falls
// back to a hard cut. Consecutive windows share the configured overlap.
// Empty-after-trim windows are skipped; returns an empty slice for
// empty or whitespace-only input.
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return []Chunk{}
	}

	// Sizes, offsets, and cuts all count characters, so multi-byte
	// text is never sliced mid-rune.
	runes := []rune(text)
	chunks := []Chunk{}
	start := 0
	index := 0

	for start < len(runes) {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		// Prefer a natural boundary, but only when the window is full.
		// Boundary offsets come back in bytes and convert to runes;
		// the separators themselves are two one-byte characters.
		if end < len(runes) {
			window := string(runes[start:end])
			if para := strings.LastIndex(window, "\n\n"); para > 0 {
				end = start + utf8.RuneCountInString(window[:para]) + 2
			} else if sentence := lastSentenceBreak(window); sentence > 0 {
				end = start + utf8.RuneCountInString(window[:sentence]) + 2
			}
		}

		trimmed := strings.TrimSpace(string(runes[start:end]))
		if trimmed != "" {
			chunks = append(chunks, Chunk{
				Text:      trimmed,
				Index:     index,
				StartChar: start,
				EndChar:   end,
				Page:      parsePage(trimmed),
			})
			index++
		}

		next := end
		if c.overlap > 0 {
			next = end - c.overlap
		}
		// Force forward progress so tiny windows never loop.
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// lastSentenceBreak returns the offset of the last sentence-ending
// punctuation in window, or -1 if none exists.
func lastSentenceBreak(window string) int {
	best := -1
	for _, sep := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(window, sep); idx > best {
			best = idx
		}
	}
	return best
}

// parsePage extracts the page number from the first page marker in text.
// Returns 0 when text carries no marker.
func parsePage(text string) int {
	m := pageMarkerRegex.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	page, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return page
}
