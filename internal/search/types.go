// Package search retrieves chunks for a question by semantic
// similarity, BM25 keyword match, or a weighted hybrid of both.
package search

import (
	"time"
)

// Mode selects the retrieval strategy.
type Mode string

const (
	// ModeSemantic ranks purely by embedding similarity.
	ModeSemantic Mode = "semantic"
	// ModeKeyword ranks purely by BM25. Requires a lexical index;
	// an empty collection yields no results.
	ModeKeyword Mode = "keyword"
	// ModeHybrid fuses normalized semantic and lexical scores.
	ModeHybrid Mode = "hybrid"
)

// DefaultAlpha is the semantic weight in hybrid fusion.
// combined = alpha*semantic + (1-alpha)*lexical.
const DefaultAlpha = 0.7

// Config holds retriever defaults, overridable per query via Options.
type Config struct {
	// Alpha is the hybrid semantic weight in [0, 1].
	Alpha float64
	// MaxResults is the default result limit.
	MaxResults int
	// Timeout bounds a whole retrieval. Expired retrievals yield
	// empty results rather than an error.
	Timeout time.Duration
}

// DefaultConfig returns the standard retriever configuration.
func DefaultConfig() Config {
	return Config{
		Alpha:      DefaultAlpha,
		MaxResults: 5,
		Timeout:    30 * time.Second,
	}
}

// Options are per-query overrides. Zero values fall back to Config.
type Options struct {
	// Mode defaults to ModeHybrid.
	Mode Mode
	// Limit caps the number of results.
	Limit int
	// Alpha overrides the hybrid semantic weight when non-nil.
	Alpha *float64
}

// Result is one retrieved chunk.
type Result struct {
	ChunkID    string  `json:"chunk_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Page       int     `json:"page,omitempty"`
	Content    string  `json:"content"`
	// Score is the ranking score of the mode that produced the result:
	// raw similarity (semantic), raw BM25 (keyword), or the combined
	// normalized score (hybrid).
	Score float64 `json:"score"`
	// SemanticScore and LexicalScore are the normalized fusion
	// components. Only populated in hybrid mode.
	SemanticScore float64 `json:"semantic_score,omitempty"`
	LexicalScore  float64 `json:"lexical_score,omitempty"`
	// MatchedTerms are the query terms BM25 matched, when known.
	MatchedTerms []string `json:"matched_terms,omitempty"`
}
