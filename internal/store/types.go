// Package store provides the persistence layer for document collections:
// vector storage (HNSW), the lexical BM25 snapshot (bleve), and durable
// chunk records (SQLite).
package store

import (
	"fmt"
	"time"
)

// ChunkRecord is a durably stored chunk with its source metadata.
type ChunkRecord struct {
	// ID is "{filename}_{chunk_index}".
	ID string
	// Filename of the source document.
	Filename string
	// Content is the chunk text.
	Content string
	// ChunkIndex is the 0-based position within the document.
	ChunkIndex int
	// StartChar and EndChar locate the chunk in the extracted text.
	StartChar int
	EndChar   int
	// Page is the 1-based source page, 0 when unknown.
	Page int
	// FileType is the source extension (".txt", ".md").
	FileType string
	// FileSize is the source file size in bytes.
	FileSize int64
	// UploadDate is when the document was ingested.
	UploadDate time.Time
}

// Document is a document to be indexed in the lexical index.
type Document struct {
	ID      string // Chunk ID
	Content string // Text content
}

// LexicalResult is a single BM25 search result.
type LexicalResult struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// VectorResult is a single vector search result.
type VectorResult struct {
	ID       string  // Chunk ID
	Distance float32 // Cosine distance, lower is more similar (0-2)
	Score    float32 // Raw similarity, 1 - Distance
}

// VectorStoreConfig configures the vector store.
type VectorStoreConfig struct {
	// Dimensions is the vector dimension.
	Dimensions int

	// Metric is the distance metric: "cos" (cosine), "l2" (euclidean) (default: "cos")
	Metric string

	// M is HNSW max connections per layer (default: 16)
	M int

	// EfSearch is HNSW query-time search width (default: 64)
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for the vector store.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   64,
	}
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
