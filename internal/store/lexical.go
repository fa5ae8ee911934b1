package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
)

// docAnalyzerName is our lowercase whitespace analyzer for document text.
const docAnalyzerName = "doc_analyzer"

// LexicalIndex is an immutable in-memory BM25 snapshot over a
// collection's chunks. Any collection mutation discards the snapshot
// and builds a fresh one from the full chunk set, so the index never
// drifts from the durable store. Nil is a valid receiver for Search
// and Len, representing the absent index of an empty collection.
type LexicalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	count  int
	closed bool
}

// bleveDocument is the document structure for bleve indexing.
type bleveDocument struct {
	Content string `json:"content"`
}

// createDocMapping creates the bleve index mapping with the
// whitespace+lowercase analyzer.
func createDocMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(docAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": whitespace.Name,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = docAnalyzerName

	return indexMapping, nil
}

// BuildLexicalIndex builds a fresh snapshot over docs.
// Returns nil for an empty document set: an empty collection has no
// lexical index.
func BuildLexicalIndex(docs []*Document) (*LexicalIndex, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	indexMapping, err := createDocMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory index: %w", err)
	}

	batch := idx.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, bleveDocument{Content: doc.Content}); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
	}

	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to execute batch: %w", err)
	}

	return &LexicalIndex{
		index: idx,
		count: len(docs),
	}, nil
}

// Len returns the number of indexed documents. Safe on nil.
func (l *LexicalIndex) Len() int {
	if l == nil {
		return 0
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Search returns BM25 scores for documents matching the query, in
// descending score order, capped at limit (0 means all documents).
// Documents that do not match any query term are absent; callers
// treat absence as a zero score. Safe on nil: returns no results.
func (l *LexicalIndex) Search(ctx context.Context, queryStr string, limit int) ([]*LexicalResult, error) {
	if l == nil {
		return []*LexicalResult{}, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if strings.TrimSpace(queryStr) == "" {
		return []*LexicalResult{}, nil
	}

	if limit <= 0 || limit > l.count {
		limit = l.count
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit
	searchRequest.IncludeLocations = true // For matched terms

	result, err := l.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]*LexicalResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, &LexicalResult{
			DocID:        hit.ID,
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}

	return results, nil
}

// Scores returns the BM25 score for every indexed document as a map,
// missing entries meaning zero. Used by hybrid fusion, which
// normalizes over the full document set. Safe on nil.
func (l *LexicalIndex) Scores(ctx context.Context, queryStr string) (map[string]float64, error) {
	results, err := l.Search(ctx, queryStr, 0)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.DocID] = r.Score
	}
	return scores, nil
}

// AllIDs returns all document IDs in the snapshot, sorted. Safe on nil.
func (l *LexicalIndex) AllIDs() ([]string, error) {
	if l == nil {
		return []string{}, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, fmt.Errorf("index is closed")
	}

	query := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequest(query)
	req.Size = l.count
	req.Fields = []string{} // Only need IDs

	result, err := l.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search for all IDs: %w", err)
	}

	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	sort.Strings(ids)

	return ids, nil
}

// Close releases the underlying bleve index. Safe on nil.
func (l *LexicalIndex) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.index.Close()
}

// extractMatchedTerms collects the analyzed terms that matched in the
// content field.
func extractMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field == "content" {
			for term := range locations {
				terms[term] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(terms))
	for term := range terms {
		result = append(result, term)
	}
	sort.Strings(result)
	return result
}
