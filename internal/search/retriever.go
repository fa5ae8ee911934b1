package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/store"
)

// Retriever executes searches against one collection's index.
type Retriever struct {
	idx      *index.Index
	embedder embed.Embedder
	config   Config
	logger   *slog.Logger
}

// NewRetriever creates a retriever over the given index and embedder.
func NewRetriever(idx *index.Index, embedder embed.Embedder, config Config, logger *slog.Logger) (*Retriever, error) {
	if idx == nil {
		return nil, fmt.Errorf("index is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if config.Alpha < 0 || config.Alpha > 1 {
		return nil, fmt.Errorf("alpha must be in [0, 1], got %f", config.Alpha)
	}
	if config.MaxResults <= 0 {
		config.MaxResults = DefaultConfig().MaxResults
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		idx:      idx,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}, nil
}

// Retrieve returns the top chunks for the query. Retrieval failures
// and timeouts degrade to empty results: callers always get a usable
// (possibly empty) slice, and the failure is logged.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) []*Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*Result{}
	}

	if opts.Mode == "" {
		opts.Mode = ModeHybrid
	}
	if opts.Limit <= 0 {
		opts.Limit = r.config.MaxResults
	}
	alpha := r.config.Alpha
	if opts.Alpha != nil {
		alpha = *opts.Alpha
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	var (
		results []*Result
		err     error
	)
	switch opts.Mode {
	case ModeSemantic:
		results, err = r.semanticSearch(ctx, query, opts.Limit)
	case ModeKeyword:
		results, err = r.keywordSearch(ctx, query, opts.Limit)
	case ModeHybrid:
		results, err = r.hybridSearch(ctx, query, opts.Limit, alpha)
	default:
		r.logger.Warn("unknown search mode, using hybrid", slog.String("mode", string(opts.Mode)))
		results, err = r.hybridSearch(ctx, query, opts.Limit, alpha)
	}

	if err != nil {
		r.logger.Warn("retrieval failed, returning no results",
			slog.String("mode", string(opts.Mode)),
			slog.String("error", err.Error()))
		return []*Result{}
	}
	return results
}

// semanticSearch ranks by raw embedding similarity (1 - cosine distance).
func (r *Retriever) semanticSearch(ctx context.Context, query string, limit int) ([]*Result, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := r.idx.Query(ctx, vector, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, &Result{
			ChunkID: c.ID,
			Score:   float64(c.Score),
		})
	}
	return r.enrich(ctx, results)
}

// keywordSearch ranks by raw BM25 score. A collection without a
// lexical index yields no results; hybrid mode is the lenient path.
func (r *Retriever) keywordSearch(ctx context.Context, query string, limit int) ([]*Result, error) {
	lex := r.idx.Lexical()
	if lex == nil {
		r.logger.Info("keyword search requested but collection has no lexical index",
			slog.String("query", query))
		return []*Result{}, nil
	}

	hits, err := lex.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, &Result{
			ChunkID:      h.DocID,
			Score:        h.Score,
			MatchedTerms: h.MatchedTerms,
		})
	}
	return r.enrich(ctx, results)
}

// hybridSearch fuses min-max normalized lexical scores over the whole
// collection with normalized similarity over 2*limit semantic
// candidates. Falls back to pure semantic search when the collection
// has no lexical index.
func (r *Retriever) hybridSearch(ctx context.Context, query string, limit int, alpha float64) ([]*Result, error) {
	lex := r.idx.Lexical()
	if lex == nil {
		r.logger.Debug("no lexical index, hybrid search degrades to semantic")
		return r.semanticSearch(ctx, query, limit)
	}

	var (
		candidates []*store.VectorResult
		lexScores  map[string]float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vector, err := r.embedder.Embed(gctx, query)
		if err != nil {
			return fmt.Errorf("failed to embed query: %w", err)
		}
		candidates, err = r.idx.Query(gctx, vector, limit*2)
		return err
	})
	g.Go(func() error {
		var err error
		lexScores, err = lex.Scores(gctx, query)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := fuseScores(candidates, lexScores, lex.Len(), alpha)
	if len(results) > limit {
		results = results[:limit]
	}
	return r.enrich(ctx, results)
}

// fuseScores combines normalized semantic and lexical signals over the
// semantic candidate set, highest combined score first. Ties keep the
// vector index's candidate order. Without semantic candidates there is
// nothing to fuse over: lexical scores alone never produce hybrid
// results.
func fuseScores(candidates []*store.VectorResult, lexScores map[string]float64, collectionSize int, alpha float64) []*Result {
	if len(candidates) == 0 {
		return []*Result{}
	}

	lexNorm := normalizeLexical(lexScores, collectionSize)
	semNorm := normalizeSemantic(candidates)

	results := make([]*Result, 0, len(candidates))
	for i, c := range candidates {
		lexScore := lexNorm[c.ID]
		semScore := semNorm[i]
		results = append(results, &Result{
			ChunkID:       c.ID,
			Score:         alpha*semScore + (1-alpha)*lexScore,
			SemanticScore: semScore,
			LexicalScore:  lexScore,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// normalizeLexical min-max normalizes BM25 scores over the full
// collection. Chunks absent from the score map count as zero, so the
// minimum is zero unless every chunk matched. A flat distribution
// normalizes to all zeros.
func normalizeLexical(scores map[string]float64, collectionSize int) map[string]float64 {
	if len(scores) == 0 {
		return map[string]float64{}
	}

	first := true
	var minScore, maxScore float64
	for _, s := range scores {
		if first {
			minScore, maxScore = s, s
			first = false
			continue
		}
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}
	if len(scores) < collectionSize {
		// Non-matching chunks score zero.
		if minScore > 0 {
			minScore = 0
		}
	}

	norm := make(map[string]float64, len(scores))
	if maxScore <= minScore {
		return norm
	}
	for id, s := range scores {
		norm[id] = (s - minScore) / (maxScore - minScore)
	}
	return norm
}

// normalizeSemantic min-max normalizes similarity over the candidate
// set, positionally aligned with candidates. A flat distribution
// normalizes to all ones: equally similar candidates all count fully.
func normalizeSemantic(candidates []*store.VectorResult) []float64 {
	norm := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return norm
	}

	minScore := float64(candidates[0].Score)
	maxScore := minScore
	for _, c := range candidates[1:] {
		s := float64(c.Score)
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	if maxScore <= minScore {
		for i := range norm {
			norm[i] = 1
		}
		return norm
	}
	for i, c := range candidates {
		norm[i] = (float64(c.Score) - minScore) / (maxScore - minScore)
	}
	return norm
}

// enrich fills chunk metadata and content from the durable store.
// Results whose chunks have vanished are dropped.
func (r *Retriever) enrich(ctx context.Context, results []*Result) ([]*Result, error) {
	if len(results) == 0 {
		return []*Result{}, nil
	}

	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.ChunkID
	}

	records, err := r.idx.GetChunks(ctx, ids)
	if err != nil {
		return nil, err
	}

	enriched := make([]*Result, 0, len(results))
	for _, res := range results {
		rec, ok := records[res.ChunkID]
		if !ok {
			r.logger.Debug("dropping result with missing chunk", slog.String("chunk_id", res.ChunkID))
			continue
		}
		res.Filename = rec.Filename
		res.ChunkIndex = rec.ChunkIndex
		res.Page = rec.Page
		res.Content = rec.Content
		enriched = append(enriched, res)
	}
	return enriched, nil
}
