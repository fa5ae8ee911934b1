package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/store"
)

// mockEmbedder returns canned vectors per text.
type mockEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, 4), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int                     { return 4 }
func (m *mockEmbedder) ModelName() string                   { return "mock" }
func (m *mockEmbedder) Available(ctx context.Context) bool  { return true }
func (m *mockEmbedder) Close() error                        { return nil }

func vec4(axis int) []float32 {
	v := make([]float32, 4)
	v[axis] = 1
	return v
}

func record(filename string, chunkIndex int, content string) store.ChunkRecord {
	return store.ChunkRecord{
		ID:         filename + "_" + string(rune('0'+chunkIndex)),
		Filename:   filename,
		Content:    content,
		ChunkIndex: chunkIndex,
		FileType:   ".txt",
		UploadDate: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

// newTestRetriever indexes three chunks: one semantically aligned with
// the query, one containing the keyword, one matching neither.
func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()

	idx, err := index.Open(context.Background(), t.TempDir(), 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	records := []store.ChunkRecord{
		record("pets.txt", 0, "Felines enjoy sleeping in warm places."),
		record("pets.txt", 1, "The cat chased the cat toy."),
		record("weather.txt", 0, "Rain is expected tomorrow afternoon."),
	}
	vectors := [][]float32{vec4(0), vec4(1), vec4(2)}
	if err := idx.Add(context.Background(), records, vectors); err != nil {
		t.Fatal(err)
	}

	embedder := &mockEmbedder{vectors: map[string][]float32{
		"where does the cat sleep": vec4(0),
		"cat":                      vec4(3),
	}}

	r, err := NewRetriever(idx, embedder, DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRetriever_SemanticMode(t *testing.T) {
	// Given: A query embedding aligned with the felines chunk
	r := newTestRetriever(t)

	// When: Retrieving semantically
	results := r.Retrieve(context.Background(), "where does the cat sleep", Options{
		Mode:  ModeSemantic,
		Limit: 2,
	})

	// Then: The aligned chunk ranks first with raw similarity near 1
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ChunkID != "pets.txt_0" {
		t.Errorf("expected pets.txt_0 first, got %s", results[0].ChunkID)
	}
	if results[0].Score < 0.99 {
		t.Errorf("expected raw similarity near 1, got %f", results[0].Score)
	}
	if results[0].Filename != "pets.txt" || results[0].Content == "" {
		t.Errorf("expected enriched result, got %+v", results[0])
	}
}

func TestRetriever_KeywordMode(t *testing.T) {
	// Given: "cat" appears literally in one chunk only
	r := newTestRetriever(t)

	// When: Retrieving by keyword
	results := r.Retrieve(context.Background(), "cat", Options{Mode: ModeKeyword})

	// Then: Only that chunk is returned, with matched terms
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ChunkID != "pets.txt_1" {
		t.Errorf("expected pets.txt_1, got %s", results[0].ChunkID)
	}
	if results[0].Score <= 0 {
		t.Errorf("expected positive BM25 score, got %f", results[0].Score)
	}
	if len(results[0].MatchedTerms) == 0 {
		t.Error("expected matched terms")
	}
}

func TestRetriever_KeywordModeEmptyCollection(t *testing.T) {
	// Given: An empty collection, which has no lexical index
	idx, err := index.Open(context.Background(), t.TempDir(), 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = idx.Close() }()

	r, err := NewRetriever(idx, &mockEmbedder{}, DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	// When: Requesting keyword mode
	results := r.Retrieve(context.Background(), "cat", Options{Mode: ModeKeyword})

	// Then: Keyword mode is strict: no results rather than a fallback
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestRetriever_HybridCombinesBothSignals(t *testing.T) {
	// Given: One chunk aligned semantically, another matching the keyword
	r := newTestRetriever(t)

	// When: Retrieving in hybrid mode
	results := r.Retrieve(context.Background(), "where does the cat sleep", Options{
		Mode:  ModeHybrid,
		Limit: 3,
	})

	// Then: The semantically aligned chunk wins under the default
	// semantic-heavy weighting, and fusion components are populated
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].ChunkID != "pets.txt_0" {
		t.Errorf("expected pets.txt_0 first, got %s", results[0].ChunkID)
	}
	if results[0].SemanticScore != 1 {
		t.Errorf("expected max normalized semantic score, got %f", results[0].SemanticScore)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Error("expected results in descending combined score order")
		}
	}
}

func TestRetriever_HybridAlphaZeroIsPureLexical(t *testing.T) {
	// Given: Alpha forced to zero
	r := newTestRetriever(t)
	alpha := 0.0

	// When: Retrieving in hybrid mode for a keyword-style query
	results := r.Retrieve(context.Background(), "cat", Options{
		Mode:  ModeHybrid,
		Limit: 3,
		Alpha: &alpha,
	})

	// Then: The keyword-bearing chunk outranks the rest
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].ChunkID != "pets.txt_1" {
		t.Errorf("expected pets.txt_1 first with alpha=0, got %s", results[0].ChunkID)
	}
	if results[0].LexicalScore != 1 {
		t.Errorf("expected max normalized lexical score, got %f", results[0].LexicalScore)
	}
}

func TestRetriever_HybridEmptyCollection(t *testing.T) {
	idx, err := index.Open(context.Background(), t.TempDir(), 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = idx.Close() }()

	r, err := NewRetriever(idx, &mockEmbedder{}, DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	results := r.Retrieve(context.Background(), "anything", Options{Mode: ModeHybrid})
	if len(results) != 0 {
		t.Fatalf("expected no results from empty collection, got %d", len(results))
	}
}

func TestRetriever_BlankQuery(t *testing.T) {
	r := newTestRetriever(t)

	results := r.Retrieve(context.Background(), "   ", Options{})
	if len(results) != 0 {
		t.Fatalf("expected no results for blank query, got %d", len(results))
	}
}

func TestRetriever_EmbedderFailureYieldsEmpty(t *testing.T) {
	// Given: An embedder that always fails
	idx, err := index.Open(context.Background(), t.TempDir(), 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = idx.Close() }()
	if err := idx.Add(context.Background(),
		[]store.ChunkRecord{record("a.txt", 0, "some content")},
		[][]float32{vec4(0)}); err != nil {
		t.Fatal(err)
	}

	r, err := NewRetriever(idx, &mockEmbedder{err: errors.New("model unavailable")}, DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	// When: Retrieving in a mode that needs embeddings
	results := r.Retrieve(context.Background(), "question", Options{Mode: ModeHybrid})

	// Then: The failure degrades to empty results, not an error
	if len(results) != 0 {
		t.Fatalf("expected empty results on embedder failure, got %d", len(results))
	}
}

func TestNewRetriever_Validation(t *testing.T) {
	idx, err := index.Open(context.Background(), t.TempDir(), 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = idx.Close() }()

	if _, err := NewRetriever(nil, &mockEmbedder{}, DefaultConfig(), nil); err == nil {
		t.Error("expected error for nil index")
	}
	if _, err := NewRetriever(idx, nil, DefaultConfig(), nil); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewRetriever(idx, &mockEmbedder{}, Config{Alpha: 1.5}, nil); err == nil {
		t.Error("expected error for alpha out of range")
	}
}

func TestFuseScores_TiesKeepCandidateOrder(t *testing.T) {
	// Given: Equally similar candidates and no lexical signal, so every
	// combined score ties
	candidates := []*store.VectorResult{
		{ID: "c.txt_0", Score: 0.5},
		{ID: "b.txt_0", Score: 0.5},
		{ID: "a.txt_0", Score: 0.5},
	}

	// When: Fusing
	results := fuseScores(candidates, map[string]float64{}, 3, DefaultAlpha)

	// Then: The vector index's order survives; nothing reorders by ID
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []string{"c.txt_0", "b.txt_0", "a.txt_0"}
	for i, id := range want {
		if results[i].ChunkID != id {
			t.Fatalf("expected order %v, got %s at %d", want, results[i].ChunkID, i)
		}
	}
}

func TestFuseScores_HigherCombinedScoreStillWins(t *testing.T) {
	// Given: One candidate with a lexical match among equally similar ones
	candidates := []*store.VectorResult{
		{ID: "b.txt_0", Score: 0.5},
		{ID: "a.txt_0", Score: 0.5},
		{ID: "c.txt_0", Score: 0.5},
	}
	lexScores := map[string]float64{"c.txt_0": 3.0}

	// When: Fusing with lexical weight in play
	results := fuseScores(candidates, lexScores, 3, 0.5)

	// Then: The lexical match leads and the tied rest keep their order
	if results[0].ChunkID != "c.txt_0" {
		t.Fatalf("expected c.txt_0 first, got %s", results[0].ChunkID)
	}
	if results[1].ChunkID != "b.txt_0" || results[2].ChunkID != "a.txt_0" {
		t.Errorf("expected tied candidates to keep order, got %s, %s",
			results[1].ChunkID, results[2].ChunkID)
	}
}

func TestFuseScores_NoSemanticCandidatesYieldsNothing(t *testing.T) {
	// Given: A lexical signal but an empty semantic candidate set
	lexScores := map[string]float64{"a.txt_0": 2.4}

	// When: Fusing
	results := fuseScores(nil, lexScores, 1, DefaultAlpha)

	// Then: Hybrid produces nothing; lexical alone never ranks it
	if len(results) != 0 {
		t.Fatalf("expected no results without semantic candidates, got %d", len(results))
	}
}

func TestRetriever_HybridTiesFollowVectorIndexOrder(t *testing.T) {
	// Given: Three chunks with identical vectors and identical content,
	// so both fusion signals are flat
	ctx := context.Background()
	idx, err := index.Open(ctx, t.TempDir(), 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = idx.Close() }()

	records := []store.ChunkRecord{
		record("a.txt", 0, "identical words here"),
		record("b.txt", 0, "identical words here"),
		record("c.txt", 0, "identical words here"),
	}
	vectors := [][]float32{vec4(0), vec4(0), vec4(0)}
	if err := idx.Add(ctx, records, vectors); err != nil {
		t.Fatal(err)
	}

	embedder := &mockEmbedder{vectors: map[string][]float32{"query": vec4(0)}}
	r, err := NewRetriever(idx, embedder, DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	// When: Retrieving in hybrid mode
	results := r.Retrieve(ctx, "query", Options{Mode: ModeHybrid, Limit: 3})

	// Then: The order matches what the vector index returned
	candidates, err := idx.Query(ctx, vec4(0), 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(candidates) {
		t.Fatalf("expected %d results, got %d", len(candidates), len(results))
	}
	for i := range candidates {
		if results[i].ChunkID != candidates[i].ID {
			t.Fatalf("position %d: expected %s from the vector index, got %s",
				i, candidates[i].ID, results[i].ChunkID)
		}
	}
}

// stalledEmbedder never answers until the context expires.
type stalledEmbedder struct {
	mockEmbedder
}

func (s *stalledEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRetriever_TimeoutYieldsEmpty(t *testing.T) {
	// Given: An indexed collection and an embedder slower than the
	// retrieval timeout
	ctx := context.Background()
	idx, err := index.Open(ctx, t.TempDir(), 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = idx.Close() }()
	if err := idx.Add(ctx,
		[]store.ChunkRecord{record("a.txt", 0, "some content")},
		[][]float32{vec4(0)}); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	r, err := NewRetriever(idx, &stalledEmbedder{}, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	// When: Retrieving
	start := time.Now()
	results := r.Retrieve(ctx, "question", Options{Mode: ModeSemantic})

	// Then: The expired retrieval degrades to empty results promptly
	if len(results) != 0 {
		t.Fatalf("expected empty results on timeout, got %d", len(results))
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("retrieval did not respect the timeout, took %s", elapsed)
	}
}
