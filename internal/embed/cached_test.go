package embed

import (
	"context"
	"sync/atomic"
	"testing"
)

// MockEmbedder implements Embedder for testing.
type MockEmbedder struct {
	EmbedFn      func(ctx context.Context, text string) ([]float32, error)
	EmbedBatchFn func(ctx context.Context, texts []string) ([][]float32, error)

	embedCalled      atomic.Int32
	embedBatchCalled atomic.Int32
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalled.Add(1)
	if m.EmbedFn != nil {
		return m.EmbedFn(ctx, text)
	}
	return []float32{1, 0, 0}, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.embedBatchCalled.Add(1)
	if m.EmbedBatchFn != nil {
		return m.EmbedBatchFn(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (m *MockEmbedder) Dimensions() int                    { return 3 }
func (m *MockEmbedder) ModelName() string                  { return "mock" }
func (m *MockEmbedder) Available(_ context.Context) bool   { return true }
func (m *MockEmbedder) Close() error                       { return nil }

func TestCachedEmbedder_CacheHitSkipsInner(t *testing.T) {
	// Given: A cached embedder
	mock := &MockEmbedder{}
	c := NewCachedEmbedder(mock, 10)

	// When: Embedding the same text twice
	if _, err := c.Embed(context.Background(), "repeated query"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := c.Embed(context.Background(), "repeated query"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Then: The inner embedder is called only once
	if got := mock.embedCalled.Load(); got != 1 {
		t.Errorf("expected 1 inner call, got %d", got)
	}
}

func TestCachedEmbedder_BatchReusesCachedEntries(t *testing.T) {
	// Given: A cache warmed with one text
	mock := &MockEmbedder{
		EmbedBatchFn: func(ctx context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{float32(len(texts[i])), 0, 0}
			}
			return out, nil
		},
	}
	c := NewCachedEmbedder(mock, 10)
	ctx := context.Background()

	if _, err := c.EmbedBatch(ctx, []string{"alpha", "beta"}); err != nil {
		t.Fatal(err)
	}

	// When: A second batch overlaps the first
	vecs, err := c.EmbedBatch(ctx, []string{"alpha", "gamma"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Then: Results align with inputs and only the miss hit the backend
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[0][0] != float32(len("alpha")) {
		t.Errorf("cached result misaligned: got %f", vecs[0][0])
	}
	if vecs[1][0] != float32(len("gamma")) {
		t.Errorf("fresh result misaligned: got %f", vecs[1][0])
	}
	if got := mock.embedBatchCalled.Load(); got != 2 {
		t.Errorf("expected 2 batch calls, got %d", got)
	}
}

func TestCachedEmbedder_FullyCachedBatchSkipsBackend(t *testing.T) {
	mock := &MockEmbedder{}
	c := NewCachedEmbedder(mock, 10)
	ctx := context.Background()

	if _, err := c.EmbedBatch(ctx, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.EmbedBatch(ctx, []string{"b", "a"}); err != nil {
		t.Fatal(err)
	}

	if got := mock.embedBatchCalled.Load(); got != 1 {
		t.Errorf("expected 1 batch call, got %d", got)
	}
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	c := NewCachedEmbedder(&MockEmbedder{}, 10)

	vecs, err := c.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vecs) != 0 {
		t.Errorf("expected empty result, got %d", len(vecs))
	}
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	c := NewCachedEmbedder(&MockEmbedder{}, 10)

	if c.Dimensions() != 3 {
		t.Errorf("expected dimensions passthrough, got %d", c.Dimensions())
	}
	if c.ModelName() != "mock" {
		t.Errorf("expected model passthrough, got %s", c.ModelName())
	}
	if !c.Available(context.Background()) {
		t.Error("expected availability passthrough")
	}
}
