package embed

import (
	"context"
	"math"
	"testing"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	// Given: A static embedder
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	// When: Embedding the same text twice
	a, err := e.Embed(context.Background(), "the cat sat on the mat")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, err := e.Embed(context.Background(), "the cat sat on the mat")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Then: Vectors are identical
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestStaticEmbedder_UnitLength(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "normalization check")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-5 {
		t.Errorf("expected unit vector, got magnitude %f", math.Sqrt(sum))
	}
}

func TestStaticEmbedder_EmptyText_ZeroVector(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "   ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vec) != StaticDimensions {
		t.Fatalf("expected %d dimensions, got %d", StaticDimensions, len(vec))
	}
	for _, v := range vec {
		if v != 0 {
			t.Fatal("expected zero vector for whitespace input")
		}
	}
}

func TestStaticEmbedder_SimilarTextsCloserThanUnrelated(t *testing.T) {
	// Given: Two related texts and one unrelated
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()
	ctx := context.Background()

	cat1, _ := e.Embed(ctx, "the cat sat on the mat")
	cat2, _ := e.Embed(ctx, "a cat sat on a mat")
	other, _ := e.Embed(ctx, "quarterly revenue projections increased")

	// Then: The related pair has higher cosine similarity
	if cosine(cat1, cat2) <= cosine(cat1, other) {
		t.Errorf("expected related texts to be more similar: related=%f unrelated=%f",
			cosine(cat1, cat2), cosine(cat1, other))
	}
}

func TestStaticEmbedder_EmbedBatch(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
}

func TestStaticEmbedder_ClosedReturnsError(t *testing.T) {
	e := NewStaticEmbedder()
	_ = e.Close()

	if _, err := e.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error after close")
	}
	if e.Available(context.Background()) {
		t.Fatal("expected unavailable after close")
	}
}

// cosine computes cosine similarity between two unit-length vectors.
func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
