package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// newOllamaTestServer fakes the /api/tags and /api/embed endpoints.
func newOllamaTestServer(t *testing.T, dims int, failures *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(OllamaModelListResponse{
				Models: []OllamaModelInfo{{Name: "nomic-embed-text:latest"}},
			})
		case "/api/embed":
			if failures != nil && failures.Load() > 0 {
				failures.Add(-1)
				http.Error(w, "model loading", http.StatusInternalServerError)
				return
			}
			var req OllamaEmbedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			count := 1
			if inputs, ok := req.Input.([]any); ok {
				count = len(inputs)
			}
			embeddings := make([][]float64, count)
			for i := range embeddings {
				vec := make([]float64, dims)
				vec[0] = 1
				embeddings[i] = vec
			}
			_ = json.NewEncoder(w).Encode(OllamaEmbedResponse{
				Model:      "nomic-embed-text:latest",
				Embeddings: embeddings,
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOllamaEmbedder_ResolvesModelAndDimensions(t *testing.T) {
	// Given: An Ollama server advertising a tagged model
	srv := newOllamaTestServer(t, 8, nil)
	defer srv.Close()

	// When: Creating the embedder with an untagged model name
	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:  srv.URL,
		Model: "nomic-embed-text",
	})

	// Then: The tagged model is resolved and dimensions detected
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = e.Close() }()

	if e.ModelName() != "nomic-embed-text:latest" {
		t.Errorf("expected resolved model name, got %s", e.ModelName())
	}
	if e.Dimensions() != 8 {
		t.Errorf("expected 8 dimensions, got %d", e.Dimensions())
	}
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	srv := newOllamaTestServer(t, 4, nil)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "some document text")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vec) != 4 {
		t.Fatalf("expected 4 dimensions, got %d", len(vec))
	}
	// Server returns a basis vector; normalization keeps it unit length
	if vec[0] != 1 {
		t.Errorf("expected normalized basis vector, got %f", vec[0])
	}
}

func TestOllamaEmbedder_EmbedBatch_PreservesOrderAndEmpties(t *testing.T) {
	// Given: A batch containing a whitespace-only text
	srv := newOllamaTestServer(t, 4, nil)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = e.Close() }()

	// When: Batch embedding
	vecs, err := e.EmbedBatch(context.Background(), []string{"first", "  ", "third"})

	// Then: Empty input yields a zero vector in place
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	if vecs[1][0] != 0 {
		t.Errorf("expected zero vector for whitespace input, got %f", vecs[1][0])
	}
	if vecs[0][0] == 0 || vecs[2][0] == 0 {
		t.Error("expected non-zero vectors for real texts")
	}
}

func TestOllamaEmbedder_RetriesTransientFailures(t *testing.T) {
	// Given: A server that fails twice before succeeding
	var failures atomic.Int32
	srv := newOllamaTestServer(t, 4, &failures)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Dimensions:      4,
		SkipHealthCheck: true,
		MaxRetries:      3,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = e.Close() }()

	failures.Store(2)

	// When: Embedding
	_, err = e.Embed(context.Background(), "retry me")

	// Then: The retries absorb the failures
	if err != nil {
		t.Fatalf("expected retries to succeed, got %v", err)
	}
}

func TestOllamaEmbedder_UnreachableHost(t *testing.T) {
	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host: "http://127.0.0.1:1",
	})
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}
}

func TestFactory_StaticProvider(t *testing.T) {
	e, err := New(context.Background(), FactoryConfig{Provider: "static"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = e.Close() }()

	if e.ModelName() != "static" {
		t.Errorf("expected static model, got %s", e.ModelName())
	}
}

func TestFactory_AutoDetectFallsBackToStatic(t *testing.T) {
	// Given: No reachable Ollama
	e, err := New(context.Background(), FactoryConfig{
		Provider: "",
		Host:     "http://127.0.0.1:1",
	})

	// Then: The static embedder serves as fallback
	if err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
	defer func() { _ = e.Close() }()
	if e.ModelName() != "static" {
		t.Errorf("expected static fallback, got %s", e.ModelName())
	}
}

func TestFactory_UnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), FactoryConfig{Provider: "openai"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
