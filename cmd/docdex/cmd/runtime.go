package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/collection"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/llm"
	"github.com/docdex/docdex/internal/search"
)

// runtime wires configuration into the components a command needs.
// Commands build one per invocation and close it when done.
type runtime struct {
	cfg      *config.Config
	embedder embed.Embedder
	manager  *collection.Manager
}

// newRuntime loads configuration and opens the collection manager.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.Storage.DataDir = flagDataDir
	}

	embedder, err := embed.New(ctx, embed.FactoryConfig{
		Provider:   cfg.Embeddings.Provider,
		Model:      cfg.Embeddings.Model,
		Host:       cfg.Embeddings.OllamaHost,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		CacheSize:  cfg.Embeddings.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	chunker, err := chunk.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	manager, err := collection.NewManager(collection.ManagerConfig{
		DataDir:  cfg.Storage.DataDir,
		Embedder: embedder,
		Chunker:  chunker,
		Search: search.Config{
			Alpha:      cfg.Search.Alpha,
			MaxResults: cfg.Search.MaxResults,
			Timeout:    parseDuration(cfg.Search.Timeout, 30*time.Second),
		},
	})
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	return &runtime{cfg: cfg, embedder: embedder, manager: manager}, nil
}

// collection returns the collection for the --user flag.
func (r *runtime) collection(ctx context.Context) (*collection.Collection, error) {
	return r.manager.Get(ctx, flagUser)
}

// llmClient builds the answer-generation client from configuration.
func (r *runtime) llmClient() *llm.Client {
	return llm.NewClient(llm.Config{
		Host:        r.cfg.LLM.Host,
		Model:       r.cfg.LLM.Model,
		Temperature: r.cfg.LLM.Temperature,
		Timeout:     parseDuration(r.cfg.LLM.Timeout, 120*time.Second),
	})
}

// Close releases the manager and the embedder.
func (r *runtime) Close() {
	_ = r.manager.Close()
	_ = r.embedder.Close()
}

// parseDuration parses a config duration string, falling back to def
// when the string is empty or malformed. Config validation happens at
// load time; this is the last line of defense.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// parseMode validates a --mode flag value.
func parseMode(s string) (search.Mode, error) {
	switch search.Mode(s) {
	case search.ModeSemantic, search.ModeKeyword, search.ModeHybrid:
		return search.Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be semantic, keyword, or hybrid", s)
	}
}
