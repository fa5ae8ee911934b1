package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// FactoryConfig selects and configures an embedding provider.
type FactoryConfig struct {
	// Provider is "ollama", "static", or "" for auto-detection.
	Provider string
	// Model is the Ollama embedding model name.
	Model string
	// Host is the Ollama API endpoint.
	Host string
	// Dimensions overrides auto-detection when non-zero.
	Dimensions int
	// BatchSize for batch embedding requests.
	BatchSize int
	// CacheSize is the LRU embedding cache capacity.
	CacheSize int
}

// New creates an embedder for the configured provider, wrapped in an
// LRU cache. With an empty provider it tries Ollama first and falls
// back to the static embedder when Ollama is unreachable.
func New(ctx context.Context, cfg FactoryConfig) (Embedder, error) {
	var inner Embedder

	switch strings.ToLower(cfg.Provider) {
	case "static":
		inner = NewStaticEmbedder()

	case "ollama":
		ollama, err := newOllama(ctx, cfg)
		if err != nil {
			return nil, err
		}
		inner = ollama

	case "":
		ollama, err := newOllama(ctx, cfg)
		if err != nil {
			slog.Warn("Ollama unavailable, falling back to static embeddings",
				slog.String("error", err.Error()))
			inner = NewStaticEmbedder()
		} else {
			inner = ollama
		}

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}

	slog.Debug("embedder ready",
		slog.String("model", inner.ModelName()),
		slog.Int("dimensions", inner.Dimensions()))

	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}

func newOllama(ctx context.Context, cfg FactoryConfig) (*OllamaEmbedder, error) {
	ollamaCfg := DefaultOllamaConfig()
	if cfg.Host != "" {
		ollamaCfg.Host = cfg.Host
	}
	if cfg.Model != "" {
		ollamaCfg.Model = cfg.Model
	}
	if cfg.Dimensions > 0 {
		ollamaCfg.Dimensions = cfg.Dimensions
	}
	if cfg.BatchSize > 0 {
		ollamaCfg.BatchSize = cfg.BatchSize
	}
	return NewOllamaEmbedder(ctx, ollamaCfg)
}
