// Package collection manages per-tenant document collections. Each
// collection owns its own index directory, serializes its mutations,
// and never sees another tenant's data.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/embed"
	derrors "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/extract"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/search"
	"github.com/docdex/docdex/internal/store"
)

// Collection is one tenant's document set. Mutations (ingest, delete,
// clear) are serialized by an internal mutex; reads run concurrently.
type Collection struct {
	name     string
	dir      string
	embedder embed.Embedder
	chunker  *chunk.Chunker
	logger   *slog.Logger

	mu        sync.Mutex
	lock      *FileLock
	idx       *index.Index
	retriever *search.Retriever
}

// IngestResult reports what one document ingestion did.
type IngestResult struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	// Replaced is true when an earlier version of the document was
	// removed before indexing the new one.
	Replaced bool `json:"replaced"`
}

// Stats summarizes a collection.
type Stats struct {
	Name           string `json:"name"`
	DocumentCount  int    `json:"document_count"`
	ChunkCount     int    `json:"chunk_count"`
	EmbeddingModel string `json:"embedding_model"`
	Dimensions     int    `json:"dimensions"`
}

// open opens the collection stored in dir, acquiring its process lock.
func open(ctx context.Context, name, dir string, embedder embed.Embedder, chunker *chunk.Chunker, searchCfg search.Config, logger *slog.Logger) (*Collection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("collection", name))

	lock := NewFileLock(dir)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, derrors.StorageError("failed to lock collection", err)
	}
	if !acquired {
		return nil, derrors.New(derrors.ErrCodeCollectionLocked,
			fmt.Sprintf("collection %s is in use by another process", name), nil).
			WithSuggestion("close the other docdex process or retry later")
	}

	idx, err := index.Open(ctx, dir, embedder.Dimensions(), logger)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	retriever, err := search.NewRetriever(idx, embedder, searchCfg, logger)
	if err != nil {
		_ = idx.Close()
		_ = lock.Unlock()
		return nil, derrors.InternalError("failed to create retriever", err)
	}

	return &Collection{
		name:      name,
		dir:       dir,
		embedder:  embedder,
		chunker:   chunker,
		logger:    logger,
		lock:      lock,
		idx:       idx,
		retriever: retriever,
	}, nil
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// AddDocument extracts, chunks, embeds, and indexes the file at path.
// Re-ingesting a filename replaces its earlier chunks entirely. The
// result is durable when AddDocument returns.
func (c *Collection) AddDocument(ctx context.Context, path string) (*IngestResult, error) {
	text, meta, err := extract.File(path)
	if err != nil {
		return nil, err
	}

	chunks := c.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, derrors.ValidationError(
			fmt.Sprintf("%s contains no indexable text", meta.Filename), nil)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("failed to embed %s", meta.Filename), err)
	}

	now := time.Now().UTC()
	records := make([]store.ChunkRecord, len(chunks))
	for i, ch := range chunks {
		records[i] = store.ChunkRecord{
			ID:         fmt.Sprintf("%s_%d", meta.Filename, ch.Index),
			Filename:   meta.Filename,
			Content:    ch.Text,
			ChunkIndex: ch.Index,
			StartChar:  ch.StartChar,
			EndChar:    ch.EndChar,
			Page:       ch.Page,
			FileType:   meta.FileType,
			FileSize:   meta.FileSize,
			UploadDate: now,
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed, err := c.idx.DeleteDocument(ctx, meta.Filename)
	if err != nil {
		return nil, err
	}
	if err := c.idx.Add(ctx, records, vectors); err != nil {
		return nil, err
	}

	c.logger.Info("document ingested",
		slog.String("filename", meta.Filename),
		slog.Int("chunks", len(records)),
		slog.Bool("replaced", removed > 0))

	return &IngestResult{
		Filename:   meta.Filename,
		ChunkCount: len(records),
		Replaced:   removed > 0,
	}, nil
}

// Search retrieves chunks for the query.
func (c *Collection) Search(ctx context.Context, query string, opts search.Options) []*search.Result {
	return c.retriever.Retrieve(ctx, query, opts)
}

// DeleteDocument removes a document and all its chunks. Returns false
// when the filename is unknown.
func (c *Collection) DeleteDocument(ctx context.Context, filename string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed, err := c.idx.DeleteDocument(ctx, filename)
	if err != nil {
		return false, err
	}
	if removed > 0 {
		c.logger.Info("document deleted",
			slog.String("filename", filename),
			slog.Int("chunks", removed))
	}
	return removed > 0, nil
}

// Clear removes every document from the collection.
func (c *Collection) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.idx.Clear(ctx); err != nil {
		return err
	}
	c.logger.Info("collection cleared")
	return nil
}

// ListDocuments returns one summary per stored document.
func (c *Collection) ListDocuments(ctx context.Context) ([]store.DocumentSummary, error) {
	return c.idx.ListDocuments(ctx)
}

// Stats returns collection counters.
func (c *Collection) Stats(ctx context.Context) (*Stats, error) {
	docs, err := c.idx.DocumentCount(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := c.idx.ChunkCount(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Name:           c.name,
		DocumentCount:  docs,
		ChunkCount:     chunks,
		EmbeddingModel: c.embedder.ModelName(),
		Dimensions:     c.embedder.Dimensions(),
	}, nil
}

// Close releases the index and the process lock.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.idx.Close()
	if unlockErr := c.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	return err
}
