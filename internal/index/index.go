// Package index couples a collection's vector graph, durable chunk
// records, and lexical snapshot behind one mutation API. Every mutation
// persists the vector graph and rebuilds the lexical snapshot before
// returning, so readers always see a consistent, durable state.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	derrors "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/store"
)

const (
	vectorFileName = "vectors.hnsw"
	chunkDBName    = "chunks.db"
)

// Index is the storage unit of one collection.
type Index struct {
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	vectors *store.HNSWStore
	chunks  *store.ChunkStore
	lexical *store.LexicalIndex
	closed  bool
}

// Open opens or creates the collection index stored under dir.
// dimensions is used for a fresh index; an existing index keeps the
// dimensions it was created with and rejects a mismatch.
func Open(ctx context.Context, dir string, dimensions int, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	vectorPath := filepath.Join(dir, vectorFileName)
	existingDims, err := store.ReadHNSWStoreDimensions(vectorPath)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeCorruptIndex,
			"vector index metadata is unreadable", err).
			WithSuggestion("delete the collection directory and re-ingest the documents")
	}

	if existingDims > 0 {
		if dimensions > 0 && dimensions != existingDims {
			return nil, derrors.New(derrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("index was built with %d-dimensional vectors, embedder produces %d",
					existingDims, dimensions), nil).
				WithSuggestion("re-ingest the collection with the current embedding model")
		}
		dimensions = existingDims
	}
	if dimensions <= 0 {
		return nil, derrors.New(derrors.ErrCodeInvalidInput, "embedding dimensions must be positive", nil)
	}

	vectors, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(dimensions))
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeIndexFailed, "failed to create vector store", err)
	}
	if existingDims > 0 {
		if err := vectors.Load(vectorPath); err != nil {
			return nil, derrors.New(derrors.ErrCodeCorruptIndex,
				"failed to load vector index", err).
				WithSuggestion("delete the collection directory and re-ingest the documents")
		}
	}

	chunks, err := store.OpenChunkStore(filepath.Join(dir, chunkDBName))
	if err != nil {
		return nil, derrors.StorageError("failed to open chunk store", err)
	}

	idx := &Index{
		dir:     dir,
		logger:  logger,
		vectors: vectors,
		chunks:  chunks,
	}

	// The lexical snapshot is in-memory only; rebuild it from the
	// durable chunk records on every open.
	if err := idx.rebuildLexicalLocked(ctx); err != nil {
		_ = chunks.Close()
		_ = vectors.Close()
		return nil, err
	}

	return idx, nil
}

// Dimensions returns the vector dimensionality of the index.
func (i *Index) Dimensions() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.vectors.Dimensions()
}

// Add stores chunk records with their embeddings. Records and vectors
// are positionally aligned. The chunk rows commit, the vector graph is
// persisted, and the lexical snapshot is rebuilt before Add returns.
func (i *Index) Add(ctx context.Context, records []store.ChunkRecord, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return derrors.New(derrors.ErrCodeInvalidInput,
			fmt.Sprintf("records and vectors length mismatch: %d vs %d", len(records), len(vectors)), nil)
	}
	if len(records) == 0 {
		i.logger.Debug("add called with no records, nothing to index")
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return derrors.New(derrors.ErrCodeIndexFailed, "index is closed", nil)
	}

	ids := make([]string, len(records))
	for n, r := range records {
		ids[n] = r.ID
	}

	if err := i.chunks.Add(ctx, records); err != nil {
		return derrors.StorageError("failed to store chunks", err)
	}
	if err := i.vectors.Add(ctx, ids, vectors); err != nil {
		return derrors.New(derrors.ErrCodeIndexFailed, "failed to index vectors", err)
	}

	return i.persistLocked(ctx)
}

// Query returns the k nearest chunks to the query vector, ordered by
// ascending cosine distance.
func (i *Index) Query(ctx context.Context, vector []float32, k int) ([]*store.VectorResult, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil, derrors.New(derrors.ErrCodeIndexFailed, "index is closed", nil)
	}

	results, err := i.vectors.Search(ctx, vector, k)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeSearchFailed, "vector search failed", err)
	}
	return results, nil
}

// Lexical returns the current lexical snapshot. Nil means the
// collection is empty; the snapshot's methods are nil-safe.
func (i *Index) Lexical() *store.LexicalIndex {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lexical
}

// GetChunks returns the stored records for the given chunk IDs.
func (i *Index) GetChunks(ctx context.Context, ids []string) (map[string]store.ChunkRecord, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil, derrors.New(derrors.ErrCodeIndexFailed, "index is closed", nil)
	}

	records, err := i.chunks.Get(ctx, ids)
	if err != nil {
		return nil, derrors.StorageError("failed to load chunks", err)
	}
	return records, nil
}

// DeleteDocument removes all chunks of one document. Returns the number
// of chunks removed; zero with no error when the document is unknown.
func (i *Index) DeleteDocument(ctx context.Context, filename string) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return 0, derrors.New(derrors.ErrCodeIndexFailed, "index is closed", nil)
	}

	ids, err := i.chunks.DeleteByFilename(ctx, filename)
	if err != nil {
		return 0, derrors.StorageError("failed to delete chunks", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := i.vectors.Delete(ctx, ids); err != nil {
		return 0, derrors.New(derrors.ErrCodeIndexFailed, "failed to delete vectors", err)
	}

	if err := i.persistLocked(ctx); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Clear removes every chunk and vector from the collection.
func (i *Index) Clear(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return derrors.New(derrors.ErrCodeIndexFailed, "index is closed", nil)
	}

	ids := i.vectors.AllIDs()
	if err := i.vectors.Delete(ctx, ids); err != nil {
		return derrors.New(derrors.ErrCodeIndexFailed, "failed to clear vectors", err)
	}
	if err := i.chunks.Clear(ctx); err != nil {
		return derrors.StorageError("failed to clear chunks", err)
	}

	return i.persistLocked(ctx)
}

// ListDocuments returns one summary per stored document.
func (i *Index) ListDocuments(ctx context.Context) ([]store.DocumentSummary, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil, derrors.New(derrors.ErrCodeIndexFailed, "index is closed", nil)
	}

	docs, err := i.chunks.ListDocuments(ctx)
	if err != nil {
		return nil, derrors.StorageError("failed to list documents", err)
	}
	return docs, nil
}

// DocumentCount returns the number of distinct documents.
func (i *Index) DocumentCount(ctx context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return 0, derrors.New(derrors.ErrCodeIndexFailed, "index is closed", nil)
	}

	count, err := i.chunks.DocumentCount(ctx)
	if err != nil {
		return 0, derrors.StorageError("failed to count documents", err)
	}
	return count, nil
}

// ChunkCount returns the number of stored chunks.
func (i *Index) ChunkCount(ctx context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return 0, derrors.New(derrors.ErrCodeIndexFailed, "index is closed", nil)
	}

	count, err := i.chunks.Count(ctx)
	if err != nil {
		return 0, derrors.StorageError("failed to count chunks", err)
	}
	return count, nil
}

// AllChunks returns every record in lexical build order.
func (i *Index) AllChunks(ctx context.Context) ([]store.ChunkRecord, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil, derrors.New(derrors.ErrCodeIndexFailed, "index is closed", nil)
	}

	records, err := i.chunks.All(ctx)
	if err != nil {
		return nil, derrors.StorageError("failed to load chunks", err)
	}
	return records, nil
}

// Close releases the stores. Further calls on the index fail.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true

	var firstErr error
	if err := i.lexical.Close(); err != nil {
		firstErr = err
	}
	if err := i.vectors.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := i.chunks.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// persistLocked saves the vector graph and rebuilds the lexical
// snapshot. Callers hold the write lock.
func (i *Index) persistLocked(ctx context.Context) error {
	if err := i.vectors.Save(filepath.Join(i.dir, vectorFileName)); err != nil {
		return derrors.StorageError("failed to persist vector index", err)
	}
	return i.rebuildLexicalLocked(ctx)
}

// rebuildLexicalLocked discards the current lexical snapshot and builds
// a fresh one from the full chunk set. Callers hold the write lock.
func (i *Index) rebuildLexicalLocked(ctx context.Context) error {
	records, err := i.chunks.All(ctx)
	if err != nil {
		return derrors.StorageError("failed to load chunks for lexical rebuild", err)
	}

	docs := make([]*store.Document, len(records))
	for n, r := range records {
		docs[n] = &store.Document{ID: r.ID, Content: r.Content}
	}

	rebuilt, err := store.BuildLexicalIndex(docs)
	if err != nil {
		return derrors.New(derrors.ErrCodeIndexFailed, "failed to rebuild lexical index", err)
	}

	old := i.lexical
	i.lexical = rebuilt
	if old != nil {
		if err := old.Close(); err != nil {
			i.logger.Warn("failed to close previous lexical snapshot",
				slog.String("error", err.Error()))
		}
	}

	if rebuilt == nil {
		i.logger.Debug("collection is empty, lexical index absent")
	} else {
		i.logger.Debug("lexical index rebuilt", slog.Int("chunks", rebuilt.Len()))
	}
	return nil
}
