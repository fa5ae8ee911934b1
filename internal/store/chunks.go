package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// ChunkStore durably persists chunk records for one collection in SQLite.
// It is the source of truth the lexical snapshot is rebuilt from.
type ChunkStore struct {
	db   *sql.DB
	path string
}

// DocumentSummary aggregates the stored chunks of one source document.
type DocumentSummary struct {
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size"`
	UploadDate time.Time `json:"upload_date"`
}

const chunkSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	filename    TEXT NOT NULL,
	content     TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	start_char  INTEGER NOT NULL,
	end_char    INTEGER NOT NULL,
	page        INTEGER NOT NULL DEFAULT 0,
	file_type   TEXT NOT NULL DEFAULT '',
	file_size   INTEGER NOT NULL DEFAULT 0,
	upload_date TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_filename ON chunks(filename);
`

// OpenChunkStore opens or creates the chunk database at path.
func OpenChunkStore(path string) (*ChunkStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk database: %w", err)
	}

	// WAL mode must be set via PRAGMA for modernc.org/sqlite;
	// DSN parameters are ignored by the driver.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(chunkSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &ChunkStore{db: db, path: path}, nil
}

// Add inserts records in one transaction, replacing existing IDs.
// The transaction commits before Add returns, so records are durable
// on success.
func (s *ChunkStore) Add(ctx context.Context, records []ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks
		(id, filename, content, chunk_index, start_char, end_char, page, file_type, file_size, upload_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Filename, r.Content, r.ChunkIndex, r.StartChar, r.EndChar,
			r.Page, r.FileType, r.FileSize, r.UploadDate.UTC()); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Get returns the records for the given IDs, omitting missing ones.
func (s *ChunkStore) Get(ctx context.Context, ids []string) (map[string]ChunkRecord, error) {
	result := make(map[string]ChunkRecord, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, content, chunk_index, start_char, end_char, page, file_type, file_size, upload_date
		 FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		r, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		result[r.ID] = r
	}
	return result, rows.Err()
}

// All returns every record ordered by filename then chunk index.
// This is the canonical build order for the lexical snapshot.
func (s *ChunkStore) All(ctx context.Context) ([]ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, content, chunk_index, start_char, end_char, page, file_type, file_size, upload_date
		 FROM chunks ORDER BY filename, chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []ChunkRecord
	for rows.Next() {
		r, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// IDsByFilename returns the chunk IDs of one document in chunk order.
func (s *ChunkStore) IDsByFilename(ctx context.Context, filename string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM chunks WHERE filename = ? ORDER BY chunk_index`, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes records by ID.
func (s *ChunkStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// DeleteByFilename removes all chunks of one document and returns
// their IDs so callers can evict the matching vectors.
func (s *ChunkStore) DeleteByFilename(ctx context.Context, filename string) ([]string, error) {
	ids, err := s.IDsByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE filename = ?`, filename); err != nil {
		return nil, fmt.Errorf("failed to delete chunks for %s: %w", filename, err)
	}
	return ids, nil
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// DocumentCount returns the number of distinct source documents.
func (s *ChunkStore) DocumentCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT filename) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// ListDocuments returns one summary per stored document, sorted by filename.
func (s *ChunkStore) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, COUNT(*), MAX(file_type), MAX(file_size), MAX(upload_date)
		 FROM chunks GROUP BY filename ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []DocumentSummary
	for rows.Next() {
		var d DocumentSummary
		if err := rows.Scan(&d.Filename, &d.ChunkCount, &d.FileType, &d.FileSize, &d.UploadDate); err != nil {
			return nil, fmt.Errorf("failed to scan document summary: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Clear removes all records.
func (s *ChunkStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *ChunkStore) Close() error {
	return s.db.Close()
}

// scanChunk scans one chunks row.
func scanChunk(rows *sql.Rows) (ChunkRecord, error) {
	var r ChunkRecord
	if err := rows.Scan(&r.ID, &r.Filename, &r.Content, &r.ChunkIndex, &r.StartChar,
		&r.EndChar, &r.Page, &r.FileType, &r.FileSize, &r.UploadDate); err != nil {
		return ChunkRecord{}, fmt.Errorf("failed to scan chunk: %w", err)
	}
	return r, nil
}
