package collection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/embed"
	derrors "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/search"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	chunker, err := chunk.NewChunker(200, 40)
	if err != nil {
		t.Fatal(err)
	}

	embedder := embed.NewStaticEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })

	m, err := NewManager(ManagerConfig{
		DataDir:  t.TempDir(),
		Embedder: embedder,
		Chunker:  chunker,
		Search:   search.DefaultConfig(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCollectionName(t *testing.T) {
	if got := CollectionName("alice"); got != "user_alice_documents" {
		t.Errorf("unexpected name: %s", got)
	}
	// Path traversal attempts collapse to safe characters
	if got := CollectionName("../bob"); got != "user____bob_documents" {
		t.Errorf("unexpected sanitized name: %s", got)
	}
}

func TestManager_GetIsolatesUsers(t *testing.T) {
	// Given: Two users, one of whom ingested a document
	m := newTestManager(t)
	ctx := context.Background()
	docs := t.TempDir()

	alice, err := m.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	bob, err := m.Get(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}

	path := writeDoc(t, docs, "notes.txt", "The quarterly report covers revenue growth.")
	if _, err := alice.AddDocument(ctx, path); err != nil {
		t.Fatal(err)
	}

	// Then: The other user's collection stays empty
	aliceStats, err := alice.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if aliceStats.DocumentCount != 1 {
		t.Errorf("expected 1 document for alice, got %d", aliceStats.DocumentCount)
	}
	bobStats, err := bob.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if bobStats.DocumentCount != 0 {
		t.Errorf("expected 0 documents for bob, got %d", bobStats.DocumentCount)
	}
	if len(bob.Search(ctx, "revenue", search.Options{Mode: search.ModeKeyword})) != 0 {
		t.Error("expected no results in bob's collection")
	}

	// And: Repeated Get returns the same open collection
	again, err := m.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if again != alice {
		t.Error("expected cached collection instance")
	}
}

func TestCollection_IngestAndSearch(t *testing.T) {
	// Given: An ingested document
	m := newTestManager(t)
	ctx := context.Background()
	docs := t.TempDir()

	c, err := m.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}

	path := writeDoc(t, docs, "report.txt",
		"The quarterly report covers revenue growth.\n\nHeadcount stayed flat across all teams.")
	result, err := c.AddDocument(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if result.Filename != "report.txt" {
		t.Errorf("unexpected filename: %s", result.Filename)
	}
	if result.ChunkCount == 0 {
		t.Fatal("expected at least one chunk")
	}
	if result.Replaced {
		t.Error("expected first ingest not to replace")
	}

	// When: Searching by keyword
	hits := c.Search(ctx, "revenue", search.Options{Mode: search.ModeKeyword})

	// Then: The chunk is found with its canonical ID
	if len(hits) == 0 {
		t.Fatal("expected keyword hits")
	}
	if hits[0].ChunkID != "report.txt_0" {
		t.Errorf("expected report.txt_0, got %s", hits[0].ChunkID)
	}
	if hits[0].Filename != "report.txt" {
		t.Errorf("expected enriched filename, got %s", hits[0].Filename)
	}
}

func TestCollection_ReingestReplaces(t *testing.T) {
	// Given: A document ingested twice with different content
	m := newTestManager(t)
	ctx := context.Background()
	docs := t.TempDir()

	c, err := m.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}

	path := writeDoc(t, docs, "notes.txt", "Original content about databases.")
	if _, err := c.AddDocument(ctx, path); err != nil {
		t.Fatal(err)
	}

	path = writeDoc(t, docs, "notes.txt", "Rewritten content about compilers.")
	result, err := c.AddDocument(ctx, path)
	if err != nil {
		t.Fatal(err)
	}

	// Then: The second ingest reports the replacement and the old
	// content is gone
	if !result.Replaced {
		t.Error("expected replacement to be reported")
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.DocumentCount != 1 {
		t.Errorf("expected 1 document, got %d", stats.DocumentCount)
	}
	if hits := c.Search(ctx, "databases", search.Options{Mode: search.ModeKeyword}); len(hits) != 0 {
		t.Errorf("expected old content gone, got %d hits", len(hits))
	}
	if hits := c.Search(ctx, "compilers", search.Options{Mode: search.ModeKeyword}); len(hits) == 0 {
		t.Error("expected new content searchable")
	}
}

func TestCollection_DeleteDocument(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	docs := t.TempDir()

	c, err := m.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	path := writeDoc(t, docs, "notes.txt", "Some indexed content here.")
	if _, err := c.AddDocument(ctx, path); err != nil {
		t.Fatal(err)
	}

	deleted, err := c.DeleteDocument(ctx, "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !deleted {
		t.Error("expected deletion to be reported")
	}

	deleted, err = c.DeleteDocument(ctx, "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if deleted {
		t.Error("expected second deletion to be a no-op")
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.DocumentCount != 0 || stats.ChunkCount != 0 {
		t.Errorf("expected empty collection, got %+v", stats)
	}
}

func TestCollection_ClearAndList(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	docs := t.TempDir()

	c, err := m.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddDocument(ctx, writeDoc(t, docs, "a.txt", "alpha document content")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddDocument(ctx, writeDoc(t, docs, "b.txt", "beta document content")); err != nil {
		t.Fatal(err)
	}

	listed, err := c.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 2 || listed[0].Filename != "a.txt" || listed[1].Filename != "b.txt" {
		t.Fatalf("unexpected document list: %+v", listed)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	listed, err = c.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 0 {
		t.Errorf("expected no documents after clear, got %d", len(listed))
	}
}

func TestCollection_RejectsUnsupportedFile(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	c, err := m.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	path := writeDoc(t, t.TempDir(), "binary.bin", "\x00\x01")

	_, err = c.AddDocument(ctx, path)
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	var de *derrors.DocdexError
	if !errors.As(err, &de) || de.Code != derrors.ErrCodeUnsupportedFormat {
		t.Errorf("expected %s, got %v", derrors.ErrCodeUnsupportedFormat, err)
	}
}

func TestManager_GetRequiresUserID(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Get(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank user ID")
	}
}

func TestManager_ListCollections(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	names, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no collections initially, got %v", names)
	}

	if _, err := m.Get(ctx, "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, "alice"); err != nil {
		t.Fatal(err)
	}

	names, err = m.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"user_alice_documents", "user_bob_documents"}
	if len(names) != 2 || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("expected %v, got %v", want, names)
	}
}
