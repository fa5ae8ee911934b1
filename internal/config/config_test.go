package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.Search.Alpha != 0.7 {
		t.Errorf("expected default alpha 0.7, got %f", cfg.Search.Alpha)
	}
	if cfg.Chunking.Size != 1000 {
		t.Errorf("expected default chunk size 1000, got %d", cfg.Chunking.Size)
	}
	if cfg.Chunking.Overlap != 200 {
		t.Errorf("expected default overlap 200, got %d", cfg.Chunking.Overlap)
	}
	if cfg.Search.MaxResults != 5 {
		t.Errorf("expected default max results 5, got %d", cfg.Search.MaxResults)
	}
}

func TestLoad_NoConfigFile_UsesDefaults(t *testing.T) {
	// Given: An empty directory
	dir := t.TempDir()

	// When: Loading config
	cfg, err := Load(dir)

	// Then: Defaults apply
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Embeddings.Model != "nomic-embed-text" {
		t.Errorf("expected default embedding model, got %s", cfg.Embeddings.Model)
	}
}

func TestLoad_ProjectConfig_Overrides(t *testing.T) {
	// Given: A project config overriding alpha and chunk size
	dir := t.TempDir()
	content := []byte("search:\n  alpha: 0.5\nchunking:\n  size: 600\n")
	if err := os.WriteFile(filepath.Join(dir, ".docdex.yaml"), content, 0o644); err != nil {
		t.Fatal(err)
	}

	// When: Loading config
	cfg, err := Load(dir)

	// Then: Overrides apply, other defaults survive
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Search.Alpha != 0.5 {
		t.Errorf("expected alpha 0.5, got %f", cfg.Search.Alpha)
	}
	if cfg.Chunking.Size != 600 {
		t.Errorf("expected chunk size 600, got %d", cfg.Chunking.Size)
	}
	if cfg.Chunking.Overlap != 200 {
		t.Errorf("expected default overlap preserved, got %d", cfg.Chunking.Overlap)
	}
}

func TestLoad_EnvOverrides_HighestPrecedence(t *testing.T) {
	// Given: A project config and an env override
	dir := t.TempDir()
	content := []byte("search:\n  alpha: 0.5\n")
	if err := os.WriteFile(filepath.Join(dir, ".docdex.yaml"), content, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCDEX_SEARCH_ALPHA", "0.9")

	// When: Loading config
	cfg, err := Load(dir)

	// Then: The env var wins
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Search.Alpha != 0.9 {
		t.Errorf("expected alpha 0.9 from env, got %f", cfg.Search.Alpha)
	}
}

func TestLoad_EnvAlphaZero_Allowed(t *testing.T) {
	// Pure lexical fusion is expressible only via the env var.
	dir := t.TempDir()
	t.Setenv("DOCDEX_SEARCH_ALPHA", "0")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Search.Alpha != 0 {
		t.Errorf("expected alpha 0, got %f", cfg.Search.Alpha)
	}
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".docdex.yaml"), []byte("search: ["), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate_AlphaOutOfRange(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.Alpha = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for alpha > 1")
	}
}

func TestValidate_OverlapNotSmallerThanSize(t *testing.T) {
	cfg := NewConfig()
	cfg.Chunking.Size = 100
	cfg.Chunking.Overlap = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for overlap >= size")
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := NewConfig()
	cfg.Embeddings.Provider = "openai"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	// Given: A config with a custom data dir
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Storage.DataDir = "/srv/docdex"
	path := filepath.Join(dir, "config.yaml")

	// When: Writing and reloading
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	loaded := NewConfig()
	if err := loaded.loadYAML(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// Then: The custom value survives
	if loaded.Storage.DataDir != "/srv/docdex" {
		t.Errorf("expected data dir to round-trip, got %s", loaded.Storage.DataDir)
	}
}
