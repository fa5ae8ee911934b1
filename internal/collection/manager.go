package collection

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/embed"
	derrors "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/search"
)

const collectionsSubdir = "collections"

// Manager opens and caches collections under one data directory.
// Each user maps to exactly one collection; a user ID never resolves
// to another user's directory.
type Manager struct {
	dataDir   string
	embedder  embed.Embedder
	chunker   *chunk.Chunker
	searchCfg search.Config
	logger    *slog.Logger

	mu   sync.Mutex
	open map[string]*Collection
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	DataDir  string
	Embedder embed.Embedder
	Chunker  *chunk.Chunker
	Search   search.Config
	Logger   *slog.Logger
}

// NewManager creates a collection manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.DataDir == "" {
		return nil, derrors.ConfigError("data directory is required", nil)
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Manager{
		dataDir:   cfg.DataDir,
		embedder:  cfg.Embedder,
		chunker:   cfg.Chunker,
		searchCfg: cfg.Search,
		logger:    cfg.Logger,
		open:      make(map[string]*Collection),
	}, nil
}

// CollectionName maps a user ID to its collection name.
func CollectionName(userID string) string {
	return "user_" + sanitizeUserID(userID) + "_documents"
}

// sanitizeUserID keeps user IDs filesystem-safe. Anything outside
// [a-zA-Z0-9_-] becomes an underscore, which also blocks path
// traversal through crafted IDs.
func sanitizeUserID(userID string) string {
	var b strings.Builder
	b.Grow(len(userID))
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Get returns the user's collection, opening it on first use.
func (m *Manager) Get(ctx context.Context, userID string) (*Collection, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, derrors.ValidationError("user ID is required", nil)
	}
	name := CollectionName(userID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.open[name]; ok {
		return c, nil
	}

	dir := filepath.Join(m.dataDir, collectionsSubdir, name)
	c, err := open(ctx, name, dir, m.embedder, m.chunker, m.searchCfg, m.logger)
	if err != nil {
		return nil, err
	}
	m.open[name] = c
	return c, nil
}

// List returns the names of all collections present on disk, opened
// or not, in sorted order.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.dataDir, collectionsSubdir))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, derrors.StorageError("failed to list collections", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close closes every open collection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, c := range m.open {
		if err := c.Close(); err != nil {
			m.logger.Warn("failed to close collection",
				slog.String("collection", name),
				slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
		delete(m.open, name)
	}
	return firstErr
}
