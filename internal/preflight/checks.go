package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// minDiskSpaceBytes is the free-space floor for indexing (100 MB).
const minDiskSpaceBytes = 100 * 1024 * 1024

// CheckDataDir verifies the data directory exists (or can be created)
// and is writable.
func (c *Checker) CheckDataDir() Result {
	result := Result{Name: "data_dir", Required: true}

	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", c.dataDir, err)
		return result
	}

	probe := filepath.Join(c.dataDir, ".docdex-write-check")
	f, err := os.Create(probe)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not writable: %v", c.dataDir, err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = c.dataDir
	return result
}

// CheckDiskSpace verifies there is room to grow the indexes.
func (c *Checker) CheckDiskSpace() Result {
	result := Result{Name: "disk_space", Required: true}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(c.dataDir, &stat); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("could not stat filesystem: %v", err)
		result.Required = false
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free (minimum 100 MB)", formatBytes(available))
	if available < minDiskSpaceBytes {
		result.Status = StatusFail
	} else {
		result.Status = StatusPass
	}
	return result
}

// CheckEmbedder probes the embedding backend. Docdex can fall back to
// static embeddings, so this is a warning rather than a failure.
func (c *Checker) CheckEmbedder(ctx context.Context) Result {
	result := Result{Name: "embedder", Required: false}
	if c.embedder.Available(ctx) {
		result.Status = StatusPass
		result.Message = "embedding backend reachable"
	} else {
		result.Status = StatusWarn
		result.Message = "embedding backend unreachable; static fallback embeddings will be used"
	}
	return result
}

// CheckLLM probes the answer-generation backend. Search works without
// it; only 'docdex ask' needs the model.
func (c *Checker) CheckLLM(ctx context.Context) Result {
	result := Result{Name: "llm", Required: false}
	if c.llm.Available(ctx) {
		result.Status = StatusPass
		result.Message = "Ollama reachable"
	} else {
		result.Status = StatusWarn
		result.Message = "Ollama unreachable; 'docdex ask' will fail until it is started"
	}
	return result
}

// formatBytes renders a byte count for humans.
func formatBytes(bytes uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
