// Package preflight verifies that the environment can support docdex
// before any indexing work starts: storage, disk space, and the two
// Ollama-backed services.
package preflight

import (
	"context"
)

// Status is the outcome of one check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a degraded but workable condition.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the display form of a Status.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// Result is the outcome of a single check.
type Result struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	// Required marks checks docdex cannot run without.
	Required bool `json:"required"`
}

// Critical reports whether this is a required check that failed.
func (r Result) Critical() bool {
	return r.Required && r.Status == StatusFail
}

// Availability reports whether a backing service is reachable.
type Availability interface {
	Available(ctx context.Context) bool
}

// Checker runs environment checks for a docdex installation.
type Checker struct {
	dataDir  string
	embedder Availability
	llm      Availability
}

// NewChecker creates a checker for the given data directory. The
// embedder and llm probes may be nil, in which case their checks are
// skipped.
func NewChecker(dataDir string, embedder, llm Availability) *Checker {
	return &Checker{dataDir: dataDir, embedder: embedder, llm: llm}
}

// RunAll runs every applicable check.
func (c *Checker) RunAll(ctx context.Context) []Result {
	results := []Result{
		c.CheckDataDir(),
		c.CheckDiskSpace(),
	}
	if c.embedder != nil {
		results = append(results, c.CheckEmbedder(ctx))
	}
	if c.llm != nil {
		results = append(results, c.CheckLLM(ctx))
	}
	return results
}

// HasCriticalFailures reports whether any required check failed.
func HasCriticalFailures(results []Result) bool {
	for _, r := range results {
		if r.Critical() {
			return true
		}
	}
	return false
}
