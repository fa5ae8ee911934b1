// Package scan finds ingestable documents under a directory tree.
//
// A .docdexignore file at the scan root can exclude paths with glob
// patterns, one per line. Patterns match the path relative to the
// root and, when they contain no slash, each path component. Lines
// starting with # are comments.
package scan

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docdex/docdex/internal/extract"
)

// IgnoreFileName is the per-directory exclusion file.
const IgnoreFileName = ".docdexignore"

// Scanner walks a document tree.
type Scanner struct {
	root    string
	ignores []string
}

// New creates a scanner rooted at dir, loading its ignore file if one
// exists.
func New(dir string) (*Scanner, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	s := &Scanner{root: dir}
	if err := s.loadIgnores(filepath.Join(dir, IgnoreFileName)); err != nil {
		return nil, err
	}
	return s, nil
}

// loadIgnores reads glob patterns from path. A missing file is fine.
func (s *Scanner) loadIgnores(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Validate the glob now so a bad pattern fails loudly
		// instead of silently matching nothing.
		if _, err := filepath.Match(line, "probe"); err != nil {
			return fmt.Errorf("invalid pattern %q in %s: %w", line, path, err)
		}
		s.ignores = append(s.ignores, line)
	}
	return sc.Err()
}

// Documents returns the supported document paths under the root in
// sorted order. Hidden files, hidden directories, and ignored paths
// are skipped.
func (s *Scanner) Documents() ([]string, error) {
	var docs []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == s.root {
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if hidden(d.Name()) || s.ignored(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if hidden(d.Name()) || s.ignored(rel) || !extract.Supported(path) {
			return nil
		}
		docs = append(docs, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}

	sort.Strings(docs)
	return docs, nil
}

// ignored reports whether the root-relative path matches any pattern.
func (s *Scanner) ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range s.ignores {
		if strings.Contains(pattern, "/") {
			if ok, _ := filepath.Match(pattern, rel); ok {
				return true
			}
			continue
		}
		for _, part := range strings.Split(rel, "/") {
			if ok, _ := filepath.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
