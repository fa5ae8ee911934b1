// Package extract reads document files and produces plain text plus
// file metadata for indexing.
//
// Plain text and markdown are supported natively. Text converted from
// paginated formats may carry "--- Page N ---" markers, which flow
// through to the chunker for citation.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docdex/docdex/internal/errors"
)

// supportedExtensions lists the file types extraction understands.
var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".text": true,
}

// Metadata describes the source file of an extracted document.
type Metadata struct {
	Filename     string    `json:"filename"`
	FileSize     int64     `json:"file_size"`
	FileType     string    `json:"file_type"`
	ModifiedDate time.Time `json:"modified_date"`
}

// Supported reports whether the file extension can be extracted.
func Supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// SupportedList returns the supported extensions for error messages.
func SupportedList() []string {
	return []string{".txt", ".md", ".text"}
}

// File reads path and returns its text content and metadata.
func File(path string) (string, Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", Metadata{}, errors.New(errors.ErrCodeFileNotFound,
				fmt.Sprintf("file not found: %s", path), err)
		}
		return "", Metadata{}, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}

	meta := Metadata{
		Filename:     filepath.Base(path),
		FileSize:     info.Size(),
		FileType:     strings.ToLower(filepath.Ext(path)),
		ModifiedDate: info.ModTime(),
	}

	if !Supported(path) {
		return "", meta, errors.New(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported file format: %s (supported: %s)",
				meta.FileType, strings.Join(SupportedList(), ", ")), nil).
			WithDetail("filename", meta.Filename)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", meta, errors.New(errors.ErrCodeExtractionFailed,
			fmt.Sprintf("failed to read %s", meta.Filename), err)
	}

	return string(data), meta, nil
}
