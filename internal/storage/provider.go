// Package storage defines the inbox file-system abstraction.
package storage

import (
	"path/filepath"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// Result file extensions written next to (or mirroring) each document.
const (
	QueryExt = ".query"
	ErrorExt = ".error"
)

var documentExts = map[string]struct{}{
	".json": {},
	".yaml": {},
	".yml":  {},
}

// Provider is the interface for inbox file operations.
type Provider interface {
	// List returns metadata for every criteria document under dir (relative to root).
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
	// Root returns the absolute root directory.
	Root() string
}

// IsDocument reports whether name has a criteria document extension.
func IsDocument(name string) bool {
	_, ok := documentExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ResultPath maps a document path to its result file: "a/b.yaml" with
// QueryExt becomes "a/b.query".
func ResultPath(docPath, ext string) string {
	return strings.TrimSuffix(docPath, filepath.Ext(docPath)) + ext
}
