// Package storage defines the data directory file-system abstraction.
package storage

import "github.com/starford/inkpact/internal/models"

// Provider is the interface for data directory file operations. Paths are
// relative to the data root and use forward slashes.
type Provider interface {
	// List returns the regular files directly inside dir, sorted by name.
	// A missing dir yields apperr.ErrNotFound.
	List(dir string) ([]models.FileMeta, error)
	// Walk returns every regular file under dir with its checksum.
	Walk(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
	// Root returns the absolute data root.
	Root() string
}
