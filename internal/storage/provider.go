// Package storage defines the media library file-system abstraction.
package storage

import (
	"io"

	"github.com/starford/camroll/internal/models"
)

// Provider is the interface for library file operations.
type Provider interface {
	// List returns metadata for every media file under dir (relative to the library root).
	List(dir string) ([]models.MediaFile, error)
	// Stat returns metadata for the single file at path.
	Stat(path string) (models.MediaFile, error)
	// Open opens the file at path for reading.
	Open(path string) (File, error)
	// Write atomically stores the content of r at path and returns the bytes written.
	Write(path string, r io.Reader) (int64, error)
	// Delete removes the file at path.
	Delete(path string) error
	// Root returns the absolute library root.
	Root() string
}

// File is an open library file.
type File interface {
	io.ReadSeekCloser
}
