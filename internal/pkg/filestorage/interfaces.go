package filestorage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the configured limit
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedType is returned for extensions outside the allow list
	ErrUnsupportedType = errors.New("unsupported file type")
)

// StoredFile describes a file after it was written to storage
type StoredFile struct {
	Path     string // relative to the storage root, used for deletion
	URL      string // public URL served by the API
	Filename string // original client file name
	Size     int64
	MimeType string
}

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// Save writes r under subDir with a generated name keeping ext
	Save(ctx context.Context, r io.Reader, originalName, subDir string) (*StoredFile, error)

	// Delete removes a file by its relative path. Missing files are not an error.
	Delete(path string) error
}
