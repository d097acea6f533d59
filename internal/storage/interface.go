package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a stored file does not exist
var ErrNotFound = errors.New("file not found")

// StorageClient defines the operations used to persist report bundles.
// Paths are slash-separated and relative to the storage root.
type StorageClient interface {
	// Close releases the underlying client
	Close() error

	// StoreFile writes fileData to folder/filename
	StoreFile(ctx context.Context, folder, filename string, fileData []byte) error

	// GetFile reads the file at filePath
	GetFile(ctx context.Context, filePath string) ([]byte, error)

	// FileExists checks if a file exists at filePath
	FileExists(ctx context.Context, filePath string) (bool, error)

	// ListReports returns report folders, newest first. A non-positive
	// limit returns all of them.
	ListReports(ctx context.Context, limit int) ([]string, error)
}
