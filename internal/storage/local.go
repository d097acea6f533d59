package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// LocalStorageClient handles local file system storage operations
type LocalStorageClient struct {
	baseDir string
}

// NewLocalStorageClient creates a new local storage client
func NewLocalStorageClient(baseDir string) (*LocalStorageClient, error) {
	if baseDir == "" {
		baseDir = "reports"
	}
	// Ensure base directory exists
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", baseDir, err)
	}

	return &LocalStorageClient{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the root directory of the store
func (l *LocalStorageClient) BaseDir() string {
	return l.baseDir
}

// Close is a no-op for local storage (implements same interface as GCSClient)
func (l *LocalStorageClient) Close() error {
	return nil
}

func (l *LocalStorageClient) resolve(p string) (string, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.baseDir, filepath.FromSlash(cleaned)), nil
}

// StoreFile writes a file under folder, creating directories as needed
func (l *LocalStorageClient) StoreFile(ctx context.Context, folder, filename string, fileData []byte) error {
	filePath, err := l.resolve(path.Join(folder, filename))
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(filePath, fileData, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}
	return nil
}

// GetFile retrieves a file from local storage
func (l *LocalStorageClient) GetFile(ctx context.Context, filePath string) ([]byte, error) {
	full, err := l.resolve(filePath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filePath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return data, nil
}

// FileExists checks if a regular file exists at filePath
func (l *LocalStorageClient) FileExists(ctx context.Context, filePath string) (bool, error) {
	full, err := l.resolve(filePath)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", filePath, err)
	}
	return !info.IsDir(), nil
}

// ListReports lists report folders holding an index page, newest first
func (l *LocalStorageClient) ListReports(ctx context.Context, limit int) ([]string, error) {
	var folders []string

	err := filepath.WalkDir(l.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || d.Name() != ReportIndexFile {
			return nil
		}
		rel, err := filepath.Rel(l.baseDir, filepath.Dir(p))
		if err != nil || rel == "." {
			return nil
		}
		folders = append(folders, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk reports directory: %w", err)
	}

	return newestFirst(folders, limit), nil
}
