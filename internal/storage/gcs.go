package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"reebalance/internal/logger"
)

// GCSClient handles Google Cloud Storage operations
type GCSClient struct {
	client *storage.Client
	bucket string
	log    *logger.Logger
}

// NewGCSClient creates a new GCS client
func NewGCSClient(ctx context.Context, bucketName string, opts ...option.ClientOption) (*GCSClient, error) {
	if bucketName == "" {
		return nil, errors.New("GCS bucket name is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSClient{
		client: client,
		bucket: bucketName,
		log:    logger.Component("gcs"),
	}, nil
}

// Close closes the GCS client
func (g *GCSClient) Close() error {
	return g.client.Close()
}

// StoreFile uploads a file to folder/filename
func (g *GCSClient) StoreFile(ctx context.Context, folder, filename string, fileData []byte) error {
	objectPath, err := CleanPath(path.Join(folder, filename))
	if err != nil {
		return err
	}

	g.log.Debug("Storing file to GCS", map[string]interface{}{
		"bucket": g.bucket,
		"object": objectPath,
		"bytes":  len(fileData),
	})

	writer := g.client.Bucket(g.bucket).Object(objectPath).NewWriter(ctx)
	writer.ContentType = GetContentType(filename)
	writer.CacheControl = "public, max-age=3600" // Cache for 1 hour
	writer.Metadata = map[string]string{
		"generated-at": time.Now().UTC().Format(time.RFC3339),
		"filename":     filename,
	}

	if _, err := writer.Write(fileData); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write file to GCS: %w", err)
	}

	// Close finalizes the upload
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS file upload: %w", err)
	}
	return nil
}

// GetFile retrieves a file from GCS
func (g *GCSClient) GetFile(ctx context.Context, filePath string) ([]byte, error) {
	objectPath, err := CleanPath(filePath)
	if err != nil {
		return nil, err
	}

	reader, err := g.client.Bucket(g.bucket).Object(objectPath).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%s: %w", filePath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create reader for file %s: %w", filePath, err)
	}
	defer reader.Close()

	fileData, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return fileData, nil
}

// FileExists checks if an object exists
func (g *GCSClient) FileExists(ctx context.Context, filePath string) (bool, error) {
	objectPath, err := CleanPath(filePath)
	if err != nil {
		return false, err
	}
	_, err = g.client.Bucket(g.bucket).Object(objectPath).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read attributes of %s: %w", filePath, err)
	}
	return true, nil
}

// ListReports lists report folders holding an index page, newest first
func (g *GCSClient) ListReports(ctx context.Context, limit int) ([]string, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{})

	var folders []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		if strings.HasSuffix(attrs.Name, "/"+ReportIndexFile) {
			folders = append(folders, strings.TrimSuffix(attrs.Name, "/"+ReportIndexFile))
		}
	}

	return newestFirst(folders, limit), nil
}
