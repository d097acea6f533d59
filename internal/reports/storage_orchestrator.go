package reports

import (
	"context"
	"fmt"

	"reebalance/internal/logger"
	"reebalance/internal/storage"
)

// StorageInterface defines the interface for storing a generated bundle
type StorageInterface interface {
	StoreAllFiles(ctx context.Context, files *GeneratedFiles) error
}

// StorageOrchestrator writes generated bundles through a storage client
type StorageOrchestrator struct {
	storage storage.StorageClient
	log     *logger.Logger
}

// NewStorageOrchestrator creates a new storage orchestrator
func NewStorageOrchestrator(client storage.StorageClient) *StorageOrchestrator {
	return &StorageOrchestrator{
		storage: client,
		log:     logger.Component("reports"),
	}
}

// StoreAllFiles stores every file of the bundle under its folder path.
// The index page goes last so a listed report is always complete.
func (so *StorageOrchestrator) StoreAllFiles(ctx context.Context, files *GeneratedFiles) error {
	for _, group := range []map[string][]byte{files.ChartFiles, files.JSONFiles, files.AssetFiles} {
		for _, name := range sortedKeys(group) {
			if err := so.storage.StoreFile(ctx, files.FolderPath, name, group[name]); err != nil {
				return fmt.Errorf("failed to store %s: %w", name, err)
			}
		}
	}

	if err := so.storage.StoreFile(ctx, files.FolderPath, storage.ReportIndexFile, []byte(files.HTMLContent)); err != nil {
		return fmt.Errorf("failed to store HTML report: %w", err)
	}

	so.log.Info("Report stored", map[string]interface{}{
		"id":     files.ID,
		"folder": files.FolderPath,
	})
	return nil
}
