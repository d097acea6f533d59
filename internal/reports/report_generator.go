package reports

import (
	"context"
	"fmt"
	"time"

	"reebalance/internal/logger"
	"reebalance/internal/metrics"
)

// Result describes a stored report
type Result struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	ID         string   `json:"id"`
	ReportURL  string   `json:"reportURL"`
	FolderPath string   `json:"folderPath"`
	Timestamp  string   `json:"timestamp"`
	Records    int      `json:"records"`
	Files      []string `json:"files"`
}

// ReportGenerator runs the generate-then-store pipeline
type ReportGenerator struct {
	files   *FileGenerator
	store   StorageInterface
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewReportGenerator creates a report generator
func NewReportGenerator(files *FileGenerator, store StorageInterface, m *metrics.Metrics) *ReportGenerator {
	return &ReportGenerator{
		files:   files,
		store:   store,
		metrics: m,
		log:     logger.Component("reports"),
	}
}

// GenerateCompleteReport renders a bundle for in and stores it
func (rg *ReportGenerator) GenerateCompleteReport(ctx context.Context, in Input) (result *Result, err error) {
	defer func() { rg.metrics.ReportGenerated(err) }()

	rg.log.Info("Starting report generation", map[string]interface{}{"records": len(in.View.Data)})

	files, err := rg.files.GenerateAllFiles(in)
	if err != nil {
		return nil, fmt.Errorf("failed to generate files: %w", err)
	}
	if err := rg.store.StoreAllFiles(ctx, files); err != nil {
		return nil, fmt.Errorf("failed to store files: %w", err)
	}

	return &Result{
		Status:     "success",
		Message:    "Report generated successfully",
		ID:         files.ID,
		ReportURL:  "/files/" + files.FolderPath + "/index.html",
		FolderPath: files.FolderPath,
		Timestamp:  files.GeneratedAt.Format(time.RFC3339),
		Records:    files.Records,
		Files:      files.Names(),
	}, nil
}
