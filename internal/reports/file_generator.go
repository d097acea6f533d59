package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reebalance/internal/balance"
	"reebalance/internal/charts"
	"reebalance/internal/export"
	"reebalance/internal/logger"
	"reebalance/internal/models"
	"reebalance/internal/stats"
	"reebalance/internal/storage"
)

// ReportDataFile holds the JSON snapshot a report was rendered from
const ReportDataFile = "report.json"

// Input is everything a page or report bundle is rendered from
type Input struct {
	Query  balance.Query
	View   models.ViewModel
	Latest *models.LatestView
	Shares []models.GenerationShare
}

// ChartDataset prepares the chart inputs of a view
func ChartDataset(in Input, align balance.Alignment, loc *time.Location) charts.Dataset {
	return charts.Dataset{
		Points:     balance.ChartPoints(in.View.Data, in.View.TimeSeries, align, loc),
		Records:    in.View.Data,
		Shares:     in.Shares,
		Statistics: in.View.Statistics,
	}
}

// GeneratedFiles contains all files generated for a report
type GeneratedFiles struct {
	ID          string
	FolderPath  string
	GeneratedAt time.Time
	HTMLContent string
	ChartFiles  map[string][]byte
	JSONFiles   map[string][]byte
	AssetFiles  map[string][]byte // CSV export
	Records     int
}

// Names lists every file name of the bundle, index page last
func (f *GeneratedFiles) Names() []string {
	var names []string
	for _, group := range []map[string][]byte{f.ChartFiles, f.JSONFiles, f.AssetFiles} {
		for name := range group {
			names = append(names, name)
		}
	}
	return append(sortedCopy(names), storage.ReportIndexFile)
}

// reportSnapshot is written as report.json
type reportSnapshot struct {
	ID           string                   `json:"id"`
	GeneratedAt  time.Time                `json:"generatedAt"`
	Query        balance.Query            `json:"query"`
	View         models.ViewModel         `json:"view"`
	Latest       *models.LatestView       `json:"latest,omitempty"`
	Distribution []models.GenerationShare `json:"distribution"`
	// page-level mix, technologies missing from a record count as zero
	PageMix []models.GenerationShare `json:"pageMix"`
	Rows    []stats.BalanceRow       `json:"rows"`
}

// FileGenerator handles generation of all report files
type FileGenerator struct {
	chartGen    *charts.ChartGenerator
	htmlBuilder *HTMLBuilder
	loc         *time.Location
	alignment   balance.Alignment
	log         *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewFileGenerator creates a file generator labelling dates in loc
func NewFileGenerator(htmlBuilder *HTMLBuilder, loc *time.Location, alignment balance.Alignment) *FileGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &FileGenerator{
		chartGen:    charts.NewChartGenerator(loc),
		htmlBuilder: htmlBuilder,
		loc:         loc,
		alignment:   alignment,
		log:         logger.Component("reports"),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// GenerateAllFiles creates all report files (HTML, charts, JSON, CSV)
func (fg *FileGenerator) GenerateAllFiles(in Input) (*GeneratedFiles, error) {
	generatedAt := fg.now().UTC()
	files := &GeneratedFiles{
		ID:          fg.newID(),
		FolderPath:  storage.GenerateReportFolderPath(generatedAt),
		GeneratedAt: generatedAt,
		JSONFiles:   make(map[string][]byte),
		AssetFiles:  make(map[string][]byte),
		Records:     len(in.View.Data),
	}

	// 1. Static charts
	files.ChartFiles = fg.chartGen.GenerateCharts(ChartDataset(in, fg.alignment, fg.loc))
	var images []ChartImage
	for _, name := range charts.Names {
		filename := charts.PNGFilename(name)
		if _, ok := files.ChartFiles[filename]; ok {
			images = append(images, ChartImage{Title: charts.Title(name), Src: filename})
		}
	}

	// 2. CSV export of the current page
	csvData, err := export.CSV(in.View.Data, fg.loc)
	switch {
	case errors.Is(err, export.ErrNoData):
		fg.log.Debug("No records to export", nil)
	case err != nil:
		return nil, fmt.Errorf("failed to export CSV: %w", err)
	default:
		files.AssetFiles[export.Filename(in.Query.Range, fg.loc)] = csvData
	}

	// 3. View model snapshot
	shares := in.Shares
	if shares == nil {
		shares = []models.GenerationShare{}
	}
	snapshot, err := json.MarshalIndent(reportSnapshot{
		ID:           files.ID,
		GeneratedAt:  generatedAt,
		Query:        in.Query,
		View:         in.View,
		Latest:       in.Latest,
		Distribution: shares,
		PageMix:      stats.AggregateGenerationByType(in.View.Data),
		Rows:         stats.TransformForChart(in.View.Data),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report data: %w", err)
	}
	files.JSONFiles[ReportDataFile] = snapshot

	// 4. HTML page
	page, err := fg.htmlBuilder.BuildReport(in, images, generatedAt, fg.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}
	files.HTMLContent = page

	fg.log.Debug("Generated report files", map[string]interface{}{
		"id":      files.ID,
		"charts":  len(files.ChartFiles),
		"records": files.Records,
		"bytes":   len(page),
	})
	return files, nil
}
