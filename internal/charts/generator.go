package charts

import (
	"errors"
	"fmt"
	"time"

	"reebalance/internal/logger"
	"reebalance/internal/models"
)

// Chart names used in URLs and report file names
const (
	ChartBalance      = "balance"
	ChartDemand       = "demand"
	ChartRenewable    = "renewable"
	ChartDistribution = "distribution"
)

// Names lists every chart in display order
var Names = []string{ChartBalance, ChartDemand, ChartRenewable, ChartDistribution}

var titles = map[string]string{
	ChartBalance:      "Generación y demanda",
	ChartDemand:       "Tendencia de la demanda",
	ChartRenewable:    "Generación renovable y no renovable",
	ChartDistribution: "Distribución de la generación",
}

// Title returns the display title of a chart
func Title(name string) string {
	return titles[name]
}

var (
	// ErrUnknownChart is returned for a chart name outside Names
	ErrUnknownChart = errors.New("unknown chart")
	// ErrNotEnoughData is returned when the dataset cannot produce the chart
	ErrNotEnoughData = errors.New("not enough data for chart")
)

// Dataset is everything the charts are drawn from
type Dataset struct {
	Points     []models.ChartPoint
	Records    []models.NormalizedRecord
	Shares     []models.GenerationShare
	Statistics *models.StatisticsSummary
}

// ChartGenerator renders balance charts as PNG images and HTML pages
type ChartGenerator struct {
	loc *time.Location
}

// NewChartGenerator creates a chart generator labelling dates in loc
func NewChartGenerator(loc *time.Location) *ChartGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &ChartGenerator{loc: loc}
}

// PNGFilename is the file name of a chart image inside a report
func PNGFilename(name string) string {
	return name + "_chart.png"
}

// RenderPNG draws one chart as a PNG image
func (cg *ChartGenerator) RenderPNG(name string, ds Dataset) ([]byte, error) {
	switch name {
	case ChartBalance:
		return cg.balancePNG(ds.Points)
	case ChartDemand:
		return cg.demandPNG(ds.Records)
	case ChartRenewable:
		return cg.renewablePNG(ds.Records)
	case ChartDistribution:
		return cg.distributionPNG(ds.Shares)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownChart, name)
	}
}

// GenerateCharts renders every chart the dataset supports, keyed by file name.
// Charts without enough data are skipped.
func (cg *ChartGenerator) GenerateCharts(ds Dataset) map[string][]byte {
	files := make(map[string][]byte)
	for _, name := range Names {
		img, err := cg.RenderPNG(name, ds)
		if err != nil {
			logger.Debug("Skipping chart", map[string]interface{}{"chart": name, "reason": err.Error()})
			continue
		}
		files[PNGFilename(name)] = img
	}
	return files
}
