// Package stats derives aggregate figures from normalized balance records
// when the backend does not supply them.
package stats

import (
	"math"
	"time"

	"reebalance/internal/models"
)

// Statistics is the locally computed summary of a set of records
type Statistics struct {
	RenewableMean       float64 `json:"renewableMean"`
	DemandMean          float64 `json:"demandMean"`
	ImportExportBalance float64 `json:"importExportBalance"`
	MaxDemand           float64 `json:"maxDemand"`
	MinDemand           float64 `json:"minDemand"`
}

// ComputeStatistics returns means and demand extremes over records.
// An empty input yields all zeros.
func ComputeStatistics(records []models.NormalizedRecord) Statistics {
	if len(records) == 0 {
		return Statistics{}
	}

	var renewable, demand, interchange float64
	maxDemand, minDemand := math.Inf(-1), math.Inf(1)
	for _, r := range records {
		renewable += r.Generation.Renewable
		demand += r.Demand.Total
		interchange += r.Interchange.Import - r.Interchange.Export
		maxDemand = math.Max(maxDemand, r.Demand.Total)
		minDemand = math.Min(minDemand, r.Demand.Total)
	}

	n := float64(len(records))
	return Statistics{
		RenewableMean:       renewable / n,
		DemandMean:          demand / n,
		ImportExportBalance: interchange / n,
		MaxDemand:           maxDemand,
		MinDemand:           minDemand,
	}
}

// CalculateRenewablePercentage is the renewable share of total generation
// across records, or 0 when nothing was generated.
func CalculateRenewablePercentage(records []models.NormalizedRecord) float64 {
	var total, renewable float64
	for _, r := range records {
		total += r.Generation.Total
		renewable += r.Generation.Renewable
	}
	if total == 0 {
		return 0
	}
	return renewable / total * 100
}

// Summarize builds a StatisticsSummary from records, used when the
// backend statistics query is unavailable. Metrics are nil for empty input.
func Summarize(records []models.NormalizedRecord, r models.DateRange, scope models.TimeScope, source models.StatisticsSource) models.StatisticsSummary {
	summary := models.StatisticsSummary{
		Count:     len(records),
		TimeScope: scope,
		Source:    source,
	}
	if !r.Start.IsZero() {
		start := r.Start
		summary.StartDate = &start
	}
	if !r.End.IsZero() {
		end := r.End
		summary.EndDate = &end
	}
	if len(records) == 0 {
		return summary
	}

	summary.Generation = summarizeMetric(records, func(r models.NormalizedRecord) float64 { return r.Generation.Total })
	summary.Demand = summarizeMetric(records, func(r models.NormalizedRecord) float64 { return r.Demand.Total })
	summary.RenewablePercentage = summarizeMetric(records, func(r models.NormalizedRecord) float64 { return r.RenewablePercentage })
	return summary
}

func summarizeMetric(records []models.NormalizedRecord, value func(models.NormalizedRecord) float64) models.MetricSummary {
	var sum float64
	maxV, minV := math.Inf(-1), math.Inf(1)
	for _, r := range records {
		v := value(r)
		sum += v
		maxV = math.Max(maxV, v)
		minV = math.Min(minV, v)
	}
	return models.MetricSummary{
		Average: models.Float(sum / float64(len(records))),
		Max:     models.Float(maxV),
		Min:     models.Float(minV),
	}
}

// FromRaw converts the backend statistics payload; nil stays nil
func FromRaw(raw *models.RawStatistics, parse func(*string) time.Time) *models.StatisticsSummary {
	if raw == nil {
		return nil
	}
	summary := &models.StatisticsSummary{
		Generation:          raw.Generation,
		Demand:              raw.Demand,
		RenewablePercentage: raw.RenewablePercentage,
		Count:               raw.Count,
		TimeScope:           models.TimeScope(raw.TimeScope),
		Source:              models.StatisticsFromBackend,
	}
	if t := parse(raw.StartDate); !t.IsZero() {
		summary.StartDate = &t
	}
	if t := parse(raw.EndDate); !t.IsZero() {
		summary.EndDate = &t
	}
	return summary
}

// BalanceRow is one flat row of the balance table and chart
type BalanceRow struct {
	Date                   time.Time `json:"date"`
	GenerationTotal        float64   `json:"generacionTotal"`
	GenerationRenewable    float64   `json:"generacionRenovable"`
	GenerationNonRenewable float64   `json:"generacionNoRenovable"`
	DemandTotal            float64   `json:"demandaTotal"`
	Imports                float64   `json:"importaciones"`
	Exports                float64   `json:"exportaciones"`
}

// TransformForChart flattens records into table/chart rows
func TransformForChart(records []models.NormalizedRecord) []BalanceRow {
	rows := make([]BalanceRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, BalanceRow{
			Date:                   r.Date,
			GenerationTotal:        r.Generation.Total,
			GenerationRenewable:    r.Generation.Renewable,
			GenerationNonRenewable: r.Generation.NonRenewable,
			DemandTotal:            r.Demand.Total,
			Imports:                r.Interchange.Import,
			Exports:                r.Interchange.Export,
		})
	}
	return rows
}
