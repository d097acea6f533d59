package balance

import (
	"time"

	"reebalance/internal/dates"
	"reebalance/internal/display"
	"reebalance/internal/models"
	"reebalance/internal/stats"
)

// DateUnavailable is shown when a snapshot timestamp cannot be parsed
const DateUnavailable = "Fecha no disponible"

// Normalize maps a raw record into the fixed internal shape. Missing
// numbers become 0; peak and valley come from the statistics summary.
func Normalize(raw models.RawRecord, summary *models.StatisticsSummary) models.NormalizedRecord {
	total := models.ValueOr(raw.TotalGeneration, 0)
	pct := models.ValueOr(raw.RenewablePercentage, 0)
	balance := models.ValueOr(raw.Balance, 0)

	rec := models.NormalizedRecord{
		ID:                  raw.ID,
		Date:                dates.ParseOptional(raw.Timestamp),
		RenewablePercentage: pct,
	}

	rec.Generation.Total = total
	rec.Generation.Renewable = total * (pct / 100)
	rec.Generation.NonRenewable = total - rec.Generation.Renewable
	rec.Generation.Distribution = make([]models.GenerationEntry, len(raw.Generation))
	copy(rec.Generation.Distribution, raw.Generation)

	rec.Demand.Total = models.ValueOr(raw.TotalDemand, 0)
	if summary != nil {
		rec.Demand.Peak = copyFloat(summary.Demand.Max)
		rec.Demand.Valley = copyFloat(summary.Demand.Min)
	}

	rec.Interchange.Balance = balance
	if balance > 0 {
		rec.Interchange.Import = balance
	} else if balance < 0 {
		rec.Interchange.Export = -balance
	}
	return rec
}

// NormalizeAll normalizes a page of records against one summary
func NormalizeAll(items []models.RawRecord, summary *models.StatisticsSummary) []models.NormalizedRecord {
	out := make([]models.NormalizedRecord, 0, len(items))
	for _, item := range items {
		out = append(out, Normalize(item, summary))
	}
	return out
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// NormalizeLatest applies display defaults to the latest snapshot
func NormalizeLatest(raw *models.LatestBalance, loc *time.Location) *models.LatestView {
	if raw == nil {
		return nil
	}
	balance := models.ValueOr(raw.Balance, 0)
	view := &models.LatestView{
		ID:                  raw.ID,
		Timestamp:           dates.ParseOptional(raw.Timestamp),
		TimeScope:           models.StringOr(raw.TimeScope, ""),
		TotalGeneration:     models.ValueOr(raw.TotalGeneration, 0),
		TotalDemand:         models.ValueOr(raw.TotalDemand, 0),
		RenewablePercentage: models.ValueOr(raw.RenewablePercentage, 0),
		Balance:             balance,
		IsNetImporter:       display.IsNetImporter(balance),
		BalanceText:         display.BalanceText(balance),
		Generation:          make([]models.TypedValue, 0, len(raw.Generation)),
		Demand:              make([]models.TypedValue, 0, len(raw.Demand)),
	}

	view.FormattedDate = DateUnavailable
	if !view.Timestamp.IsZero() {
		view.FormattedDate = dates.FormatDisplayWithTime(view.Timestamp, loc)
	}

	for _, g := range raw.Generation {
		view.Generation = append(view.Generation, models.TypedValue{
			Name:       models.StringOr(g.Type, stats.UnknownType),
			Value:      models.ValueOr(g.Value, 0),
			Percentage: models.ValueOr(g.Percentage, 0),
			Color:      models.StringOr(g.Color, stats.DefaultColor),
		})
	}
	for _, d := range raw.Demand {
		view.Demand = append(view.Demand, models.TypedValue{
			Name:       models.StringOr(d.Type, stats.UnknownType),
			Value:      models.ValueOr(d.Value, 0),
			Percentage: models.ValueOr(d.Percentage, 0),
			Color:      stats.DefaultColor,
		})
	}
	return view
}
