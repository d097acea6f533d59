package balance

import (
	"fmt"
	"sort"
	"time"

	"reebalance/internal/dates"
	"reebalance/internal/models"
)

// Alignment selects how the three indicator series are combined for charts
type Alignment string

const (
	// AlignTimestamp joins points on equal timestamps
	AlignTimestamp Alignment = "timestamp"
	// AlignPositional zips points by index, as the original dashboard did
	AlignPositional Alignment = "positional"
)

// ToPoints converts raw samples, keeping their order
func ToPoints(raw []models.RawPoint) []models.TimeSeriesPoint {
	out := make([]models.TimeSeriesPoint, 0, len(raw))
	for _, p := range raw {
		out = append(out, models.TimeSeriesPoint{
			Timestamp: dates.ParseOptional(p.Timestamp),
			Value:     copyFloat(p.Value),
		})
	}
	return out
}

func pointLabel(ts time.Time, index int, loc *time.Location) string {
	if ts.IsZero() {
		return fmt.Sprintf("Punto %d", index+1)
	}
	return dates.FormatChartLabel(ts, loc)
}

// ZipSeries pairs the i-th point of each series, driven by the
// generation series. Missing demand/renewable points read as 0.
func ZipSeries(ts models.TimeSeries, loc *time.Location) []models.ChartPoint {
	out := make([]models.ChartPoint, 0, len(ts.Generation))
	for i, g := range ts.Generation {
		p := models.ChartPoint{
			Label:      pointLabel(g.Timestamp, i, loc),
			Timestamp:  g.Timestamp,
			Generation: models.ValueOr(g.Value, 0),
		}
		if i < len(ts.Demand) {
			p.Demand = models.ValueOr(ts.Demand[i].Value, 0)
		}
		if i < len(ts.Renewable) {
			p.Renewable = models.ValueOr(ts.Renewable[i].Value, 0)
		}
		out = append(out, p)
	}
	return out
}

// JoinSeries outer-joins the three series on timestamp, oldest first.
// Points without a timestamp cannot be placed and are dropped.
func JoinSeries(ts models.TimeSeries, loc *time.Location) []models.ChartPoint {
	rows := make(map[int64]*models.ChartPoint)
	put := func(series []models.TimeSeriesPoint, set func(*models.ChartPoint, float64)) {
		for _, p := range series {
			if p.Timestamp.IsZero() {
				continue
			}
			key := p.Timestamp.UnixNano()
			row, ok := rows[key]
			if !ok {
				row = &models.ChartPoint{Timestamp: p.Timestamp}
				rows[key] = row
			}
			set(row, models.ValueOr(p.Value, 0))
		}
	}
	put(ts.Generation, func(r *models.ChartPoint, v float64) { r.Generation = v })
	put(ts.Demand, func(r *models.ChartPoint, v float64) { r.Demand = v })
	put(ts.Renewable, func(r *models.ChartPoint, v float64) { r.Renewable = v })

	out := make([]models.ChartPoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	for i := range out {
		out[i].Label = pointLabel(out[i].Timestamp, i, loc)
	}
	return out
}

// ChartPoints builds the balance chart rows. With no records there is
// nothing to chart; with an empty generation series the records are used.
func ChartPoints(records []models.NormalizedRecord, ts models.TimeSeries, mode Alignment, loc *time.Location) []models.ChartPoint {
	if len(records) == 0 {
		return []models.ChartPoint{}
	}
	if len(ts.Generation) > 0 {
		if mode == AlignPositional {
			return ZipSeries(ts, loc)
		}
		return JoinSeries(ts, loc)
	}

	out := make([]models.ChartPoint, 0, len(records))
	for _, r := range records {
		p := models.ChartPoint{
			Timestamp:  r.Date,
			Generation: r.Generation.Total,
			Demand:     r.Demand.Total,
			Renewable:  r.RenewablePercentage,
		}
		if !r.Date.IsZero() {
			p.Label = dates.FormatChartLabel(r.Date, loc)
		}
		out = append(out, p)
	}
	return out
}
