package stats

import (
	"sort"

	"reebalance/internal/models"
)

// Defaults for breakdown entries with missing metadata
const (
	UnknownType  = "Sin especificar"
	DefaultColor = "#cccccc"
)

type typeAccumulator struct {
	total float64
	count int
	color string
	order int
}

func accumulate(records []models.NormalizedRecord) map[string]*typeAccumulator {
	acc := make(map[string]*typeAccumulator)
	for _, r := range records {
		for _, entry := range r.Generation.Distribution {
			name := models.StringOr(entry.Type, UnknownType)
			a, ok := acc[name]
			if !ok {
				a = &typeAccumulator{color: models.StringOr(entry.Color, DefaultColor), order: len(acc)}
				acc[name] = a
			}
			a.total += models.ValueOr(entry.Value, 0)
			a.count++
		}
	}
	return acc
}

// sortShares orders by value descending, first-seen order breaking ties
func sortShares(shares []models.GenerationShare, order map[string]int) {
	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].Value != shares[j].Value {
			return shares[i].Value > shares[j].Value
		}
		return order[shares[i].Name] < order[shares[j].Name]
	})
}

// AggregateGenerationByType averages each technology's value over all
// records (records without that technology count as zero), largest first.
func AggregateGenerationByType(records []models.NormalizedRecord) []models.GenerationShare {
	if len(records) == 0 {
		return []models.GenerationShare{}
	}
	acc := accumulate(records)

	var grand float64
	for _, a := range acc {
		grand += a.total
	}

	shares := make([]models.GenerationShare, 0, len(acc))
	order := make(map[string]int, len(acc))
	for name, a := range acc {
		order[name] = a.order
		share := models.GenerationShare{
			Name:  name,
			Value: a.total / float64(len(records)),
			Color: a.color,
		}
		if grand > 0 {
			share.Percentage = a.total * 100 / grand
		}
		shares = append(shares, share)
	}
	sortShares(shares, order)
	return shares
}

// DistributionFromRecords averages each technology over the records that
// report it; percentages are shares of the summed totals.
func DistributionFromRecords(records []models.NormalizedRecord) []models.GenerationShare {
	acc := accumulate(records)

	var grand float64
	for _, a := range acc {
		grand += a.total
	}

	shares := make([]models.GenerationShare, 0, len(acc))
	order := make(map[string]int, len(acc))
	for name, a := range acc {
		order[name] = a.order
		share := models.GenerationShare{
			Name:  name,
			Value: a.total / float64(a.count),
			Color: a.color,
		}
		if grand > 0 {
			share.Percentage = a.total * 100 / grand
		}
		shares = append(shares, share)
	}
	sortShares(shares, order)
	return shares
}

// DistributionShares maps the backend distribution, using the per-type
// average as the value, largest first.
func DistributionShares(entries []models.DistributionEntry) []models.GenerationShare {
	shares := make([]models.GenerationShare, 0, len(entries))
	order := make(map[string]int, len(entries))
	for i, e := range entries {
		name := models.StringOr(e.Type, UnknownType)
		if _, seen := order[name]; !seen {
			order[name] = i
		}
		shares = append(shares, models.GenerationShare{
			Name:       name,
			Value:      models.ValueOr(e.AvgValue, 0),
			Percentage: models.ValueOr(e.Percentage, 0),
			Color:      models.StringOr(e.Color, DefaultColor),
		})
	}
	sortShares(shares, order)
	return shares
}
