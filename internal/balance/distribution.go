package balance

import (
	"context"

	"reebalance/internal/graphql"
	"reebalance/internal/models"
	"reebalance/internal/stats"
)

// Distribution returns the generation mix for the range. The backend
// aggregate is preferred; when it has nothing, the mix is averaged from
// the per-record breakdowns that are already loaded.
func Distribution(ctx context.Context, exec graphql.Executor, q Query, records []models.NormalizedRecord) ([]models.GenerationShare, error) {
	if !q.Range.Valid() {
		return []models.GenerationShare{}, nil
	}
	entries, err := graphql.FetchDistribution(ctx, exec, q.Range, q.Scope)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return stats.DistributionFromRecords(records), nil
	}
	return stats.DistributionShares(entries), nil
}
