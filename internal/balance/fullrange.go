package balance

import (
	"context"
	"fmt"

	"reebalance/internal/graphql"
	"reebalance/internal/models"
)

// FullRangePageSize is the page size used when walking a whole range
const FullRangePageSize = 500

// maxFullRangePages stops a misbehaving backend that always reports a next page
const maxFullRangePages = 1000

// FetchAllRecords pages through every record of the range, oldest first
func FetchAllRecords(ctx context.Context, exec graphql.Executor, r models.DateRange, scope models.TimeScope) ([]models.RawRecord, error) {
	spec := models.PaginationSpec{
		Page:           1,
		PageSize:       FullRangePageSize,
		OrderBy:        "timestamp",
		OrderDirection: models.OrderAsc,
	}

	var all []models.RawRecord
	for spec.Page <= maxFullRangePages {
		page, err := graphql.FetchRecords(ctx, exec, r, scope, spec)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", spec.Page, err)
		}
		all = append(all, page.Items...)
		if !page.HasNextPage || len(page.Items) == 0 {
			return all, nil
		}
		spec.Page++
	}
	return nil, fmt.Errorf("range exceeds %d pages of %d records", maxFullRangePages, FullRangePageSize)
}
