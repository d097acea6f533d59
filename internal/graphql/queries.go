package graphql

import (
	"context"

	"reebalance/internal/dates"
	"reebalance/internal/models"
)

// Operation names as sent in the request envelope
const (
	OpRecordsByDateRange     = "GetElectricBalanceByDateRange"
	OpStatistics             = "GetElectricBalanceStats"
	OpGenerationDistribution = "GetGenerationDistribution"
	OpTimeSeries             = "GetElectricBalanceTimeSeries"
	OpLatest                 = "GetLatestElectricBalance"
	OpByID                   = "GetElectricBalanceById"
)

// Indicators accepted by the time-series query
const (
	IndicatorGeneration = "totalGeneration"
	IndicatorDemand     = "totalDemand"
	IndicatorRenewable  = "renewablePercentage"
)

const recordsQuery = `query GetElectricBalanceByDateRange(
  $startDate: DateTime!, $endDate: DateTime!, $timeScope: String!,
  $page: Int, $pageSize: Int, $orderBy: String, $orderDirection: String
) {
  electricBalanceByDateRange(
    dateRange: {startDate: $startDate, endDate: $endDate, timeScope: $timeScope},
    pagination: {page: $page, pageSize: $pageSize, orderBy: $orderBy, orderDirection: $orderDirection}
  ) {
    items { id timestamp totalGeneration totalDemand renewablePercentage balance }
    totalCount page pageSize hasNextPage hasPreviousPage
  }
}`

const statisticsQuery = `query GetElectricBalanceStats($startDate: DateTime!, $endDate: DateTime!, $timeScope: String!) {
  electricBalanceStats(dateRange: {startDate: $startDate, endDate: $endDate, timeScope: $timeScope}) {
    generation { average max min }
    demand { average max min }
    renewablePercentage { average max min }
    count startDate endDate timeScope
  }
}`

const distributionQuery = `query GetGenerationDistribution($startDate: DateTime!, $endDate: DateTime!, $timeScope: String!) {
  generationDistribution(dateRange: {startDate: $startDate, endDate: $endDate, timeScope: $timeScope}) {
    type totalValue avgValue maxValue minValue percentage color count
  }
}`

const timeSeriesQuery = `query GetElectricBalanceTimeSeries(
  $startDate: DateTime!, $endDate: DateTime!, $timeScope: String!, $indicator: String!
) {
  electricBalanceTimeSeries(
    dateRange: {startDate: $startDate, endDate: $endDate, timeScope: $timeScope},
    indicator: $indicator
  ) { timestamp value }
}`

const latestQuery = `query GetLatestElectricBalance {
  latestElectricBalance {
    id timestamp timeScope totalGeneration totalDemand renewablePercentage balance
    generation { type value percentage color }
    demand { type value percentage }
  }
}`

const byIDQuery = `query GetElectricBalanceById($id: ID!) {
  electricBalance(id: $id) {
    id timestamp timeScope totalGeneration totalDemand renewablePercentage balance
    generation { type value percentage color }
  }
}`

func rangeVariables(r models.DateRange, scope models.TimeScope) map[string]interface{} {
	return map[string]interface{}{
		"startDate": dates.FormatForAPI(r.Start),
		"endDate":   dates.FormatForAPI(r.End),
		"timeScope": string(scope),
	}
}

// RecordsRequest builds the paged-records operation
func RecordsRequest(r models.DateRange, scope models.TimeScope, p models.PaginationSpec) Request {
	vars := rangeVariables(r, scope)
	vars["page"] = p.Page
	vars["pageSize"] = p.PageSize
	vars["orderBy"] = p.OrderBy
	vars["orderDirection"] = string(p.OrderDirection)
	return Request{OperationName: OpRecordsByDateRange, Query: recordsQuery, Variables: vars}
}

// StatisticsRequest builds the statistics operation
func StatisticsRequest(r models.DateRange, scope models.TimeScope) Request {
	return Request{OperationName: OpStatistics, Query: statisticsQuery, Variables: rangeVariables(r, scope)}
}

// DistributionRequest builds the generation distribution operation
func DistributionRequest(r models.DateRange, scope models.TimeScope) Request {
	return Request{OperationName: OpGenerationDistribution, Query: distributionQuery, Variables: rangeVariables(r, scope)}
}

// TimeSeriesRequest builds the single-indicator time-series operation
func TimeSeriesRequest(r models.DateRange, scope models.TimeScope, indicator string) Request {
	vars := rangeVariables(r, scope)
	vars["indicator"] = indicator
	return Request{OperationName: OpTimeSeries, Query: timeSeriesQuery, Variables: vars}
}

// LatestRequest builds the latest-snapshot operation
func LatestRequest() Request {
	return Request{OperationName: OpLatest, Query: latestQuery}
}

// ByIDRequest builds the single-record operation
func ByIDRequest(id string) Request {
	return Request{OperationName: OpByID, Query: byIDQuery, Variables: map[string]interface{}{"id": id}}
}

// FetchRecords runs the paged-records query
func FetchRecords(ctx context.Context, exec Executor, r models.DateRange, scope models.TimeScope, p models.PaginationSpec) (*models.RecordsPage, error) {
	var out struct {
		Page *models.RecordsPage `json:"electricBalanceByDateRange"`
	}
	if err := exec.Execute(ctx, RecordsRequest(r, scope, p), &out); err != nil {
		return nil, err
	}
	if out.Page == nil {
		return &models.RecordsPage{Items: []models.RawRecord{}}, nil
	}
	return out.Page, nil
}

// FetchStatistics runs the statistics query; a null payload yields nil
func FetchStatistics(ctx context.Context, exec Executor, r models.DateRange, scope models.TimeScope) (*models.RawStatistics, error) {
	var out struct {
		Stats *models.RawStatistics `json:"electricBalanceStats"`
	}
	if err := exec.Execute(ctx, StatisticsRequest(r, scope), &out); err != nil {
		return nil, err
	}
	return out.Stats, nil
}

// FetchTimeSeries runs the time-series query for one indicator
func FetchTimeSeries(ctx context.Context, exec Executor, r models.DateRange, scope models.TimeScope, indicator string) ([]models.RawPoint, error) {
	var out struct {
		Points []models.RawPoint `json:"electricBalanceTimeSeries"`
	}
	if err := exec.Execute(ctx, TimeSeriesRequest(r, scope, indicator), &out); err != nil {
		return nil, err
	}
	return out.Points, nil
}

// FetchDistribution runs the generation distribution query
func FetchDistribution(ctx context.Context, exec Executor, r models.DateRange, scope models.TimeScope) ([]models.DistributionEntry, error) {
	var out struct {
		Entries []models.DistributionEntry `json:"generationDistribution"`
	}
	if err := exec.Execute(ctx, DistributionRequest(r, scope), &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// FetchLatest runs the latest-snapshot query; nil means the backend has no snapshot
func FetchLatest(ctx context.Context, exec Executor) (*models.LatestBalance, error) {
	var out struct {
		Latest *models.LatestBalance `json:"latestElectricBalance"`
	}
	if err := exec.Execute(ctx, LatestRequest(), &out); err != nil {
		return nil, err
	}
	return out.Latest, nil
}

// FetchByID runs the single-record query
func FetchByID(ctx context.Context, exec Executor, id string) (*models.RawRecord, error) {
	var out struct {
		Record *models.RawRecord `json:"electricBalance"`
	}
	if err := exec.Execute(ctx, ByIDRequest(id), &out); err != nil {
		return nil, err
	}
	return out.Record, nil
}
