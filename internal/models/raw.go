package models

// Wire shapes returned by the balance GraphQL API. Every value may be
// null upstream, so numbers are pointers; defaults are applied only by
// the normalizer.

// GenerationEntry is one technology in a per-type generation breakdown
type GenerationEntry struct {
	Type       *string  `json:"type"`
	Value      *float64 `json:"value"`
	Percentage *float64 `json:"percentage"`
	Color      *string  `json:"color,omitempty"`
}

// DemandEntry is one component of a per-type demand breakdown
type DemandEntry struct {
	Type       *string  `json:"type"`
	Value      *float64 `json:"value"`
	Percentage *float64 `json:"percentage"`
}

// RawRecord is one balance snapshot as returned by the backend
type RawRecord struct {
	ID                  string            `json:"id"`
	Timestamp           *string           `json:"timestamp"`
	TotalGeneration     *float64          `json:"totalGeneration"`
	TotalDemand         *float64          `json:"totalDemand"`
	RenewablePercentage *float64          `json:"renewablePercentage"`
	Balance             *float64          `json:"balance"`
	Generation          []GenerationEntry `json:"generation,omitempty"`
}

// RecordsPage is the paged-records query payload
type RecordsPage struct {
	Items           []RawRecord `json:"items"`
	TotalCount      int         `json:"totalCount"`
	Page            int         `json:"page"`
	PageSize        int         `json:"pageSize"`
	HasNextPage     bool        `json:"hasNextPage"`
	HasPreviousPage bool        `json:"hasPreviousPage"`
}

// RawStatistics is the statistics query payload
type RawStatistics struct {
	Generation          MetricSummary `json:"generation"`
	Demand              MetricSummary `json:"demand"`
	RenewablePercentage MetricSummary `json:"renewablePercentage"`
	Count               int           `json:"count"`
	StartDate           *string       `json:"startDate"`
	EndDate             *string       `json:"endDate"`
	TimeScope           string        `json:"timeScope"`
}

// RawPoint is one time-series sample as returned by the backend
type RawPoint struct {
	Timestamp *string  `json:"timestamp"`
	Value     *float64 `json:"value"`
}

// LatestBalance is the latest-snapshot query payload
type LatestBalance struct {
	ID                  string            `json:"id"`
	Timestamp           *string           `json:"timestamp"`
	TimeScope           *string           `json:"timeScope"`
	TotalGeneration     *float64          `json:"totalGeneration"`
	TotalDemand         *float64          `json:"totalDemand"`
	RenewablePercentage *float64          `json:"renewablePercentage"`
	Balance             *float64          `json:"balance"`
	Generation          []GenerationEntry `json:"generation"`
	Demand              []DemandEntry     `json:"demand"`
}

// DistributionEntry is one row of the generation distribution query
type DistributionEntry struct {
	Type       *string  `json:"type"`
	TotalValue *float64 `json:"totalValue"`
	AvgValue   *float64 `json:"avgValue"`
	MaxValue   *float64 `json:"maxValue"`
	MinValue   *float64 `json:"minValue"`
	Percentage *float64 `json:"percentage"`
	Color      *string  `json:"color"`
	Count      int      `json:"count"`
}

// Float returns a pointer to v, for building optional values
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s, for building optional values
func String(s string) *string {
	return &s
}

// ValueOr dereferences p, or returns def when p is nil
func ValueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// StringOr dereferences p, or returns def when p is nil or empty
func StringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
