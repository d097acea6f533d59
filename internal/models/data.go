package models

import (
	"context"
	"time"
)

// NormalizedRecord is one balance snapshot in the fixed internal shape
type NormalizedRecord struct {
	ID                  string          `json:"id"`
	Date                time.Time       `json:"date"`
	Generation          GenerationBlock `json:"generation"`
	Demand              DemandBlock     `json:"demand"`
	Interchange         Interchange     `json:"interchange"`
	RenewablePercentage float64         `json:"renewablePercentage"`
}

// GenerationBlock splits total generation by renewable share
type GenerationBlock struct {
	Total        float64           `json:"total"`
	Renewable    float64           `json:"renewable"`
	NonRenewable float64           `json:"nonRenewable"`
	Distribution []GenerationEntry `json:"distribution"`
}

// DemandBlock carries demand plus the range-wide peak and valley
type DemandBlock struct {
	Total  float64  `json:"total"`
	Peak   *float64 `json:"peak"`
	Valley *float64 `json:"valley"`
}

// Interchange is the cross-border exchange; Import and Export are never both positive
type Interchange struct {
	Balance float64 `json:"balance"`
	Import  float64 `json:"import"`
	Export  float64 `json:"export"`
}

// MetricSummary holds average/max/min for one indicator
type MetricSummary struct {
	Average *float64 `json:"average"`
	Max     *float64 `json:"max"`
	Min     *float64 `json:"min"`
}

// StatisticsSource tells where a StatisticsSummary was computed
type StatisticsSource string

const (
	StatisticsFromBackend   StatisticsSource = "backend"
	StatisticsFromPage      StatisticsSource = "page"
	StatisticsFromFullRange StatisticsSource = "full-range"
)

// StatisticsSummary is the aggregate statistics for a date range
type StatisticsSummary struct {
	Generation          MetricSummary    `json:"generation"`
	Demand              MetricSummary    `json:"demand"`
	RenewablePercentage MetricSummary    `json:"renewablePercentage"`
	Count               int              `json:"count"`
	StartDate           *time.Time       `json:"startDate"`
	EndDate             *time.Time       `json:"endDate"`
	TimeScope           TimeScope        `json:"timeScope"`
	Source              StatisticsSource `json:"source"`
}

// TimeSeriesPoint is one sample of a single indicator
type TimeSeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     *float64  `json:"value"`
}

// TimeSeries keeps the three indicators as independent sequences
type TimeSeries struct {
	Generation []TimeSeriesPoint `json:"generation"`
	Demand     []TimeSeriesPoint `json:"demand"`
	Renewable  []TimeSeriesPoint `json:"renewable"`
}

// PaginationMeta is the page metadata returned with paged records
type PaginationMeta struct {
	TotalCount      int  `json:"totalCount"`
	Page            int  `json:"page"`
	PageSize        int  `json:"pageSize"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// ShowControls reports whether there is more than one page to navigate
func (p *PaginationMeta) ShowControls() bool {
	return p != nil && p.TotalCount > p.PageSize
}

// ViewModel is the aggregate handed to the presentation layer. It is
// rebuilt on every settlement and never mutated afterwards.
type ViewModel struct {
	Loading    bool               `json:"loading"`
	Data       []NormalizedRecord `json:"data"`
	Statistics *StatisticsSummary `json:"statistics"`
	TimeSeries TimeSeries         `json:"timeSeries"`
	Pagination *PaginationMeta    `json:"pagination"`
	Error      string             `json:"error,omitempty"`

	Retry func(context.Context) `json:"-"`
}

// HasData reports whether at least one record is present
func (v ViewModel) HasData() bool {
	return len(v.Data) > 0
}

// TypedValue is a normalized per-technology value used by the latest snapshot view
type TypedValue struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// GenerationShare is one technology aggregated over a set of records
type GenerationShare struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// LatestView is the latest snapshot with display defaults applied
type LatestView struct {
	ID                  string       `json:"id"`
	Timestamp           time.Time    `json:"timestamp"`
	FormattedDate       string       `json:"formattedDate"`
	TimeScope           string       `json:"timeScope"`
	TotalGeneration     float64      `json:"totalGeneration"`
	TotalDemand         float64      `json:"totalDemand"`
	RenewablePercentage float64      `json:"renewablePercentage"`
	Balance             float64      `json:"balance"`
	IsNetImporter       bool         `json:"isNetImporter"`
	BalanceText         string       `json:"balanceText"`
	Generation          []TypedValue `json:"generation"`
	Demand              []TypedValue `json:"demand"`
}

// ChartPoint is one aligned row of the three indicators
type ChartPoint struct {
	Label      string    `json:"label"`
	Timestamp  time.Time `json:"timestamp"`
	Generation float64   `json:"generation"`
	Demand     float64   `json:"demand"`
	Renewable  float64   `json:"renewable"`
}
