package models

import (
	"fmt"
	"strings"
	"time"
)

// DateRange is the closed interval of instants a balance query covers
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether both bounds are set and Start is not after End
func (r DateRange) Valid() bool {
	if r.Start.IsZero() || r.End.IsZero() {
		return false
	}
	return !r.Start.After(r.End)
}

// Equal compares two ranges instant by instant
func (r DateRange) Equal(other DateRange) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

// TimeScope is the aggregation granularity requested from the backend
type TimeScope string

const (
	ScopeHour  TimeScope = "hour"
	ScopeDay   TimeScope = "day"
	ScopeMonth TimeScope = "month"
	ScopeYear  TimeScope = "year"
)

// TimeScopes lists every supported granularity in ascending order
var TimeScopes = []TimeScope{ScopeHour, ScopeDay, ScopeMonth, ScopeYear}

// Label returns the Spanish label shown in selectors
func (s TimeScope) Label() string {
	switch s {
	case ScopeHour:
		return "Hora"
	case ScopeDay:
		return "Día"
	case ScopeMonth:
		return "Mes"
	case ScopeYear:
		return "Año"
	default:
		return string(s)
	}
}

// ParseTimeScope parses a granularity name, case-insensitively
func ParseTimeScope(s string) (TimeScope, error) {
	scope := TimeScope(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range TimeScopes {
		if scope == known {
			return scope, nil
		}
	}
	return "", fmt.Errorf("unsupported time scope %q", s)
}

// OrderDirection is the sort direction of paged records
type OrderDirection string

const (
	OrderAsc  OrderDirection = "ASC"
	OrderDesc OrderDirection = "DESC"
)

// ParseOrderDirection parses ASC/DESC, case-insensitively
func ParseOrderDirection(s string) (OrderDirection, error) {
	switch OrderDirection(strings.ToUpper(strings.TrimSpace(s))) {
	case OrderAsc:
		return OrderAsc, nil
	case OrderDesc:
		return OrderDesc, nil
	default:
		return "", fmt.Errorf("unsupported order direction %q", s)
	}
}

// PaginationSpec selects one page of balance records
type PaginationSpec struct {
	Page           int            `json:"page"`
	PageSize       int            `json:"pageSize"`
	OrderBy        string         `json:"orderBy"`
	OrderDirection OrderDirection `json:"orderDirection"`
}

// DefaultPagination mirrors the dashboard defaults: first page of 50, newest first
func DefaultPagination() PaginationSpec {
	return PaginationSpec{
		Page:           1,
		PageSize:       50,
		OrderBy:        "timestamp",
		OrderDirection: OrderDesc,
	}
}

// Validate checks the page invariants
func (p PaginationSpec) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", p.Page)
	}
	if p.PageSize < 1 {
		return fmt.Errorf("page size must be >= 1, got %d", p.PageSize)
	}
	if p.OrderDirection != "" && p.OrderDirection != OrderAsc && p.OrderDirection != OrderDesc {
		return fmt.Errorf("unsupported order direction %q", p.OrderDirection)
	}
	return nil
}

// WithDefaults fills empty ordering fields from DefaultPagination
func (p PaginationSpec) WithDefaults() PaginationSpec {
	def := DefaultPagination()
	if p.Page == 0 {
		p.Page = def.Page
	}
	if p.PageSize == 0 {
		p.PageSize = def.PageSize
	}
	if p.OrderBy == "" {
		p.OrderBy = def.OrderBy
	}
	if p.OrderDirection == "" {
		p.OrderDirection = def.OrderDirection
	}
	return p
}
