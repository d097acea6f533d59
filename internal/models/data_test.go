package models

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDateRangeValid(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name  string
		rng   DateRange
		valid bool
	}{
		{"ordered range", DateRange{Start: start, End: end}, true},
		{"single instant", DateRange{Start: start, End: start}, true},
		{"reversed range", DateRange{Start: end, End: start}, false},
		{"missing start", DateRange{End: end}, false},
		{"missing end", DateRange{Start: start}, false},
		{"empty", DateRange{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rng.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestParseTimeScope(t *testing.T) {
	scope, err := ParseTimeScope(" Month ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scope != ScopeMonth {
		t.Errorf("Expected %q, got %q", ScopeMonth, scope)
	}

	if _, err := ParseTimeScope("week"); err == nil {
		t.Error("Expected error for unsupported scope")
	}

	if ScopeDay.Label() != "Día" {
		t.Errorf("Unexpected day label %q", ScopeDay.Label())
	}
}

func TestPaginationSpecValidate(t *testing.T) {
	if err := DefaultPagination().Validate(); err != nil {
		t.Errorf("default pagination should be valid: %v", err)
	}

	bad := DefaultPagination()
	bad.Page = 0
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for page 0")
	}

	bad = DefaultPagination()
	bad.PageSize = -1
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for negative page size")
	}

	bad = DefaultPagination()
	bad.OrderDirection = "SIDEWAYS"
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for unknown direction")
	}
}

func TestPaginationSpecWithDefaults(t *testing.T) {
	p := PaginationSpec{Page: 3}.WithDefaults()
	if p.Page != 3 || p.PageSize != 50 || p.OrderBy != "timestamp" || p.OrderDirection != OrderDesc {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestRecordsPageDecodesNulls(t *testing.T) {
	payload := `{
		"items": [
			{"id": "a", "timestamp": "2024-01-01T00:00:00.000Z", "totalGeneration": null, "totalDemand": 700.5, "renewablePercentage": null, "balance": -150},
			{"id": "b"}
		],
		"totalCount": 2, "page": 1, "pageSize": 50, "hasNextPage": false, "hasPreviousPage": false
	}`

	var page RecordsPage
	if err := json.Unmarshal([]byte(payload), &page); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(page.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(page.Items))
	}
	first := page.Items[0]
	if first.TotalGeneration != nil {
		t.Error("null totalGeneration should stay nil")
	}
	if ValueOr(first.TotalDemand, 0) != 700.5 {
		t.Errorf("unexpected demand %v", first.TotalDemand)
	}
	if ValueOr(first.Balance, 0) != -150 {
		t.Errorf("unexpected balance %v", first.Balance)
	}
	if page.Items[1].Timestamp != nil || page.Items[1].Balance != nil {
		t.Error("absent fields should stay nil")
	}
}

func TestViewModelJSONOmitsRetry(t *testing.T) {
	vm := ViewModel{
		Data:  []NormalizedRecord{},
		Retry: func(context.Context) {},
	}

	out, err := json.Marshal(vm)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(out), "retry") || strings.Contains(string(out), "Retry") {
		t.Errorf("retry function leaked into JSON: %s", out)
	}
	if !strings.Contains(string(out), `"statistics":null`) {
		t.Errorf("absent statistics should encode as null: %s", out)
	}
}

func TestPaginationMetaShowControls(t *testing.T) {
	var nilMeta *PaginationMeta
	if nilMeta.ShowControls() {
		t.Error("nil metadata must not show controls")
	}
	if (&PaginationMeta{TotalCount: 31, PageSize: 50}).ShowControls() {
		t.Error("single page must not show controls")
	}
	if !(&PaginationMeta{TotalCount: 120, PageSize: 50}).ShowControls() {
		t.Error("multiple pages should show controls")
	}
}

func TestOptionalHelpers(t *testing.T) {
	if ValueOr(nil, 7) != 7 {
		t.Error("ValueOr should return default for nil")
	}
	if StringOr(String(""), "x") != "x" {
		t.Error("StringOr should treat empty as missing")
	}
	if StringOr(String("solar"), "x") != "solar" {
		t.Error("StringOr should return value when set")
	}
}
