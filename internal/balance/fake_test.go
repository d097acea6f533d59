package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reebalance/internal/graphql"
	"reebalance/internal/models"
)

// fakeBackend answers GraphQL operations from per-key handlers. Keys are
// the operation name, or the indicator for time-series requests.
type fakeBackend struct {
	mu       sync.Mutex
	handlers map[string]func(graphql.Request) (interface{}, error)
	gates    map[string]chan struct{}
	calls    []graphql.Request
	finished atomic.Int32
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		handlers: make(map[string]func(graphql.Request) (interface{}, error)),
		gates:    make(map[string]chan struct{}),
	}
}

func requestKey(req graphql.Request) string {
	if req.OperationName == graphql.OpTimeSeries {
		return fmt.Sprint(req.Variables["indicator"])
	}
	return req.OperationName
}

func (f *fakeBackend) on(key string, h func(graphql.Request) (interface{}, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[key] = h
}

// hold blocks requests for key until the returned func is called
func (f *fakeBackend) hold(key string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[key] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gates[key] == ch {
				delete(f.gates, key)
			}
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *fakeBackend) Execute(ctx context.Context, req graphql.Request, out interface{}) error {
	defer f.finished.Add(1)
	key := requestKey(req)

	f.mu.Lock()
	f.calls = append(f.calls, req)
	gate := f.gates[key]
	h := f.handlers[key]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var data interface{}
	if h != nil {
		var err error
		data, err = h(req)
		if err != nil {
			return err
		}
	}

	// round-trip through JSON like the real client does
	wrapped := map[string]interface{}{dataField(req): data}
	b, err := json.Marshal(wrapped)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func dataField(req graphql.Request) string {
	switch req.OperationName {
	case graphql.OpRecordsByDateRange:
		return "electricBalanceByDateRange"
	case graphql.OpStatistics:
		return "electricBalanceStats"
	case graphql.OpTimeSeries:
		return "electricBalanceTimeSeries"
	case graphql.OpGenerationDistribution:
		return "generationDistribution"
	case graphql.OpLatest:
		return "latestElectricBalance"
	default:
		return "electricBalance"
	}
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) callsFor(key string) []graphql.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []graphql.Request
	for _, c := range f.calls {
		if requestKey(c) == key {
			out = append(out, c)
		}
	}
	return out
}

// eventually polls cond until it holds or the deadline passes
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

func january() models.DateRange {
	return models.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC),
	}
}

func januaryQuery() Query {
	return Query{Range: january(), Scope: models.ScopeDay, Pagination: models.DefaultPagination()}
}

func dailyItems(n int) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]interface{}{
			"id":                  fmt.Sprintf("rec-%d", i+1),
			"timestamp":           time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
			"totalGeneration":     1000 + float64(i),
			"totalDemand":         900,
			"renewablePercentage": 40,
			"balance":             -150,
		})
	}
	return items
}

func recordsPage(items []map[string]interface{}, total, page, size int, hasNext bool) map[string]interface{} {
	return map[string]interface{}{
		"items":           items,
		"totalCount":      total,
		"page":            page,
		"pageSize":        size,
		"hasNextPage":     hasNext,
		"hasPreviousPage": page > 1,
	}
}

func statsPayload() map[string]interface{} {
	return map[string]interface{}{
		"generation":          map[string]interface{}{"average": 1015, "max": 1030, "min": 1000},
		"demand":              map[string]interface{}{"average": 900, "max": 1200, "min": 0},
		"renewablePercentage": map[string]interface{}{"average": 40, "max": 40, "min": 40},
		"count":               31,
		"startDate":           "2024-01-01T00:00:00Z",
		"endDate":             "2024-01-31T23:59:00Z",
		"timeScope":           "day",
	}
}

func seriesPayload(values ...float64) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(values))
	for i, v := range values {
		out = append(out, map[string]interface{}{
			"timestamp": time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
			"value":     v,
		})
	}
	return out
}

// healthyBackend serves a full January month
func healthyBackend() *fakeBackend {
	f := newFakeBackend()
	f.on(graphql.OpRecordsByDateRange, func(graphql.Request) (interface{}, error) {
		return recordsPage(dailyItems(31), 31, 1, 50, false), nil
	})
	f.on(graphql.OpStatistics, func(graphql.Request) (interface{}, error) {
		return statsPayload(), nil
	})
	f.on(graphql.IndicatorGeneration, func(graphql.Request) (interface{}, error) {
		return seriesPayload(1000, 1001, 1002), nil
	})
	f.on(graphql.IndicatorDemand, func(graphql.Request) (interface{}, error) {
		return seriesPayload(900, 900, 900), nil
	})
	f.on(graphql.IndicatorRenewable, func(graphql.Request) (interface{}, error) {
		return seriesPayload(40, 41, 42), nil
	})
	return f
}
