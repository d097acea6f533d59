package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"reebalance/internal/metrics"
	"reebalance/internal/models"
)

func newGraphQLServer(t *testing.T, handler func(t *testing.T, req Request) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("Expected no-cache header, got %q", r.Header.Get("Cache-Control"))
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		status, body := handler(t, req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func testRange() models.DateRange {
	return models.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC),
	}
}

func TestFetchRecords(t *testing.T) {
	server := newGraphQLServer(t, func(t *testing.T, req Request) (int, string) {
		if req.OperationName != OpRecordsByDateRange {
			t.Errorf("unexpected operation %s", req.OperationName)
		}
		if req.Variables["startDate"] != "2024-01-01T00:00:00Z" || req.Variables["endDate"] != "2024-01-31T23:59:00Z" {
			t.Errorf("unexpected date variables %v", req.Variables)
		}
		if req.Variables["timeScope"] != "day" || req.Variables["orderDirection"] != "DESC" {
			t.Errorf("unexpected variables %v", req.Variables)
		}
		// JSON numbers decode as float64
		if req.Variables["pageSize"] != float64(50) {
			t.Errorf("unexpected pageSize %v", req.Variables["pageSize"])
		}
		return http.StatusOK, `{"data":{"electricBalanceByDateRange":{
			"items":[{"id":"1","timestamp":"2024-01-01T00:00:00.000Z","totalGeneration":1000,"totalDemand":900,"renewablePercentage":40,"balance":-150}],
			"totalCount":31,"page":1,"pageSize":50,"hasNextPage":false,"hasPreviousPage":false}}}`
	})
	defer server.Close()

	client := NewClient(server.URL)
	page, err := FetchRecords(context.Background(), client, testRange(), models.ScopeDay, models.DefaultPagination())
	if err != nil {
		t.Fatalf("FetchRecords failed: %v", err)
	}
	if page.TotalCount != 31 || len(page.Items) != 1 {
		t.Errorf("unexpected page %+v", page)
	}
	if models.ValueOr(page.Items[0].Balance, 0) != -150 {
		t.Errorf("unexpected balance %v", page.Items[0].Balance)
	}
}

func TestGraphQLErrorsBecomeQueryError(t *testing.T) {
	server := newGraphQLServer(t, func(t *testing.T, req Request) (int, string) {
		return http.StatusOK, `{"data":null,"errors":[{"message":"Invalid date range"},{"message":"second"}]}`
	})
	defer server.Close()

	_, err := FetchStatistics(context.Background(), NewClient(server.URL), testRange(), models.ScopeDay)
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("Expected QueryError, got %T: %v", err, err)
	}
	if err.Error() != "Invalid date range\nsecond" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if qe.Operation != OpStatistics {
		t.Errorf("unexpected operation %s", qe.Operation)
	}
}

func TestErrorStatusWithGraphQLBody(t *testing.T) {
	server := newGraphQLServer(t, func(t *testing.T, req Request) (int, string) {
		return http.StatusBadRequest, `{"errors":[{"message":"Variable \"$timeScope\" of required type \"String!\" was not provided."}]}`
	})
	defer server.Close()

	err := NewClient(server.URL).Execute(context.Background(), LatestRequest(), nil)
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("Expected QueryError, got %T", err)
	}
}

func TestServerErrorBecomesTransportError(t *testing.T) {
	server := newGraphQLServer(t, func(t *testing.T, req Request) (int, string) {
		return http.StatusBadGateway, `<html>bad gateway</html>`
	})
	defer server.Close()

	_, err := FetchLatest(context.Background(), NewClient(server.URL))
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TransportError, got %T", err)
	}
	if te.StatusCode != http.StatusBadGateway {
		t.Errorf("unexpected status %d", te.StatusCode)
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("message should carry the status: %s", err.Error())
	}
}

func TestNetworkFailureBecomesTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := FetchLatest(context.Background(), NewClient(url))
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TransportError, got %T: %v", err, err)
	}
	if te.StatusCode != 0 || te.Unwrap() == nil {
		t.Errorf("network failures carry the cause: %+v", te)
	}
}

func TestMalformedBody(t *testing.T) {
	server := newGraphQLServer(t, func(t *testing.T, req Request) (int, string) {
		return http.StatusOK, `{"data":`
	})
	defer server.Close()

	_, err := FetchLatest(context.Background(), NewClient(server.URL))
	var qe *QueryError
	if !errors.As(err, &qe) || !strings.Contains(err.Error(), "malformed response") {
		t.Fatalf("Expected malformed QueryError, got %v", err)
	}
}

func TestNullPayloads(t *testing.T) {
	server := newGraphQLServer(t, func(t *testing.T, req Request) (int, string) {
		return http.StatusOK, `{"data":{"latestElectricBalance":null}}`
	})
	defer server.Close()

	latest, err := FetchLatest(context.Background(), NewClient(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != nil {
		t.Errorf("Expected nil snapshot, got %+v", latest)
	}
}

func TestNoAutomaticRetry(t *testing.T) {
	var calls atomic.Int32
	server := newGraphQLServer(t, func(t *testing.T, req Request) (int, string) {
		calls.Add(1)
		return http.StatusInternalServerError, `oops`
	})
	defer server.Close()

	_, _ = FetchLatest(context.Background(), NewClient(server.URL))
	if calls.Load() != 1 {
		t.Errorf("Expected exactly one attempt, got %d", calls.Load())
	}
}

func TestTimeoutOption(t *testing.T) {
	server := newGraphQLServer(t, func(t *testing.T, req Request) (int, string) {
		time.Sleep(200 * time.Millisecond)
		return http.StatusOK, `{"data":{"latestElectricBalance":null}}`
	})
	defer server.Close()

	_, err := FetchLatest(context.Background(), NewClient(server.URL, WithTimeout(20*time.Millisecond)))
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected timeout TransportError, got %v", err)
	}
}

func TestMetricsRecorded(t *testing.T) {
	server := newGraphQLServer(t, func(t *testing.T, req Request) (int, string) {
		return http.StatusOK, `{"data":{"electricBalanceTimeSeries":[{"timestamp":"2024-01-01T00:00:00Z","value":1}]}}`
	})
	defer server.Close()

	m := metrics.New()
	points, err := FetchTimeSeries(context.Background(), NewClient(server.URL, WithMetrics(m)), testRange(), models.ScopeDay, IndicatorDemand)
	if err != nil || len(points) != 1 {
		t.Fatalf("unexpected result %v %v", points, err)
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "reebalance_graphql_queries_total" {
			found = true
		}
	}
	if !found {
		t.Error("query counter was not recorded")
	}
}

func TestRequestBuilders(t *testing.T) {
	req := TimeSeriesRequest(testRange(), models.ScopeMonth, IndicatorRenewable)
	if req.Variables["indicator"] != IndicatorRenewable || req.Variables["timeScope"] != "month" {
		t.Errorf("unexpected variables %v", req.Variables)
	}
	if !strings.Contains(req.Query, "electricBalanceTimeSeries") {
		t.Error("time series query document missing field")
	}
	if ByIDRequest("abc").Variables["id"] != "abc" {
		t.Error("by-id request should carry the id")
	}
	if LatestRequest().Variables != nil {
		t.Error("latest request takes no variables")
	}
}
