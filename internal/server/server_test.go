package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"reebalance/internal/config"
	"reebalance/internal/graphql"
	"reebalance/internal/metrics"
	"reebalance/internal/mocks"
	"reebalance/internal/models"
	"reebalance/internal/refresh"
	"reebalance/internal/reports"
)

const juneRange = "start=2024-06-01&end=2024-06-14"

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	return newTestServerWith(t, mocks.NewMockService("../mocks/data"))
}

func newTestServerWith(t *testing.T, exec graphql.Executor) (*Server, http.Handler) {
	t.Helper()

	cfg := &config.Config{
		Port:                  "0",
		DefaultTimeScope:      "day",
		DefaultPageSize:       50,
		DefaultMonthsBack:     1,
		Timezone:              "Europe/Madrid",
		LatestRefreshInterval: time.Minute,
		StatisticsFallback:    config.FallbackOff,
		SeriesAlignment:       config.AlignTimestamp,
		LocalReportsDir:       t.TempDir(),
		Environment:           "local",
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s, err := NewServer(ctx, cfg, exec, metrics.New())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	s.now = func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }

	return s, s.SetupRoutes()
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	decode(t, rec, &body)
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body["status"])
	}
}

func TestBalanceEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/balance?"+juneRange+"&pageSize=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var vm models.ViewModel
	decode(t, rec, &vm)
	if vm.Loading {
		t.Error("Expected settled view model")
	}
	if len(vm.Data) != 5 {
		t.Errorf("Expected 5 records, got %d", len(vm.Data))
	}
	if vm.Pagination == nil || vm.Pagination.TotalCount != 14 || !vm.Pagination.HasNextPage {
		t.Errorf("Unexpected pagination: %+v", vm.Pagination)
	}
	if vm.Statistics == nil || vm.Statistics.Count != 14 {
		t.Errorf("Expected backend statistics, got %+v", vm.Statistics)
	}
	if len(vm.TimeSeries.Demand) == 0 {
		t.Error("Expected demand series")
	}
}

func TestBalanceRejectsBadInput(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"reversed range", "start=2024-06-14&end=2024-06-01"},
		{"malformed date", "start=14/06/2024&end=2024-06-20"},
		{"unknown scope", juneRange + "&scope=decade"},
		{"bad page", juneRange + "&page=first"},
		{"negative page size", juneRange + "&pageSize=-1"},
		{"zero page", juneRange + "&page=0"},
		{"zero page size", juneRange + "&pageSize=0"},
		{"bad direction", juneRange + "&orderDirection=sideways"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/balance?"+tt.query)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestFilterChangeResetsPage(t *testing.T) {
	s, h := newTestServer(t)

	do(t, h, http.MethodGet, "/api/balance?"+juneRange+"&pageSize=5&page=3")
	if q, _ := s.Dashboard.Query(); q.Pagination.Page != 3 {
		t.Fatalf("Expected page 3, got %d", q.Pagination.Page)
	}

	do(t, h, http.MethodGet, "/api/balance?scope=month")
	q, _ := s.Dashboard.Query()
	if q.Pagination.Page != 1 {
		t.Errorf("Expected page reset to 1 after scope change, got %d", q.Pagination.Page)
	}
	if q.Pagination.PageSize != 5 {
		t.Errorf("Expected page size to carry over, got %d", q.Pagination.PageSize)
	}
}

func TestPageNavigation(t *testing.T) {
	_, h := newTestServer(t)

	do(t, h, http.MethodGet, "/api/balance?"+juneRange+"&pageSize=5")

	if rec := do(t, h, http.MethodPost, "/api/balance/previous"); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 before the first page, got %d", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/api/balance/next")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var vm models.ViewModel
	decode(t, rec, &vm)
	if vm.Pagination == nil || vm.Pagination.Page != 2 {
		t.Errorf("Expected page 2, got %+v", vm.Pagination)
	}
	if len(vm.Data) != 5 || vm.Data[0].ID != "bal-20240606" {
		t.Errorf("Unexpected second page: %d records", len(vm.Data))
	}
}

func TestRetry(t *testing.T) {
	_, h := newTestServer(t)
	do(t, h, http.MethodGet, "/api/balance?"+juneRange)

	rec := do(t, h, http.MethodPost, "/api/balance/retry?redirect=/%3Fscope%3Dday")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/?scope=day" {
		t.Errorf("Unexpected redirect %q", loc)
	}

	rec = do(t, h, http.MethodPost, "/api/balance/retry?redirect=//evil.example")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected JSON response for a foreign redirect, got %d", rec.Code)
	}

	if rec := do(t, h, http.MethodGet, "/api/balance/retry"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestRecordEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/records/bal-20240603")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var record models.NormalizedRecord
	decode(t, rec, &record)
	if record.ID != "bal-20240603" {
		t.Errorf("Expected bal-20240603, got %q", record.ID)
	}

	if rec := do(t, h, http.MethodGet, "/api/records/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestLatestRefresh(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/latest/refresh")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Data      *models.LatestView `json:"data"`
		ShowError bool               `json:"showError"`
	}
	decode(t, rec, &body)
	if body.Data == nil {
		t.Fatal("Expected latest snapshot after refresh")
	}
	if body.ShowError {
		t.Error("Expected no error")
	}
}

func TestPresets(t *testing.T) {
	_, h := newTestServer(t)

	var presets []presetResponse
	decode(t, do(t, h, http.MethodGet, "/api/presets"), &presets)
	if len(presets) != 4 {
		t.Fatalf("Expected 4 presets, got %d", len(presets))
	}
	if presets[0].Days != 7 || presets[0].End != "2024-06-15" {
		t.Errorf("Unexpected first preset: %+v", presets[0])
	}
}

func TestExport(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/export.csv?"+juneRange)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "balance-electrico-20240601-20240614.csv") {
		t.Errorf("Unexpected content disposition %q", cd)
	}
	if lines := strings.Count(rec.Body.String(), "\n"); lines != 15 {
		t.Errorf("Expected header plus 14 rows, got %d lines", lines)
	}
}

func TestCharts(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/charts/balance.png?"+juneRange)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
		t.Error("Expected PNG body")
	}

	rec = do(t, h, http.MethodGet, "/charts/distribution.html?"+juneRange)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "echarts") {
		t.Error("Expected an echarts page")
	}

	if rec := do(t, h, http.MethodGet, "/charts/sunspots.png"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown chart, got %d", rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/?"+juneRange+"&pageSize=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Página 1 de 3 (14 registros)", "Descargar CSV", "/charts/balance.html?"} {
		if !strings.Contains(body, want) {
			t.Errorf("Dashboard missing %q", want)
		}
	}
}

func TestGenerateAndServeReport(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/reports?"+juneRange)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result reports.Result
	decode(t, rec, &result)
	if result.Records != 14 {
		t.Errorf("Expected 14 records in report, got %d", result.Records)
	}

	rec = do(t, h, http.MethodGet, result.ReportURL)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected stored report, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Unexpected content type %q", ct)
	}

	var list struct {
		Reports []reportEntry `json:"reports"`
		Count   int           `json:"count"`
	}
	decode(t, do(t, h, http.MethodGet, "/reports"), &list)
	if list.Count != 1 || list.Reports[0].Folder != result.FolderPath {
		t.Errorf("Unexpected report list: %+v", list)
	}

	if rec := do(t, h, http.MethodGet, "/files/2020/01/01/nothing/index.html"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing file, got %d", rec.Code)
	}
}

func TestGenerateRejectsConcurrentRun(t *testing.T) {
	s, h := newTestServer(t)

	s.generateMutex.Lock()
	defer s.generateMutex.Unlock()

	if rec := do(t, h, http.MethodPost, "/reports"); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 while a report is running, got %d", rec.Code)
	}
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		target string
		ok     bool
	}{
		{"/", true},
		{"/?start=2024-06-01", true},
		{"", false},
		{"//evil.example", false},
		{"https://evil.example", false},
		{"/\\evil.example", false},
	}

	for _, tt := range tests {
		if _, ok := safeRedirect(tt.target); ok != tt.ok {
			t.Errorf("safeRedirect(%q) = %v, want %v", tt.target, ok, tt.ok)
		}
	}
}

// januaryExecutor serves the canned data but holds January record pages
// until release is closed and trims them to three rows.
func januaryExecutor(started chan<- struct{}, release <-chan struct{}) graphql.Executor {
	canned := mocks.NewMockService("../mocks/data")
	madrid, _ := time.LoadLocation("Europe/Madrid")
	var once sync.Once

	return graphql.ExecutorFunc(func(ctx context.Context, req graphql.Request, out interface{}) error {
		if req.OperationName == graphql.OpRecordsByDateRange {
			raw, _ := req.Variables["startDate"].(string)
			start, err := time.Parse(time.RFC3339, raw)
			if err == nil && start.In(madrid).Month() == time.January {
				once.Do(func() { close(started) })
				<-release

				vars := make(map[string]interface{}, len(req.Variables))
				for k, v := range req.Variables {
					vars[k] = v
				}
				vars["pageSize"] = 3
				req.Variables = vars
			}
		}
		return canned.Execute(ctx, req, out)
	})
}

func TestExportIgnoresConcurrentDashboardChanges(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	_, h := newTestServerWith(t, januaryExecutor(started, release))

	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	defer unblock()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/export.csv?start=2024-01-01&end=2024-01-31", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		done <- rec
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("January records were never requested")
	}

	if rec := do(t, h, http.MethodGet, "/api/balance?start=2024-06-01&end=2024-06-02&pageSize=2"); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for the June view, got %d", rec.Code)
	}
	unblock()

	var rec *httptest.ResponseRecorder
	select {
	case rec = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("export did not finish")
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "balance-electrico-20240101-20240131.csv") {
		t.Errorf("Unexpected content disposition %q", cd)
	}
	if lines := strings.Count(rec.Body.String(), "\n"); lines != 4 {
		t.Errorf("Expected header plus the 3 January rows, got %d lines:\n%s", lines, rec.Body.String())
	}
}

// startRecorder counts record requests per Madrid start month
type startRecorder struct {
	mu     sync.Mutex
	months map[time.Month]int
	next   graphql.Executor
	loc    *time.Location
}

func (r *startRecorder) Execute(ctx context.Context, req graphql.Request, out interface{}) error {
	if req.OperationName == graphql.OpRecordsByDateRange {
		raw, _ := req.Variables["startDate"].(string)
		if start, err := time.Parse(time.RFC3339, raw); err == nil {
			r.mu.Lock()
			r.months[start.In(r.loc).Month()]++
			r.mu.Unlock()
		}
	}
	return r.next.Execute(ctx, req, out)
}

func (r *startRecorder) count(m time.Month) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.months[m]
}

func TestAutoRefreshRetriesCurrentDashboardView(t *testing.T) {
	madrid, _ := time.LoadLocation("Europe/Madrid")
	rec := &startRecorder{
		months: map[time.Month]int{},
		next:   mocks.NewMockService("../mocks/data"),
		loc:    madrid,
	}
	s, h := newTestServerWith(t, rec)

	if resp := do(t, h, http.MethodGet, "/api/balance?start=2024-01-01&end=2024-01-31"); resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.Code)
	}
	before := rec.count(time.January)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go refresh.AutoRefresh(ctx, s.Dashboard, 5*time.Millisecond, nil)

	deadline := time.Now().Add(2 * time.Second)
	for rec.count(time.January) < before+2 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected the January view to be retried, got %d requests after %d", rec.count(time.January), before)
		}
		time.Sleep(2 * time.Millisecond)
	}

	q, ok := s.Dashboard.Query()
	if !ok || q.Range.Start.In(madrid).Month() != time.January {
		t.Errorf("Expected the dashboard to keep the January query, got %+v", q)
	}
}
