package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"reebalance/internal/graphql"
	"reebalance/internal/models"
)

// Canned payload files, one per operation. Time series files are
// suffixed with the indicator name.
const (
	RecordsFile      = "records.json"
	StatisticsFile   = "statistics.json"
	DistributionFile = "distribution.json"
	LatestFile       = "latest.json"
	TimeSeriesPrefix = "timeseries_"
)

// MockService serves canned balance API responses from JSON files so the
// dashboard can run without the remote backend. The requested date range
// is ignored; every range gets the same canned data.
type MockService struct {
	mocksDir string
}

// NewMockService creates a mock executor reading from mocksDir
func NewMockService(mocksDir string) *MockService {
	return &MockService{mocksDir: mocksDir}
}

// Dir returns the directory the canned files are read from
func (m *MockService) Dir() string {
	return m.mocksDir
}

// Execute answers req from the canned files, decoding into out the same
// way the HTTP client decodes the data object.
func (m *MockService) Execute(ctx context.Context, req graphql.Request, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return &graphql.TransportError{Operation: req.OperationName, Err: err}
	}

	data, err := m.payload(req)
	if err != nil {
		return &graphql.QueryError{Operation: req.OperationName, Err: err}
	}
	if out == nil {
		return nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return &graphql.QueryError{Operation: req.OperationName, Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &graphql.QueryError{Operation: req.OperationName, Err: fmt.Errorf("unexpected data shape: %w", err)}
	}
	return nil
}

func (m *MockService) payload(req graphql.Request) (map[string]interface{}, error) {
	switch req.OperationName {
	case graphql.OpRecordsByDateRange:
		page, err := m.LoadRecordsPage(intVar(req.Variables, "page", 1), intVar(req.Variables, "pageSize", 50))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"electricBalanceByDateRange": page}, nil

	case graphql.OpStatistics:
		var stats models.RawStatistics
		if err := m.loadTypedJSONFile(StatisticsFile, &stats); err != nil {
			return nil, err
		}
		return map[string]interface{}{"electricBalanceStats": stats}, nil

	case graphql.OpGenerationDistribution:
		var entries []models.DistributionEntry
		if err := m.loadTypedJSONFile(DistributionFile, &entries); err != nil {
			return nil, err
		}
		return map[string]interface{}{"generationDistribution": entries}, nil

	case graphql.OpTimeSeries:
		indicator, _ := req.Variables["indicator"].(string)
		var points []models.RawPoint
		if err := m.loadTypedJSONFile(TimeSeriesPrefix+indicator+".json", &points); err != nil {
			return nil, err
		}
		return map[string]interface{}{"electricBalanceTimeSeries": points}, nil

	case graphql.OpLatest:
		var latest models.LatestBalance
		if err := m.loadTypedJSONFile(LatestFile, &latest); err != nil {
			return nil, err
		}
		return map[string]interface{}{"latestElectricBalance": latest}, nil

	case graphql.OpByID:
		id, _ := req.Variables["id"].(string)
		record, err := m.findRecord(id)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"electricBalance": record}, nil
	}
	return nil, fmt.Errorf("no mock for operation %s", req.OperationName)
}

// LoadRecordsPage slices the canned records the way the backend pages them
func (m *MockService) LoadRecordsPage(page, pageSize int) (*models.RecordsPage, error) {
	var items []models.RawRecord
	if err := m.loadTypedJSONFile(RecordsFile, &items); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	start := (page - 1) * pageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	return &models.RecordsPage{
		Items:           items[start:end],
		TotalCount:      len(items),
		Page:            page,
		PageSize:        pageSize,
		HasNextPage:     end < len(items),
		HasPreviousPage: page > 1,
	}, nil
}

func (m *MockService) findRecord(id string) (*models.RawRecord, error) {
	var items []models.RawRecord
	if err := m.loadTypedJSONFile(RecordsFile, &items); err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	// the backend answers an unknown id with a null record
	return nil, nil
}

// intVar reads an integer variable that may have gone through JSON already
func intVar(vars map[string]interface{}, key string, def int) int {
	switch v := vars[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// loadTypedJSONFile loads a JSON file and unmarshals it into the provided type
func (m *MockService) loadTypedJSONFile(filename string, target interface{}) error {
	filePath := filepath.Join(m.mocksDir, filename)
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open mock file %s: %w", filename, err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read mock file %s: %w", filename, err)
	}

	if err := json.Unmarshal(content, target); err != nil {
		return fmt.Errorf("failed to unmarshal mock file %s: %w", filename, err)
	}
	return nil
}
