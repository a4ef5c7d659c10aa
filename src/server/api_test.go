package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gonzaloreinoso/stdev-dag/src/interfaces"
	"github.com/gonzaloreinoso/stdev-dag/src/logger"
	"github.com/gonzaloreinoso/stdev-dag/src/models"
	"github.com/gonzaloreinoso/stdev-dag/src/utils"
)

var _ interfaces.IDataExchanger = (*APIServer)(nil)

func newTestServer(t *testing.T) *APIServer {
	t.Helper()
	cfg := &models.MConfig{Name: "stdev-dag", Host: "127.0.0.1", Port: 8420, LogLevel: "info"}
	cfg.Analysis.WindowSize = 20
	cfg.Analysis.LookbackDays = 5
	cfg.Schedule.IntervalMinutes = 60

	return NewAPIServer(cfg, logger.NewNop(), utils.NewResultCache(24))
}

func doRequest(t *testing.T, s *APIServer, path string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var body map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decoding response %q: %v", w.Body.String(), err)
		}
	}
	return w.Code, body
}

func cachedResult(id string, h int, stdev float64) models.MStdevResult {
	return models.MStdevResult{
		SecurityID: id,
		Timestamp:  time.Date(2024, 3, 1, h, 0, 0, 0, time.UTC),
		MidStdev:   &stdev,
	}
}

func TestGetHealth(t *testing.T) {
	s := newTestServer(t)

	code, body := doRequest(t, s, "/api/health")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", body["status"])
	}
	if body["connections"].(float64) != 0 {
		t.Fatalf("expected no connections, got %v", body["connections"])
	}
}

func TestGetConfig(t *testing.T) {
	s := newTestServer(t)

	code, body := doRequest(t, s, "/api/config")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["window_size"].(float64) != 20 {
		t.Fatalf("expected window_size 20, got %v", body["window_size"])
	}
	if body["schedule_interval_minutes"].(float64) != 60 {
		t.Fatalf("expected interval 60, got %v", body["schedule_interval_minutes"])
	}
}

func TestGetResults(t *testing.T) {
	s := newTestServer(t)
	s.Cache.AddBatch([]models.MStdevResult{
		cachedResult("SEC_A", 10, 1.0),
		cachedResult("SEC_A", 11, 1.5),
		cachedResult("SEC_B", 10, 2.0),
	})

	// Listing without a security id
	code, body := doRequest(t, s, "/api/results")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if ids := body["securities"].([]interface{}); len(ids) != 2 {
		t.Fatalf("expected 2 securities, got %v", ids)
	}

	// Limited rows for one security
	code, body = doRequest(t, s, "/api/results?security_id=SEC_A&limit=1")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	rows := body["results"].([]interface{})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0].(map[string]interface{})
	if row["mid_stdev"].(float64) != 1.5 {
		t.Fatalf("expected newest row (stdev 1.5), got %v", row["mid_stdev"])
	}

	// Unknown security
	if code, _ := doRequest(t, s, "/api/results?security_id=SEC_X"); code != 404 {
		t.Fatalf("expected 404, got %d", code)
	}

	// Bad limit
	if code, _ := doRequest(t, s, "/api/results?security_id=SEC_A&limit=-3"); code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestUpdateAllDatasMergesState(t *testing.T) {
	s := newTestServer(t)

	report := &models.MRunReport{RunID: "run-1", RowsEmitted: 2}
	s.UpdateAllDatas(&models.MLatestData{
		Type:      "UPDATE",
		Results:   map[string][]models.MStdevResult{"SEC_A": {cachedResult("SEC_A", 10, 1.0)}},
		Report:    report,
		Timestamp: 100,
	})
	s.UpdateAllDatas(&models.MLatestData{
		Type:      "UPDATE",
		Results:   map[string][]models.MStdevResult{"SEC_B": {cachedResult("SEC_B", 11, 2.0)}},
		Timestamp: 200,
	})

	s.stateMutex.RLock()
	results := len(s.latestState.Results)
	gotReport := s.latestState.Report
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	if results != 2 {
		t.Fatalf("expected merged results for 2 securities, got %d", results)
	}
	// A payload without a report keeps the previous one
	if gotReport == nil || gotReport.RunID != "run-1" {
		t.Fatalf("expected report run-1 to survive, got %+v", gotReport)
	}
	if timestamp != 200 {
		t.Fatalf("expected timestamp 200, got %d", timestamp)
	}

	// Metrics endpoint serves the report
	code, body := doRequest(t, s, "/api/metrics")
	if code != 200 || body["run_id"] != "run-1" {
		t.Fatalf("expected run report from metrics, got %d %v", code, body)
	}
}

func TestSubscribeFiltering(t *testing.T) {
	s := newTestServer(t)
	s.UpdateAllDatas(&models.MLatestData{
		Results: map[string][]models.MStdevResult{
			"SEC_A": {cachedResult("SEC_A", 10, 1.0)},
			"SEC_B": {cachedResult("SEC_B", 10, 2.0)},
		},
		Timestamp: 100,
	})

	tests := []struct {
		name       string
		securities []string
		wantKeys   int
	}{
		{"no filter returns everything", nil, 2},
		{"single security", []string{"SEC_A"}, 1},
		{"unknown ids drop out", []string{"SEC_A", "SEC_X"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.subscribeResponse(tt.securities)
			if resp.Type != "INITIAL" {
				t.Fatalf("expected INITIAL snapshot, got %s", resp.Type)
			}
			if len(resp.Results) != tt.wantKeys {
				t.Fatalf("expected %d securities, got %d", tt.wantKeys, len(resp.Results))
			}
		})
	}
}
