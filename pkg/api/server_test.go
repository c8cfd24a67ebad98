package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ohsung/twapkit/pkg/twap"
)

func testServer(t *testing.T) (*Server, *twap.Reporter) {
	t.Helper()
	reporter := twap.NewReporter(3)
	plan := PlanInfo{
		RunID:           "run-x",
		TotalAmount:     "100",
		SliceCount:      3,
		IntervalSeconds: 30,
		SliceAmounts:    []string{"33", "33", "34"},
	}
	return NewServer(plan, reporter, nil), reporter
}

func TestGetPlan(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plan", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var plan PlanInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if plan.RunID != "run-x" || plan.SliceCount != 3 {
		t.Errorf("plan = %+v", plan)
	}
}

func TestGetRecordsAndSummary(t *testing.T) {
	s, reporter := testServer(t)

	if err := reporter.Record(twap.ExecutionRecord{
		SliceIndex:   0,
		Status:       twap.StatusSucceeded,
		Timestamp:    time.Now(),
		Reference:    "tx-1",
		MakingAmount: "33",
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var records []twap.ExecutionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 1 || records[0].Reference != "tx-1" {
		t.Errorf("records = %+v", records)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var summary SummaryInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Succeeded != 1 || summary.Pending != 2 || summary.TotalExecuted != "33" {
		t.Errorf("summary = %+v", summary)
	}
}

func TestGetRecordsEmpty(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	// Empty log serves [] rather than null.
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("empty records body = %q, want []", got)
	}
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

// The server's sink converts records to slice events without failing the
// append, even with no clients connected.
func TestSinkBroadcast(t *testing.T) {
	s, _ := testServer(t)
	go s.hub.Run()

	sink := s.Sink()
	err := sink.Append(twap.ExecutionRecord{
		SliceIndex: 1,
		Status:     twap.StatusFailed,
		Timestamp:  time.Now(),
		Error:      "fill: rejected",
	})
	if err != nil {
		t.Fatalf("sink append: %v", err)
	}
}
