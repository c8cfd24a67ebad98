package twap

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestReporterRecordAndSummary(t *testing.T) {
	r := NewReporter(3)
	now := time.Now()

	records := []ExecutionRecord{
		{SliceIndex: 0, Status: StatusExecuting, Timestamp: now},
		{SliceIndex: 0, Status: StatusSucceeded, Timestamp: now, Reference: "0xabc", MakingAmount: "33"},
		{SliceIndex: 1, Status: StatusExecuting, Timestamp: now},
		{SliceIndex: 1, Status: StatusFailed, Timestamp: now, Error: "insufficient liquidity"},
	}
	for _, rec := range records {
		if err := r.Record(rec); err != nil {
			t.Fatalf("Record(%+v): %v", rec, err)
		}
	}

	s := r.Summary()
	if s.Succeeded != 1 || s.Failed != 1 || s.Cancelled != 0 || s.Pending != 1 {
		t.Errorf("summary = %+v, want 1 succeeded, 1 failed, 1 pending", s)
	}
	if s.TotalExecuted.Int64() != 33 {
		t.Errorf("totalExecuted = %s, want 33", s.TotalExecuted)
	}
	if s.Complete() {
		t.Error("summary with failures should not be complete")
	}

	if got := len(r.Records()); got != len(records) {
		t.Errorf("log length = %d, want %d", got, len(records))
	}
}

func TestReporterDuplicateTerminal(t *testing.T) {
	r := NewReporter(2)

	if err := r.Record(ExecutionRecord{SliceIndex: 0, Status: StatusSucceeded, Timestamp: time.Now()}); err != nil {
		t.Fatalf("first terminal record: %v", err)
	}
	err := r.Record(ExecutionRecord{SliceIndex: 0, Status: StatusFailed, Timestamp: time.Now()})
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Errorf("second terminal record: err = %v, want ErrDuplicateRecord", err)
	}

	// Non-terminal entries are not guarded.
	if err := r.Record(ExecutionRecord{SliceIndex: 1, Status: StatusExecuting, Timestamp: time.Now()}); err != nil {
		t.Errorf("executing record: %v", err)
	}
	if err := r.Record(ExecutionRecord{SliceIndex: 1, Status: StatusExecuting, Timestamp: time.Now()}); err != nil {
		t.Errorf("repeated executing record: %v", err)
	}
}

func TestReporterIndexOutOfRange(t *testing.T) {
	r := NewReporter(2)
	if err := r.Record(ExecutionRecord{SliceIndex: 2, Status: StatusSucceeded}); err == nil {
		t.Error("expected error for out-of-range slice index")
	}
	if err := r.Record(ExecutionRecord{SliceIndex: -1, Status: StatusSucceeded}); err == nil {
		t.Error("expected error for negative slice index")
	}
}

func TestReporterSink(t *testing.T) {
	var seen []ExecutionRecord
	sink := SinkFunc(func(rec ExecutionRecord) error {
		seen = append(seen, rec)
		return nil
	})

	r := NewReporter(1, sink)
	rec := ExecutionRecord{SliceIndex: 0, Status: StatusSucceeded, Timestamp: time.Now(), MakingAmount: "10"}
	if err := r.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(seen) != 1 || seen[0].SliceIndex != 0 {
		t.Errorf("sink saw %+v, want the recorded entry", seen)
	}

	failing := SinkFunc(func(ExecutionRecord) error { return errors.New("disk full") })
	r2 := NewReporter(1, failing)
	if err := r2.Record(rec); err == nil {
		t.Error("expected sink error to propagate")
	}
}

func TestReporterWriteJSON(t *testing.T) {
	r := NewReporter(1)
	if err := r.Record(ExecutionRecord{SliceIndex: 0, Status: StatusSucceeded, Timestamp: time.Now(), Reference: "ref-1", MakingAmount: "5"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var out []ExecutionRecord
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not a JSON array of records: %v", err)
	}
	if len(out) != 1 || out[0].Reference != "ref-1" || out[0].Status != StatusSucceeded {
		t.Errorf("round-trip records = %+v", out)
	}
}
