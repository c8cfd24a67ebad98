package twap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"
)

// Status is a slice's position in its lifecycle. Terminal statuses are
// final; there is no retrying state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// ExecutionRecord is one append-only entry in the execution log. Entries
// are never mutated after creation.
type ExecutionRecord struct {
	SliceIndex   int       `json:"sliceIndex"`
	Status       Status    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Reference    string    `json:"reference,omitempty"` // external tx/order reference
	Error        string    `json:"error,omitempty"`
	MakingAmount string    `json:"makingAmount,omitempty"` // set on succeeded entries
}

// ErrDuplicateRecord means a slice index was recorded twice with a
// terminal status. That is a scheduler bug, not a runtime condition.
var ErrDuplicateRecord = errors.New("duplicate record")

// Sink receives each record as it is appended. Persistence and broadcast
// are pluggable; the in-memory log is the core behavior.
type Sink interface {
	Append(rec ExecutionRecord) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(rec ExecutionRecord) error

func (f SinkFunc) Append(rec ExecutionRecord) error { return f(rec) }

// Summary aggregates the log: per-status counts and the total making
// amount successfully executed.
type Summary struct {
	Succeeded     int      `json:"succeeded"`
	Failed        int      `json:"failed"`
	Cancelled     int      `json:"cancelled"`
	Pending       int      `json:"pending"`
	TotalExecuted *big.Int `json:"totalExecuted"`
}

// Complete reports whether every slice succeeded.
func (s Summary) Complete() bool {
	return s.Failed == 0 && s.Cancelled == 0 && s.Pending == 0
}

// Reporter accumulates ExecutionRecords for one plan run. The log is
// owned by the single scheduling sequence; the mutex only guards the
// read-side API (status server) against the writer.
type Reporter struct {
	mu         sync.Mutex
	sliceCount int
	records    []ExecutionRecord
	terminal   map[int]Status
	executed   *big.Int
	sinks      []Sink
}

// NewReporter creates a Reporter for a plan of sliceCount slices. Sinks
// are invoked synchronously on every append; a sink error fails the
// append but the in-memory record is already committed.
func NewReporter(sliceCount int, sinks ...Sink) *Reporter {
	return &Reporter{
		sliceCount: sliceCount,
		terminal:   make(map[int]Status),
		executed:   new(big.Int),
		sinks:      sinks,
	}
}

// Record appends one entry. Returns ErrDuplicateRecord when a terminal
// status is recorded for a slice index that already has one.
func (r *Reporter) Record(rec ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.SliceIndex < 0 || rec.SliceIndex >= r.sliceCount {
		return fmt.Errorf("slice index %d out of range [0,%d)", rec.SliceIndex, r.sliceCount)
	}
	if rec.Status.Terminal() {
		if prev, ok := r.terminal[rec.SliceIndex]; ok {
			return fmt.Errorf("%w: slice %d already terminal (%s)", ErrDuplicateRecord, rec.SliceIndex, prev)
		}
		r.terminal[rec.SliceIndex] = rec.Status
	}
	r.records = append(r.records, rec)

	if rec.Status == StatusSucceeded && rec.MakingAmount != "" {
		if amount, ok := new(big.Int).SetString(rec.MakingAmount, 10); ok {
			r.executed.Add(r.executed, amount)
		}
	}

	for _, sink := range r.sinks {
		if err := sink.Append(rec); err != nil {
			return fmt.Errorf("sink append failed: %w", err)
		}
	}
	return nil
}

// Records returns a copy of the log in append order.
func (r *Reporter) Records() []ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ExecutionRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Summary returns aggregate counts and total executed amount.
func (r *Reporter) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{TotalExecuted: new(big.Int).Set(r.executed)}
	for _, status := range r.terminal {
		switch status {
		case StatusSucceeded:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	s.Pending = r.sliceCount - len(r.terminal)
	return s
}

// WriteJSON writes the log as a JSON array of records, the durable
// layout consumers of the execution log expect.
func (r *Reporter) WriteJSON(w io.Writer) error {
	records := r.Records()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
