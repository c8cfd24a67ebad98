// Package storage persists execution runs to a local Pebble database so
// the log survives the process. The in-memory reporter stays the source
// of truth during a run; this is the durable copy.
package storage

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/ohsung/twapkit/pkg/order"
	"github.com/ohsung/twapkit/pkg/twap"
)

// RunMeta describes one TWAP run for later inspection.
type RunMeta struct {
	RunID       string    `json:"runId"`
	StartedAt   time.Time `json:"startedAt"`
	TotalAmount string    `json:"totalAmount"`
	SliceCount  int       `json:"sliceCount"`
	MakerAsset  string    `json:"makerAsset"`
	TakerAsset  string    `json:"takerAsset"`
}

type RunStore struct {
	db *pebble.DB
}

func NewRunStore(path string) (*RunStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return &RunStore{db: db}, nil
}

func (s *RunStore) Close() error { return s.db.Close() }

// SaveRun persists the run metadata.
func (s *RunStore) SaveRun(meta RunMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal run meta: %w", err)
	}
	if err := s.db.Set(runKey(meta.RunID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save run meta: %w", err)
	}
	return nil
}

// LoadRun loads run metadata; returns nil when the run is unknown.
func (s *RunStore) LoadRun(runID string) (*RunMeta, error) {
	data, closer, err := s.db.Get(runKey(runID))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run meta: %w", err)
	}
	defer closer.Close()

	var meta RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run meta: %w", err)
	}
	return &meta, nil
}

// Sink returns a twap.Sink that appends each execution record under the
// given run, in arrival order.
func (s *RunStore) Sink(runID string) twap.Sink {
	var seq atomic.Uint64
	return twap.SinkFunc(func(rec twap.ExecutionRecord) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		key := recordKey(runID, seq.Add(1))
		if err := s.db.Set(key, data, pebble.Sync); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}
		return nil
	})
}

// LoadRecords returns a run's execution records in append order.
func (s *RunStore) LoadRecords(runID string) ([]twap.ExecutionRecord, error) {
	prefix := recordPrefix(runID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var records []twap.ExecutionRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var rec twap.ExecutionRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // skip invalid entries
		}
		records = append(records, rec)
	}
	return records, nil
}

// SaveOrder persists one slice's signed order payload.
func (s *RunStore) SaveOrder(runID string, sliceIndex int, signed *order.SignedOrder) error {
	data, err := signed.Serialize()
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := s.db.Set(orderKey(runID, sliceIndex), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// LoadOrders returns a run's signed order payloads in slice order.
func (s *RunStore) LoadOrders(runID string) ([]*order.Payload, error) {
	prefix := orderPrefix(runID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var payloads []*order.Payload
	for iter.First(); iter.Valid(); iter.Next() {
		var p order.Payload
		if err := json.Unmarshal(iter.Value(), &p); err != nil {
			continue
		}
		payloads = append(payloads, &p)
	}
	return payloads, nil
}
