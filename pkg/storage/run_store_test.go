package storage

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ohsung/twapkit/pkg/crypto"
	"github.com/ohsung/twapkit/pkg/order"
	"github.com/ohsung/twapkit/pkg/twap"
)

func openTestStore(t *testing.T) *RunStore {
	t.Helper()
	store, err := NewRunStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunMetaRoundTrip(t *testing.T) {
	store := openTestStore(t)

	meta := RunMeta{
		RunID:       "run-1",
		StartedAt:   time.Now().UTC().Truncate(time.Second),
		TotalAmount: "1000000",
		SliceCount:  4,
		MakerAsset:  "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
		TakerAsset:  "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619",
	}
	if err := store.SaveRun(meta); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	loaded, err := store.LoadRun("run-1")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if loaded == nil || loaded.SliceCount != 4 || loaded.TotalAmount != "1000000" {
		t.Errorf("loaded = %+v", loaded)
	}

	missing, err := store.LoadRun("nope")
	if err != nil {
		t.Fatalf("LoadRun missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown run, got %+v", missing)
	}
}

func TestSinkPreservesOrder(t *testing.T) {
	store := openTestStore(t)
	sink := store.Sink("run-2")

	recs := []twap.ExecutionRecord{
		{SliceIndex: 0, Status: twap.StatusExecuting, Timestamp: time.Now()},
		{SliceIndex: 0, Status: twap.StatusSucceeded, Timestamp: time.Now(), Reference: "tx-1", MakingAmount: "33"},
		{SliceIndex: 1, Status: twap.StatusExecuting, Timestamp: time.Now()},
		{SliceIndex: 1, Status: twap.StatusFailed, Timestamp: time.Now(), Error: "fill: rejected"},
	}
	for _, rec := range recs {
		if err := sink.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	loaded, err := store.LoadRecords("run-2")
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(loaded) != len(recs) {
		t.Fatalf("loaded %d records, want %d", len(loaded), len(recs))
	}
	for i, rec := range loaded {
		if rec.SliceIndex != recs[i].SliceIndex || rec.Status != recs[i].Status {
			t.Errorf("record %d = %+v, want %+v", i, rec, recs[i])
		}
	}

	// Records from other runs are invisible.
	other, err := store.LoadRecords("run-other")
	if err != nil {
		t.Fatalf("LoadRecords other: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("unexpected records for other run: %+v", other)
	}
}

func TestOrderRoundTrip(t *testing.T) {
	store := openTestStore(t)

	key, _ := crypto.GenerateKey()
	b := &order.Builder{
		Maker:      key.Address(),
		MakerAsset: common.HexToAddress("0x01"),
		TakerAsset: common.HexToAddress("0x02"),
		Expiry:     time.Minute,
	}
	signer := order.NewSigner(order.DefaultDomain())

	for i := 0; i < 3; i++ {
		o, err := b.Build(big.NewInt(int64(100+i)), big.NewInt(50), time.Now())
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		signed, err := signer.Sign(key, o)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if err := store.SaveOrder("run-3", i, signed); err != nil {
			t.Fatalf("SaveOrder: %v", err)
		}
	}

	payloads, err := store.LoadOrders("run-3")
	if err != nil {
		t.Fatalf("LoadOrders: %v", err)
	}
	if len(payloads) != 3 {
		t.Fatalf("loaded %d orders, want 3", len(payloads))
	}
	for i, p := range payloads {
		if p.MakingAmount != big.NewInt(int64(100+i)).String() {
			t.Errorf("order %d makingAmount = %s", i, p.MakingAmount)
		}
		if p.Signature == "" {
			t.Errorf("order %d missing signature", i)
		}
	}
}
