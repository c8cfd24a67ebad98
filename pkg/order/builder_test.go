package order

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestSliceAmountsExactSum(t *testing.T) {
	cases := []struct {
		total int64
		n     int
		want  []int64
	}{
		{100, 3, []int64{33, 33, 34}}, // remainder lands on last slice
		{100, 1, []int64{100}},
		{100, 4, []int64{25, 25, 25, 25}},
		{7, 3, []int64{2, 2, 3}},
		{1, 1, []int64{1}},
		{5, 10, []int64{0, 0, 0, 0, 0, 0, 0, 0, 0, 5}}, // n > total: base is zero
	}

	for _, tc := range cases {
		amounts, err := SliceAmounts(big.NewInt(tc.total), tc.n)
		if err != nil {
			t.Fatalf("SliceAmounts(%d, %d): %v", tc.total, tc.n, err)
		}
		if len(amounts) != tc.n {
			t.Fatalf("SliceAmounts(%d, %d): got %d slices, want %d", tc.total, tc.n, len(amounts), tc.n)
		}

		sum := new(big.Int)
		for i, a := range amounts {
			if a.Int64() != tc.want[i] {
				t.Errorf("SliceAmounts(%d, %d)[%d] = %d, want %d", tc.total, tc.n, i, a.Int64(), tc.want[i])
			}
			sum.Add(sum, a)
		}
		if sum.Int64() != tc.total {
			t.Errorf("SliceAmounts(%d, %d) sum = %d, want %d", tc.total, tc.n, sum.Int64(), tc.total)
		}
	}
}

func TestSliceAmountsInvalidParameters(t *testing.T) {
	if _, err := SliceAmounts(big.NewInt(0), 3); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("zero total: err = %v, want ErrInvalidParameters", err)
	}
	if _, err := SliceAmounts(big.NewInt(-5), 3); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("negative total: err = %v, want ErrInvalidParameters", err)
	}
	if _, err := SliceAmounts(big.NewInt(100), 0); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("zero slices: err = %v, want ErrInvalidParameters", err)
	}
	if _, err := SliceAmounts(nil, 3); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("nil total: err = %v, want ErrInvalidParameters", err)
	}
}

func testBuilder() *Builder {
	return &Builder{
		Maker:      common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"),
		MakerAsset: common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"), // USDC
		TakerAsset: common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"), // WETH
		Expiry:     5 * time.Minute,
	}
}

func TestBuildOrder(t *testing.T) {
	b := testBuilder()
	now := time.Now()

	o, err := b.Build(big.NewInt(1000), big.NewInt(500), now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if o.MakingAmount.Int64() != 1000 || o.TakingAmount.Int64() != 500 {
		t.Errorf("amounts = %v/%v, want 1000/500", o.MakingAmount, o.TakingAmount)
	}
	if o.Expiration.Int64() != now.Add(5*time.Minute).Unix() {
		t.Errorf("expiration = %d, want %d", o.Expiration.Int64(), now.Add(5*time.Minute).Unix())
	}
	if o.Expiration.Int64() <= now.Unix() {
		t.Error("expiration not in the future")
	}
	// Receiver defaults to maker
	if o.Receiver != b.Maker {
		t.Errorf("receiver = %s, want maker %s", o.Receiver.Hex(), b.Maker.Hex())
	}
	if o.Salt == nil || o.Salt.Sign() == 0 {
		t.Error("salt not populated")
	}
}

func TestBuildOrderUniqueSalts(t *testing.T) {
	b := testBuilder()
	now := time.Now()

	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		o, err := b.Build(big.NewInt(10), big.NewInt(5), now)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		key := o.Salt.String()
		if seen[key] {
			t.Fatalf("duplicate salt after %d orders", i)
		}
		seen[key] = true
	}
}

func TestBuildOrderInvalidParameters(t *testing.T) {
	b := testBuilder()
	now := time.Now()

	if _, err := b.Build(big.NewInt(0), big.NewInt(5), now); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("zero makingAmount: err = %v, want ErrInvalidParameters", err)
	}
	if _, err := b.Build(big.NewInt(10), big.NewInt(-1), now); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("negative takingAmount: err = %v, want ErrInvalidParameters", err)
	}

	b.Expiry = 0
	if _, err := b.Build(big.NewInt(10), big.NewInt(5), now); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("zero expiry: err = %v, want ErrInvalidParameters", err)
	}
}
