package twap

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ohsung/twapkit/pkg/order"
)

// Plan is one full multi-slice strategy: a sum-exact partition of
// TotalAmount executed at Interval spacing. Slices are signed lazily at
// their scheduled window so each one carries a fresh quote and expiry;
// the plan itself is not mutated after creation beyond that fill-in.
type Plan struct {
	TotalAmount *big.Int
	SliceCount  int
	Interval    time.Duration
	Amounts     []*big.Int           // per-slice making amounts, sum == TotalAmount
	Slices      []*order.SignedOrder // index-aligned; nil until the slice is signed
}

// NewPlan validates the inputs and partitions the total. Fails with
// order.ErrInvalidParameters before any execution starts.
func NewPlan(totalAmount *big.Int, sliceCount int, interval time.Duration) (*Plan, error) {
	if interval < 0 {
		return nil, fmt.Errorf("%w: interval must not be negative", order.ErrInvalidParameters)
	}
	amounts, err := order.SliceAmounts(totalAmount, sliceCount)
	if err != nil {
		return nil, err
	}
	return &Plan{
		TotalAmount: new(big.Int).Set(totalAmount),
		SliceCount:  sliceCount,
		Interval:    interval,
		Amounts:     amounts,
		Slices:      make([]*order.SignedOrder, sliceCount),
	}, nil
}
