package twap

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/ohsung/twapkit/pkg/crypto"
	"github.com/ohsung/twapkit/pkg/order"
	"github.com/ohsung/twapkit/pkg/util"
)

// RunParams is everything one TWAP run needs besides the key and the
// external collaborators.
type RunParams struct {
	TotalAmount *big.Int
	SliceCount  int
	Interval    time.Duration
	MakerAsset  common.Address
	TakerAsset  common.Address
	Receiver    common.Address // zero means proceeds go to the maker
	OrderExpiry time.Duration
	Domain      order.Domain
	FillTimeout time.Duration

	Clock  util.Clock          // nil means real clock
	Logger *zap.SugaredLogger  // nil means no-op
	Sinks  []Sink              // optional persistence/broadcast
}

// Run is the single entry point for callers: partition the total, then
// quote, build, sign and submit each slice at its scheduled window,
// returning the final summary. Only InvalidParameters aborts before the
// plan starts; per-slice errors are recorded and the run continues.
func Run(ctx context.Context, params RunParams, key *crypto.MakerKey, quote QuoteFunc, fill FillFunc) (Summary, error) {
	plan, err := NewPlan(params.TotalAmount, params.SliceCount, params.Interval)
	if err != nil {
		return Summary{}, err
	}

	builder := &order.Builder{
		Maker:      key.Address(),
		Receiver:   params.Receiver,
		MakerAsset: params.MakerAsset,
		TakerAsset: params.TakerAsset,
		Expiry:     params.OrderExpiry,
	}

	scheduler := NewScheduler(SchedulerConfig{
		Clock:       params.Clock,
		Logger:      params.Logger,
		Builder:     builder,
		Signer:      order.NewSigner(params.Domain),
		Key:         key,
		Quote:       quote,
		Fill:        fill,
		FillTimeout: params.FillTimeout,
		Reporter:    NewReporter(params.SliceCount, params.Sinks...),
	})

	return scheduler.Run(ctx, plan)
}
