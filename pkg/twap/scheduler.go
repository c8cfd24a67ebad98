package twap

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/ohsung/twapkit/pkg/crypto"
	"github.com/ohsung/twapkit/pkg/order"
	"github.com/ohsung/twapkit/pkg/util"
)

// FillResult is what the external submission backend reports for one
// signed order.
type FillResult struct {
	Success   bool
	Reference string // external order/tx reference, opaque to the core
	Err       error
}

// FillFunc submits a signed order for settlement. The scheduler treats it
// as a black box; the context carries the per-slice timeout.
type FillFunc func(ctx context.Context, signed *order.SignedOrder) FillResult

// QuoteFunc prices one slice: how much takerAsset the maker should expect
// for makingAmount of makerAsset. The core never invents a fallback price.
type QuoteFunc func(ctx context.Context, makerAsset, takerAsset common.Address, makingAmount *big.Int) (*big.Int, error)

// Scheduler drives a plan's slices strictly in index order. Slice i
// becomes eligible at planStart + i*interval; slice i+1 is never attempted
// before slice i reaches a terminal state, so exposure never exceeds one
// in-flight order. Failed slices are logged and the plan proceeds: a
// time-sliced order is tied to its window, so there are no retries.
type Scheduler struct {
	clock       util.Clock
	log         *zap.SugaredLogger
	builder     *order.Builder
	signer      *order.Signer
	key         *crypto.MakerKey
	quote       QuoteFunc
	fill        FillFunc
	fillTimeout time.Duration
	reporter    *Reporter
}

// SchedulerConfig wires the scheduler's collaborators. Clock and Logger
// default to the real clock and a no-op logger when nil.
type SchedulerConfig struct {
	Clock       util.Clock
	Logger      *zap.SugaredLogger
	Builder     *order.Builder
	Signer      *order.Signer
	Key         *crypto.MakerKey
	Quote       QuoteFunc
	Fill        FillFunc
	FillTimeout time.Duration
	Reporter    *Reporter
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = util.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		clock:       cfg.Clock,
		log:         cfg.Logger,
		builder:     cfg.Builder,
		signer:      cfg.Signer,
		key:         cfg.Key,
		quote:       cfg.Quote,
		fill:        cfg.Fill,
		fillTimeout: cfg.FillTimeout,
		reporter:    cfg.Reporter,
	}
}

// Reporter exposes the execution log backing this scheduler.
func (s *Scheduler) Reporter() *Reporter { return s.reporter }

// Run executes the plan and returns the final summary. Per-slice failures
// are recorded and do not abort the run; the only error returns are
// internal contract violations (a duplicate terminal record) and sink
// failures. Cancellation via ctx transitions all remaining slices to
// Cancelled and returns the summary normally.
func (s *Scheduler) Run(ctx context.Context, plan *Plan) (Summary, error) {
	start := s.clock.Now()
	s.log.Infow("plan_started",
		"total_amount", plan.TotalAmount.String(),
		"slice_count", plan.SliceCount,
		"interval", plan.Interval.String())

	for i := range plan.Amounts {
		due := start.Add(time.Duration(i) * plan.Interval)

		if err := s.waitUntil(ctx, due); err != nil {
			return s.cancelFrom(plan, i)
		}
		// A cancel racing the timer loses deliberately: check again before
		// committing to execution.
		if ctx.Err() != nil {
			return s.cancelFrom(plan, i)
		}

		if err := s.reporter.Record(ExecutionRecord{
			SliceIndex: i,
			Status:     StatusExecuting,
			Timestamp:  s.clock.Now(),
		}); err != nil {
			return Summary{}, err
		}

		if err := s.executeSlice(ctx, plan, i); err != nil {
			return Summary{}, err
		}
	}

	summary := s.reporter.Summary()
	s.log.Infow("plan_finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"cancelled", summary.Cancelled,
		"total_executed", summary.TotalExecuted.String())
	return summary, nil
}

// executeSlice runs quote -> build -> sign -> fill for slice i and records
// the terminal state. The returned error is only non-nil for reporter
// contract violations.
func (s *Scheduler) executeSlice(ctx context.Context, plan *Plan, i int) error {
	makingAmount := plan.Amounts[i]

	takingAmount, err := s.quote(ctx, s.builder.MakerAsset, s.builder.TakerAsset, makingAmount)
	if err != nil {
		s.log.Warnw("slice_quote_failed", "slice", i, "err", err)
		return s.recordFailed(plan, i, fmt.Errorf("quote: %w", err))
	}

	o, err := s.builder.Build(makingAmount, takingAmount, s.clock.Now())
	if err != nil {
		s.log.Warnw("slice_build_failed", "slice", i, "err", err)
		return s.recordFailed(plan, i, fmt.Errorf("build: %w", err))
	}

	signed, err := s.signer.Sign(s.key, o)
	if err != nil {
		s.log.Warnw("slice_sign_failed", "slice", i, "err", err)
		return s.recordFailed(plan, i, fmt.Errorf("sign: %w", err))
	}
	plan.Slices[i] = signed

	fillCtx := ctx
	if s.fillTimeout > 0 {
		var cancel context.CancelFunc
		fillCtx, cancel = context.WithTimeout(ctx, s.fillTimeout)
		defer cancel()
	}

	res := s.fill(fillCtx, signed)
	if !res.Success {
		fillErr := res.Err
		if fillErr == nil {
			fillErr = fmt.Errorf("fill rejected")
		}
		s.log.Warnw("slice_fill_failed", "slice", i, "order_hash", signed.OrderHash.Hex(), "err", fillErr)
		return s.recordFailed(plan, i, fmt.Errorf("fill: %w", fillErr))
	}

	s.log.Infow("slice_filled",
		"slice", i,
		"making_amount", makingAmount.String(),
		"taking_amount", takingAmount.String(),
		"order_hash", signed.OrderHash.Hex(),
		"reference", res.Reference)
	return s.reporter.Record(ExecutionRecord{
		SliceIndex:   i,
		Status:       StatusSucceeded,
		Timestamp:    s.clock.Now(),
		Reference:    res.Reference,
		MakingAmount: makingAmount.String(),
	})
}

func (s *Scheduler) recordFailed(plan *Plan, i int, cause error) error {
	return s.reporter.Record(ExecutionRecord{
		SliceIndex: i,
		Status:     StatusFailed,
		Timestamp:  s.clock.Now(),
		Error:      cause.Error(),
	})
}

// cancelFrom marks slices from..end Cancelled without execution attempts
// and returns the summary.
func (s *Scheduler) cancelFrom(plan *Plan, from int) (Summary, error) {
	s.log.Infow("plan_cancelled", "first_cancelled_slice", from)
	for i := from; i < plan.SliceCount; i++ {
		if err := s.reporter.Record(ExecutionRecord{
			SliceIndex: i,
			Status:     StatusCancelled,
			Timestamp:  s.clock.Now(),
		}); err != nil {
			return Summary{}, err
		}
	}
	return s.reporter.Summary(), nil
}

// waitUntil blocks until due or cancellation, whichever comes first. A due
// time in the past returns immediately (slice 0, or a slow predecessor).
func (s *Scheduler) waitUntil(ctx context.Context, due time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := due.Sub(s.clock.Now())
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}
