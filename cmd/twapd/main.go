package main

import (
	"context"
	"log"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ohsung/twapkit/params"
	"github.com/ohsung/twapkit/pkg/api"
	"github.com/ohsung/twapkit/pkg/crypto"
	"github.com/ohsung/twapkit/pkg/fill"
	"github.com/ohsung/twapkit/pkg/order"
	"github.com/ohsung/twapkit/pkg/quote"
	"github.com/ohsung/twapkit/pkg/storage"
	"github.com/ohsung/twapkit/pkg/twap"
	"github.com/ohsung/twapkit/pkg/util"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// ---- Maker key ----
	privHex := strings.TrimPrefix(os.Getenv("MAKER_PRIVATE_KEY"), "0x")
	if privHex == "" {
		sugar.Error("MAKER_PRIVATE_KEY not set")
		return 2
	}
	key, err := crypto.FromPrivateKeyHex(privHex)
	if err != nil {
		sugar.Errorw("invalid maker key", "err", err)
		return 2
	}
	sugar.Infow("maker_loaded", "address", key.Address().Hex())

	// ---- Plan ----
	plan, err := twap.NewPlan(cfg.Plan.TotalAmount, cfg.Plan.SliceCount, cfg.Plan.Interval)
	if err != nil {
		sugar.Errorw("invalid plan", "err", err)
		return 2
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	sugar.Infow("run_starting",
		"run_id", runID,
		"total_amount", plan.TotalAmount.String(),
		"slice_count", plan.SliceCount,
		"interval", plan.Interval.String(),
		"maker_asset", cfg.Plan.MakerAsset,
		"taker_asset", cfg.Plan.TakerAsset)

	// ---- Durable store ----
	store, err := storage.NewRunStore(filepath.Join(cfg.DataDir, "runs"))
	if err != nil {
		sugar.Errorw("run store init failed", "err", err)
		return 2
	}
	defer store.Close()

	sliceAmounts := make([]string, len(plan.Amounts))
	for i, a := range plan.Amounts {
		sliceAmounts[i] = a.String()
	}
	if err := store.SaveRun(storage.RunMeta{
		RunID:       runID,
		StartedAt:   time.Now().UTC(),
		TotalAmount: plan.TotalAmount.String(),
		SliceCount:  plan.SliceCount,
		MakerAsset:  cfg.Plan.MakerAsset,
		TakerAsset:  cfg.Plan.TakerAsset,
	}); err != nil {
		sugar.Errorw("run meta save failed", "err", err)
		return 2
	}

	// ---- Status API ----
	// The server reads the reporter's log; the reporter broadcasts each
	// record through the server's sink. The indirection below breaks the
	// construction cycle.
	var apiServer *api.Server
	reporterSinks := []twap.Sink{store.Sink(runID)}
	if cfg.APIAddr != "" {
		reporterSinks = append(reporterSinks, twap.SinkFunc(func(rec twap.ExecutionRecord) error {
			if apiServer != nil {
				return apiServer.Sink().Append(rec)
			}
			return nil
		}))
	}
	reporter := twap.NewReporter(plan.SliceCount, reporterSinks...)

	if cfg.APIAddr != "" {
		apiServer = api.NewServer(api.PlanInfo{
			RunID:           runID,
			TotalAmount:     plan.TotalAmount.String(),
			SliceCount:      plan.SliceCount,
			IntervalSeconds: int64(plan.Interval / time.Second),
			MakerAsset:      cfg.Plan.MakerAsset,
			TakerAsset:      cfg.Plan.TakerAsset,
			Maker:           key.Address().Hex(),
			SliceAmounts:    sliceAmounts,
		}, reporter, sugar)
		go func() {
			if err := apiServer.Start(cfg.APIAddr); err != nil {
				sugar.Errorw("status api failed", "err", err)
			}
		}()
	}

	// ---- Collaborators ----
	apiKey := os.Getenv("ONEINCH_API_KEY")
	quoter := quote.New(cfg.Endpoints.QuoteBaseURL, apiKey, sugar)
	filler := fill.New(cfg.Endpoints.FillBaseURL, apiKey, sugar)

	domain := order.Domain{
		Name:              cfg.Protocol.DomainName,
		Version:           cfg.Protocol.DomainVersion,
		ChainID:           big.NewInt(cfg.Protocol.ChainID),
		VerifyingContract: common.HexToAddress(cfg.Protocol.VerifyingContract),
	}

	scheduler := twap.NewScheduler(twap.SchedulerConfig{
		Logger: sugar,
		Builder: &order.Builder{
			Maker:      key.Address(),
			MakerAsset: common.HexToAddress(cfg.Plan.MakerAsset),
			TakerAsset: common.HexToAddress(cfg.Plan.TakerAsset),
			Expiry:     cfg.Plan.OrderExpiry,
		},
		Signer:      order.NewSigner(domain),
		Key:         key,
		Quote:       quoter.Quote,
		Fill:        filler.Fill,
		FillTimeout: cfg.Endpoints.FillTimeout,
		Reporter:    reporter,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := scheduler.Run(ctx, plan)
	if err != nil {
		sugar.Errorw("run aborted", "err", err)
		return 2
	}

	// Persist the signed orders that made it to submission.
	for i, signed := range plan.Slices {
		if signed == nil {
			continue
		}
		if err := store.SaveOrder(runID, i, signed); err != nil {
			sugar.Warnw("order save failed", "slice", i, "err", err)
		}
	}

	// Export the execution log as a JSON array next to the store.
	exportPath := filepath.Join(cfg.DataDir, "execution-"+runID+".json")
	if f, err := os.Create(exportPath); err == nil {
		if err := reporter.WriteJSON(f); err != nil {
			sugar.Warnw("log export failed", "err", err)
		}
		f.Close()
		sugar.Infow("log_exported", "path", exportPath)
	} else {
		sugar.Warnw("log export failed", "path", exportPath, "err", err)
	}

	sugar.Infow("run_finished",
		"run_id", runID,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"cancelled", summary.Cancelled,
		"total_executed", summary.TotalExecuted.String())

	if !summary.Complete() {
		return 1
	}
	return 0
}
