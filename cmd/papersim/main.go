package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/desk"
	"github.com/peter-kozarec/paperdesk/pkg/engine"
	"github.com/peter-kozarec/paperdesk/pkg/feed/synthetic"
	"github.com/peter-kozarec/paperdesk/pkg/journal"
	"github.com/peter-kozarec/paperdesk/pkg/middleware"
	"github.com/peter-kozarec/paperdesk/pkg/portfolio"
	"github.com/peter-kozarec/paperdesk/pkg/risk"
	"github.com/peter-kozarec/paperdesk/pkg/statestore"
	"github.com/peter-kozarec/paperdesk/pkg/utility"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

const version = "0.1.0"

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	logger.Info("papersim "+version, zap.Uint64("session", utility.SessionID()))
	defer logger.Info("done")

	configPath := flag.String("config", "", "path to TOML config")
	flag.Parse()

	cfg, err := Load(*configPath)
	if err != nil {
		logger.Fatal("error loading config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger, cfg Config) error {
	guard := risk.NewGuard(
		risk.WithMaxDrawdown(fixed.FromFloat64(cfg.Risk.MaxDrawdown)),
		risk.WithMaxInstrumentNotional(fixed.FromFloat64(cfg.Risk.MaxInstrumentNotional)),
		risk.WithMaxNetExposure(fixed.FromFloat64(cfg.Risk.MaxNetExposure)),
	)

	pf := portfolio.New(cfg.Account.Asset, guard)
	pf.Deposit(cfg.Account.Asset, fixed.FromFloat64(cfg.Account.Deposit))

	options := []desk.Option{
		desk.WithFundingSimulator(desk.NewIntervalFundingSimulator(8 * time.Hour)),
		desk.WithSnapshotInterval(cfg.SnapshotInterval()),
	}

	if cfg.Journal.Enabled {
		j, err := journal.OpenDuckDB(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer func() {
			_ = j.Close()
		}()
		if err := j.CreateTable(ctx); err != nil {
			return err
		}
		options = append(options, desk.WithJournal(j))
	}

	if cfg.State.Enabled {
		options = append(options, desk.WithStateStore(statestore.NewFileStore(cfg.State.Path)))
	}

	monitor := middleware.NewMonitor(middleware.MonitorFills | middleware.MonitorRejected |
		middleware.MonitorFunding | middleware.MonitorLiquidations | middleware.MonitorFaults)
	telemetry := middleware.NewTelemetry(logger)

	options = append(options, desk.WithEventHandler(
		middleware.Chain(middleware.Noop, telemetry.With, monitor.With)))

	d := desk.New(pf, options...)
	if err := d.Restore(); err != nil {
		return err
	}
	defer telemetry.PrintStatistics()

	start := time.Now().UTC()
	duration := time.Duration(cfg.Session.DurationMinutes) * time.Minute
	rng := rand.New(rand.NewSource(cfg.Session.Seed))

	spotId := common.NewInstrumentId("paper", "BTC-USDT", common.InstrumentSpot)
	spot := common.InstrumentSpec{
		Id:           spotId,
		PriceTick:    fixed.FromFloat64(0.01),
		SizeTick:     fixed.FromFloat64(0.0001),
		MinQuantity:  fixed.FromFloat64(0.0001),
		MinNotional:  fixed.FromInt(10, 0),
		MakerFeeRate: fixed.FromFloat64(0.001),
		TakerFeeRate: fixed.FromFloat64(0.002),
	}

	perpId := common.NewInstrumentId("paper", "BTC-USDT", common.InstrumentPerpetual)
	perp := spot
	perp.Id = perpId
	perp.MarginInitRatio = fixed.One
	perp.MarginMaintRatio = fixed.FromFloat64(0.005)
	perp.MaxLeverage = fixed.FromInt(20, 0)
	perp.FundingInterval = 8 * time.Hour

	engineOptions := []engine.Option{
		engine.WithLatencyModel(engine.NewFixedLatencyModel(time.Duration(cfg.Session.LatencyMs) * time.Millisecond)),
		engine.WithFillModel(engine.NewTopOfBookFillModel(cfg.Session.Seed, cfg.Session.FillProbability)),
	}

	spotFeed := synthetic.NewBtcUsdtBookGenerator(rng, start, duration, cfg.Session.MuAnnual, cfg.Session.SigmaAnnual)
	perpFeed := synthetic.NewBtcUsdtBookGenerator(rng, start, duration, cfg.Session.MuAnnual, cfg.Session.SigmaAnnual)

	if err := d.RegisterInstrument(spot, spotFeed, engineOptions...); err != nil {
		return err
	}
	if err := d.RegisterInstrument(perp, perpFeed, engineOptions...); err != nil {
		return err
	}

	strategy := newReversionStrategy(d, spotId, fixed.FromFloat64(cfg.Session.OrderSize))

	logger.Info("session start",
		zap.Time("start", start),
		zap.Duration("duration", duration),
		zap.Int64("seed", cfg.Session.Seed),
	)

	var equityCurve []fixed.Point
	now := start

	for !d.Exhausted() {
		select {
		case <-ctx.Done():
			logger.Info("interrupted")
			d.CancelAll(now)
			return nil
		default:
		}

		now = now.Add(time.Second)
		d.Tick(ctx, now)

		strategy.OnTick(now)
		equityCurve = append(equityCurve, pf.Equity())
	}

	d.CancelAll(now)
	report(logger, d, equityCurve)
	return nil
}

func report(logger *zap.Logger, d *desk.Desk, equityCurve []fixed.Point) {
	stats := d.Stats()

	fields := []zap.Field{
		zap.String("equity", stats.Equity.String()),
		zap.String("peak_equity", stats.PeakEquity.String()),
		zap.String("drawdown", stats.Drawdown.String()),
	}
	if len(equityCurve) > 0 {
		fields = append(fields, zap.String("max_drawdown", fixed.MaxDrawdown(equityCurve).String()))
	}
	for _, es := range stats.Engines {
		logger.Info("instrument summary",
			zap.String("instrument", es.Instrument.Key()),
			zap.Uint64("fills", es.FillCount),
			zap.Uint64("rejects", es.RejectCount),
			zap.Float64("avg_queue_delay_ms", es.AvgQueueDelayMs),
		)
	}
	logger.Info("session summary", fields...)
}
