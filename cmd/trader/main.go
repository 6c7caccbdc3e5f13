package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/crypto-trading/trading/internal/config"
	"github.com/crypto-trading/trading/internal/costmodel"
	"github.com/crypto-trading/trading/internal/domain"
	"github.com/crypto-trading/trading/internal/eventbus"
	"github.com/crypto-trading/trading/internal/execution"
	"github.com/crypto-trading/trading/internal/gateway"
	"github.com/crypto-trading/trading/internal/gateway/kcex"
	"github.com/crypto-trading/trading/internal/gateway/nobitex"
	"github.com/crypto-trading/trading/internal/gateway/simulated"
	"github.com/crypto-trading/trading/internal/marketdata"
	"github.com/crypto-trading/trading/internal/monitor"
	"github.com/crypto-trading/trading/internal/order"
	"github.com/crypto-trading/trading/internal/persistence"
	"github.com/crypto-trading/trading/internal/portfolio"
	"github.com/crypto-trading/trading/internal/risk"
	"github.com/crypto-trading/trading/internal/triarb"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	confirmLive := flag.Bool("confirm-live", false, "Confirm live trading mode")
	flag.Parse()

	logger := initLogger("INFO")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger = initLogger(cfg.System.LogLevel)
	logger.Info("configuration loaded",
		"instance_id", cfg.System.InstanceID,
		"trading_mode", cfg.System.TradingMode,
	)

	tradingMode := domain.TradingMode(cfg.System.TradingMode)
	if tradingMode == domain.TradingModeLive {
		if cfg.System.RequireLiveConfirmation && !*confirmLive {
			logger.Error("LIVE TRADING requires --confirm-live flag")
			os.Exit(1)
		}
		logger.Warn("=== LIVE TRADING ACTIVE ===")
	} else {
		logger.Info("running in mode", "mode", cfg.System.TradingMode)
	}

	configureRuntime(cfg.Runtime, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	reg := prometheus.DefaultRegisterer
	metrics := monitor.NewMetrics(reg)

	tracerShutdown, err := monitor.InitTracer(cfg.System.InstanceID, logger)
	if err != nil {
		logger.Warn("failed to initialize tracer", "error", err)
	}

	alertMgr := monitor.NewAlertManager(cfg.Monitoring.Alerting.Channels, logger)

	bus := eventbus.New(1024, logger)

	sqliteStore, err := persistence.NewSQLiteStore(cfg.Persistence.CheckpointDB, logger)
	if err != nil {
		logger.Error("failed to initialize SQLite store", "error", err)
		os.Exit(1)
	}
	defer sqliteStore.Close()

	var pgStore *persistence.PostgresStore
	if cfg.Persistence.ColdStoreDSN != "" {
		pgStore, err = persistence.NewPostgresStore(ctx, cfg.Persistence.ColdStoreDSN, cfg.Persistence.ColdStorePoolSize, logger)
		if err != nil {
			logger.Warn("PostgreSQL cold store unavailable, continuing without it", "error", err)
		} else if pgStore != nil {
			defer pgStore.Close()
			if err := pgStore.RunMigrations(ctx); err != nil {
				logger.Error("failed to run PostgreSQL migrations", "error", err)
			}
		}
	}

	asyncWriter := persistence.NewAsyncWriter(sqliteStore, pgStore, 10000, logger)
	asyncWriter.Run()

	mdService := marketdata.NewService(
		bus,
		cfg.Risk.DataFreshness.WarningDuration(),
		cfg.Risk.DataFreshness.BlockDuration(),
		logger,
	)

	gateways := buildGateways(cfg, mdService, tradingMode, logger)

	costSvc := costmodel.NewService(
		gateways,
		cfg.CostModel.FeeTierRefreshInterval(),
		cfg.CostModel.FundingRateLookbackIntervals,
		logger,
	)

	riskMgr := risk.NewManager(
		&cfg.Risk,
		mdService,
		"data/killswitch.json",
		logger,
	)

	orderMgr := order.NewManager(gateways, bus, logger)

	execEngine := execution.NewEngine(orderMgr, logger)

	riskMgr.SetKillSwitchCallback(execEngine.KillSwitchHandler(ctx))

	portfolioMgr := portfolio.NewManager(mdService, cfg.System.TradingMode, logger)

	reconciler := portfolio.NewReconciler(
		portfolioMgr,
		gateways,
		cfg.Risk.Reconciliation.Interval(),
		cfg.Risk.Reconciliation.MismatchThresholdPct,
		logger,
	)
	reconciler.SetMismatchCallback(func(venue string) {
		alertMgr.Fire(monitor.AlertLevelP1, "reconciliation_mismatch",
			fmt.Sprintf("position diff > %.1f%% on %s", cfg.Risk.Reconciliation.MismatchThresholdPct, venue),
			fmt.Sprintf("Trading blocked for venue %s until resolved", venue))
	})

	if cfg.Strategies.TriangularArb.Enabled {
		for venueName := range gateways {
			arbCfg := cfg.Strategies.TriangularArb.Arbitrage
			if liveFee, ok := costSvc.CurrentTakerFee(venueName); ok {
				arbCfg.TradeFee = liveFee
			}

			reqs := symbolRequirements(cfg.Venues[venueName])
			index := triarb.BuildIndex(reqs, logger)

			breaker := risk.NewCircuitBreaker(
				venueName,
				cfg.CircuitBreaker.NoNormalsInARow,
				func(reason string) { riskMgr.ActivateKillSwitch(reason) },
				metrics,
				logger,
			)

			detector := triarb.NewDetector(venueName, index, reqs, mdService, arbCfg, bus, metrics, logger)
			planner := triarb.NewPlanner(arbCfg.MinParallelActions, arbCfg.AmountReduceFactor, arbCfg.MinProfit, arbCfg.TradeFee, reqs)
			executor := triarb.NewExecutor(venueName, orderMgr, mdService, arbCfg, bus, breaker, execEngine.QualityTracker(), metrics, logger)

			go runTriArbScanner(ctx, bus, detector, logger)
			go runTriArbPipeline(ctx, bus, planner, executor, portfolioMgr, riskMgr, asyncWriter, venueName, logger)
		}
	}

	if riskMgr.IsKillSwitchActive() {
		logger.Warn("KILL SWITCH IS ACTIVE - system will remain halted until manually resumed")
	}

	for name, gw := range gateways {
		if err := gw.Connect(ctx); err != nil {
			logger.Error("failed to connect to venue", "venue", name, "error", err)
			os.Exit(1)
		}
		logger.Info("venue connected", "venue", name)
	}

	go costSvc.RunFeeTierRefresher(ctx)
	go mdService.RunHeartbeatMonitor(ctx)
	go riskMgr.RunPeriodicCheck(ctx)
	go reconciler.Run(ctx)

	go runCheckpointer(ctx, riskMgr, asyncWriter, cfg.Risk.CheckpointInterval(), logger)

	go startMetricsServer(logger)

	if err := config.WatchAndReload(*configPath, func(newCfg *config.Config) {
		logger.Info("configuration reloaded")
	}); err != nil {
		logger.Warn("config hot-reload setup failed", "error", err)
	}

	logger.Info("system started successfully",
		"instance_id", cfg.System.InstanceID,
		"trading_mode", cfg.System.TradingMode,
		"venues", len(gateways),
	)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	orderMgr.CancelAllOrders(shutdownCtx)

	for name, gw := range gateways {
		if err := gw.Close(); err != nil {
			logger.Error("failed to close venue gateway", "venue", name, "error", err)
		}
	}

	bus.Close()
	asyncWriter.Stop()

	if tracerShutdown != nil {
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracer", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func initLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "INFO":
		logLevel = slog.LevelInfo
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func configureRuntime(cfg config.RuntimeConfig, logger *slog.Logger) {
	if cfg.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.GoMaxProcs)
	}
	logger.Info("runtime configured",
		"GOMAXPROCS", runtime.GOMAXPROCS(0),
		"GOGC", cfg.GOGC,
		"GOMEMLIMIT", cfg.GoMemLimit,
	)

	if cfg.GOGC > 0 {
		debug.SetGCPercent(cfg.GOGC)
	}
}

func buildGateways(cfg *config.Config, mdService *marketdata.Service, mode domain.TradingMode, logger *slog.Logger) map[string]gateway.VenueGateway {
	gateways := make(map[string]gateway.VenueGateway)

	if mode == domain.TradingModeDryRun {
		for venueName, venueCfg := range cfg.Venues {
			if !venueCfg.Enabled {
				continue
			}

			fillSim := simulated.NewFillSimulator(
				cfg.DryRun.SimulatedLatencyMs,
				cfg.DryRun.RejectRatePct,
				decimal.NewFromFloat(2),
				decimal.NewFromFloat(5),
			)

			gw := simulated.New(
				venueName,
				fillSim,
				mdService,
				cfg.DryRun.InitialCapitalUSDT,
				cfg.DryRun.SimulatedLatencyMs,
				logger,
			)
			gateways[venueName] = gw
		}
		return gateways
	}

	for venueName, venueCfg := range cfg.Venues {
		if !venueCfg.Enabled {
			continue
		}

		apiKey := os.Getenv(fmt.Sprintf("%s_API_KEY", venueName))
		apiSecret := os.Getenv(fmt.Sprintf("%s_API_SECRET", venueName))

		switch venueName {
		case "nobitex":
			gw := nobitex.New(venueCfg.WsURL, venueCfg.RestURL, apiKey, apiSecret, logger)
			gateways[venueName] = gw
		case "kcex":
			gw := kcex.New(venueCfg.WsURL, venueCfg.RestURL, apiKey, apiSecret, logger)
			gateways[venueName] = gw
		default:
			logger.Warn("unknown venue, skipping", "venue", venueName)
		}
	}

	return gateways
}

// symbolRequirements translates the venue's configured lot sizes (mirroring
// the exchange adapter's load_symbols() contract) into the triarb indexer's
// input shape.
func symbolRequirements(venueCfg config.VenueConfig) map[string]domain.SymbolRequirements {
	reqs := make(map[string]domain.SymbolRequirements, len(venueCfg.LotSizes))
	for symbol, lot := range venueCfg.LotSizes {
		reqs[symbol] = domain.SymbolRequirements{
			Symbol:      symbol,
			Base:        lot.Base,
			Quote:       lot.Quote,
			MinAmount:   lot.MinAmount,
			MaxAmount:   lot.MaxAmount,
			AmountStep:  lot.AmountStep,
			MinNotional: lot.MinNotional,
		}
	}
	return reqs
}

// runTriArbScanner re-triggers the detector for every triangle touching a
// changed order book.
func runTriArbScanner(ctx context.Context, bus *eventbus.EventBus, detector *triarb.Detector, logger *slog.Logger) {
	books := bus.SubscribeOrderBook()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-books:
			if !ok {
				return
			}
			detector.OnBookChange(snap.Symbol)
		}
	}
}

// runTriArbPipeline turns detected opportunities into plans and drives them
// to completion one at a time per venue.
func runTriArbPipeline(
	ctx context.Context,
	bus *eventbus.EventBus,
	planner *triarb.Planner,
	executor *triarb.Executor,
	portfolioMgr *portfolio.Manager,
	riskMgr *risk.Manager,
	writer *persistence.AsyncWriter,
	venue string,
	logger *slog.Logger,
) {
	arbs := bus.SubscribeArbitrageDetected()
	for {
		select {
		case <-ctx.Done():
			return
		case arb, ok := <-arbs:
			if !ok {
				return
			}

			balances := map[string]decimal.Decimal{}
			for _, asset := range []string{arb.BaseCurrency, arb.CrossCurrency, arb.QuoteCurrency} {
				if bal, found := portfolioMgr.GetBalance(venue, asset); found {
					balances[asset] = bal.Free
				} else {
					balances[asset] = decimal.Zero
				}
			}

			plan, err := planner.Plan(arb, balances)
			if err != nil {
				logger.Warn("arbitrage not executable", "triangle", arb.Triangle.Key(), "error", err)
				continue
			}

			if check := riskMgr.ValidateSignal(planToSignal(venue, *plan)); !check.Approved {
				logger.Warn("arbitrage blocked by risk manager",
					"triangle", arb.Triangle.Key(), "reason", check.Reason, "details", check.Details)
				continue
			}

			result := executor.Execute(ctx, arb, *plan)
			writeCycleRecord(writer, venue, arb, result)
		}
	}
}

// planToSignal adapts a triangular plan into the shape the risk manager's
// pre-trade checks (position limits, notional caps, open-order caps) expect.
func planToSignal(venue string, plan domain.Plan) domain.TradeSignal {
	var legs []domain.LegSpec
	for _, step := range plan.Steps {
		for _, action := range step.Actions {
			legs = append(legs, domain.LegSpec{
				Symbol:         action.Pair.Symbol(),
				Side:           action.Side,
				InstrumentType: domain.InstrumentSpot,
				Price:          action.Price,
				Size:           action.Amount,
				OrderType:      domain.OrderTypeLimit,
			})
		}
	}
	return domain.TradeSignal{
		Strategy: domain.StrategyTriArb,
		Venue:    venue,
		Legs:     legs,
	}
}

// writeCycleRecord translates a completed execution into a strategy_cycles
// write request. Best-effort: a nil writer (cold store disabled) is a no-op.
func writeCycleRecord(writer *persistence.AsyncWriter, venue string, arb domain.Arbitrage, result *domain.ExecutionResult) {
	if writer == nil || result == nil {
		return
	}

	fractions := make([]string, len(result.Legs))
	for i, leg := range result.Legs {
		fractions[i] = leg.FillFraction().String()
	}

	writer.Write(persistence.WriteRequest{
		Type: persistence.WriteTypeCycle,
		Payload: persistence.CyclePayload{
			Strategy:         "triarb",
			Venue:            venue,
			TriangleLabel:    arb.Triangle.SortedAssetLabel(),
			Direction:        string(result.Direction),
			Parallelism:      result.Parallelism,
			Scenario:         result.Scenario,
			LegFillFractions: fractions,
			AllPlacedInMs:    result.AllPlacedInMs,
			CompletedInMs:    result.CompletedInMs,
			StartedAt:        result.StartedAt,
			CompletedAt:      result.CompletedAt,
		},
	})
}

func runCheckpointer(ctx context.Context, riskMgr *risk.Manager, writer *persistence.AsyncWriter, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := riskMgr.GetCheckpointState()
			writer.Write(persistence.WriteRequest{
				Type:    persistence.WriteTypeRiskCheckpoint,
				Payload: state,
			})
			logger.Debug("risk state checkpointed")
		}
	}
}

func startMetricsServer(logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitor.MetricsHandler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    ":9090",
		Handler: mux,
	}

	logger.Info("metrics server starting", "addr", ":9090")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", "error", err)
	}
}
