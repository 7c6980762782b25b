package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"github.com/reemardelarosa/simulation/internal/api"
	"github.com/reemardelarosa/simulation/internal/config"
	"github.com/reemardelarosa/simulation/internal/fee"
	"github.com/reemardelarosa/simulation/internal/journal"
	"github.com/reemardelarosa/simulation/internal/ledger"
	"github.com/reemardelarosa/simulation/internal/market"
	"github.com/reemardelarosa/simulation/internal/sim"
	"github.com/reemardelarosa/simulation/internal/stats"
	"github.com/reemardelarosa/simulation/libs/health"
	"github.com/reemardelarosa/simulation/libs/kafka"
	"github.com/reemardelarosa/simulation/libs/logging"
	"github.com/reemardelarosa/simulation/libs/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stablesim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("SIM_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName, cfg.Env)
	slog.SetDefault(logger)

	if cfg.Env == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)
	simMetrics := metrics.NewSimMetrics(registry)

	var publisher kafka.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewSyncProducer(cfg.Kafka.Brokers, logger, kafka.NewProducerMetrics(registry))
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()
		publisher = producer
	}

	var tradeJournal market.TradeJournal
	if cfg.Postgres.DSN != "" {
		store, err := journal.New(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			return fmt.Errorf("trade journal: %w", err)
		}
		defer store.Close()
		tradeJournal = store
	}

	policy := fee.NewPolicy(
		decimal.NewFromFloat(cfg.Fees.CollateralRate),
		decimal.NewFromFloat(cfg.Fees.StableRate),
		decimal.NewFromFloat(cfg.Fees.ReferenceRate),
	)
	book := ledger.New(policy, decimal.NewFromFloat(cfg.Sim.CollateralSupply), logger)
	marketSet := market.New(book, market.Config{
		MatchOnPlace: cfg.Sim.MatchOnPlace,
		Publisher:    publisher,
		TradeTopic:   cfg.Kafka.TradeTopic,
		Journal:      tradeJournal,
		Metrics:      simMetrics,
		Logger:       logger,
	})
	mint := ledger.NewMint(book, marketSet, decimal.NewFromFloat(cfg.Sim.UtilisationRatioMax))
	distributor := fee.NewDistributor(book, cfg.Sim.FeePeriod, logger)
	collector := stats.NewCollector()

	model := sim.NewModel(sim.Params{
		Agents:           cfg.Sim.Agents,
		Seed:             cfg.Sim.Seed,
		InitialEndowment: decimal.NewFromFloat(cfg.Sim.InitialEndowment),
	}, book, marketSet, mint, distributor, collector, simMetrics, logger)

	var simMu sync.Mutex
	ready := health.NewManager(true)
	reporting := api.NewServer(&simMu, book, marketSet, collector, logger)
	router := reporting.Router(ready, cfg.MetricsPath, metrics.Handler(registry))

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	go func() {
		logger.Info("reporting server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("reporting server error", "error", err)
		}
	}()

	logger.Info("simulation starting",
		"agents", len(model.Agents()),
		"steps", cfg.Sim.Steps,
		"match_on_place", cfg.Sim.MatchOnPlace,
	)

	for i := 0; i < cfg.Sim.Steps; i++ {
		if ctx.Err() != nil {
			break
		}
		simMu.Lock()
		snap := model.Step(ctx)
		simMu.Unlock()
		if snap.Step%100 == 0 {
			logger.Info("step",
				"step", snap.Step,
				"trades", snap.Trades,
				"stable_price", snap.StablePrice,
				"gini", snap.Gini,
			)
		}
	}

	if snap, ok := collector.Latest(); ok {
		logger.Info("simulation finished",
			"steps", snap.Step,
			"stable_price", snap.StablePrice,
			"collateral_price", snap.CollateralPrice,
			"gini", snap.Gini,
		)
	}

	// Keep the reporting surface up until interrupted so results stay
	// queryable after the run.
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}
