package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/arbiscan/internal/analyzer"
	"github.com/avolkov/arbiscan/internal/api"
	"github.com/avolkov/arbiscan/internal/config"
	"github.com/avolkov/arbiscan/internal/coordinator"
	"github.com/avolkov/arbiscan/internal/exchange"
	"github.com/avolkov/arbiscan/internal/models"
	"github.com/avolkov/arbiscan/internal/monitor"
	"github.com/avolkov/arbiscan/internal/notifier"
	"github.com/avolkov/arbiscan/internal/poller"
	"github.com/avolkov/arbiscan/internal/storage"
)

const symbolCacheTTL = 6 * time.Hour

func main() {
	analyzeOnly := flag.Bool("analyze-only", false, "skip polling and analyze the last persisted snapshot")
	flag.Parse()

	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	settings := cfg.Settings()
	exchanges := cfg.ActiveExchanges()
	if len(exchanges) == 0 && !*analyzeOnly {
		log.Fatal("No active exchanges configured")
	}

	ctx := context.Background()

	// Storage is optional: without a database the engine runs in-memory,
	// but analyze-only mode has nothing to read from.
	var (
		snapshotStore    *storage.SnapshotStore
		opportunityStore *storage.OpportunityStore
	)
	if cfg.Database.Host != "" {
		pool, err := storage.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		snapshotStore = storage.NewSnapshotStore(pool)
		opportunityStore = storage.NewOpportunityStore(pool)
	}
	if *analyzeOnly && snapshotStore == nil {
		log.Fatal("Analyze-only mode requires a database")
	}

	var symbolCache *exchange.SymbolCache
	if cfg.Redis.Host != "" {
		redisClient, err := storage.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		symbolCache = exchange.NewSymbolCache(redisClient, symbolCacheTTL)
	}

	resolver := exchange.NewSymbolResolver(symbolCache)
	adapters, skipped, err := exchange.BuildAdapters(exchanges, resolver, settings.PollTimeout)
	if err != nil {
		log.Fatalf("Failed to build exchange adapters: %v", err)
	}
	for _, id := range skipped {
		logger.WithField("exchange", id).Warn("No adapter available, exchange skipped")
	}

	tg, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, exchangeMap(exchanges), logger)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram notifier: %v", err)
	}
	if tg == nil {
		logger.Info("Telegram alerts disabled, no bot token configured")
	}

	perf := monitor.NewPerformanceMonitor(logger)

	opts := []coordinator.Option{
		coordinator.WithObserver(perf),
	}
	if tg != nil {
		opts = append(opts, coordinator.WithNotifier(tg))
	}
	if snapshotStore != nil {
		opts = append(opts, coordinator.WithSnapshotSink(snapshotStore), coordinator.WithSnapshotSource(snapshotStore))
	}
	if opportunityStore != nil {
		opts = append(opts, coordinator.WithOpportunitySink(opportunityStore))
	}
	if *analyzeOnly {
		opts = append(opts, coordinator.WithMode(coordinator.ModeAnalyzeOnly))
	}

	coord, err := coordinator.New(
		settings,
		poller.New(adapters),
		analyzer.NewAnalyzer(exchanges),
		analyzer.NewDeduplicator(nil),
		logger,
		opts...,
	)
	if err != nil {
		log.Fatalf("Failed to build coordinator: %v", err)
	}

	// Analysis-only performs one pass over the last persisted snapshot and
	// exits; the periodic loop and HTTP surface are for full-cycle runs.
	if *analyzeOnly {
		summary, err := coord.RunOnce(ctx)
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		logger.WithFields(logrus.Fields{
			"cycle_id":      summary.CycleID,
			"opportunities": summary.Opportunities,
			"alerted":       summary.Alerted,
		}).Info("Analysis complete")
		return
	}

	coord.Start()
	defer coord.Stop()

	var oppReader api.OpportunityReader
	if opportunityStore != nil {
		oppReader = opportunityStore
	}
	srv := api.NewServer(cfg.Server.Port, coord, oppReader, perf, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.WithError(err).Error("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP shutdown failed")
	}
}

// exchangeMap indexes exchanges by id for display-name lookups.
func exchangeMap(exchanges []models.Exchange) map[string]models.Exchange {
	m := make(map[string]models.Exchange, len(exchanges))
	for _, ex := range exchanges {
		m[ex.ID] = ex
	}
	return m
}
