package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"papertraderv1/config"
	"papertraderv1/internal/engine"
	"papertraderv1/internal/gateway"
	"papertraderv1/internal/logger"
	binancemd "papertraderv1/internal/marketdata/binance"
	"papertraderv1/internal/metrics"
	"papertraderv1/internal/model"
	"papertraderv1/internal/notification"
	redisstore "papertraderv1/internal/store/redis"
	sqlitestore "papertraderv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[botengine] starting...")

	// ---- Load config from env ----
	cfg := config.Load()

	// ---- Structured logging: JSON to stdout, trace IDs per tick ----
	logger.Init("botengine", cfg.LogLevel)

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite store ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[botengine] sqlite init failed: %v", err)
	}
	defer store.Close()
	log.Println("[botengine] sqlite store ready")

	// ---- Seed the default account (no-op when it already exists) ----
	accountID, err := store.SeedAccount(ctx, &model.Account{
		Symbol:          cfg.Symbol,
		Interval:        cfg.Interval,
		Leverage:        cfg.Leverage,
		PositionSizePct: cfg.PositionSizePct,
		StopLossPct:     cfg.StopLossPct,
		TakeProfitPct:   cfg.TakeProfitPct,
		RuleSet:         cfg.RuleSet,
		IsActive:        true,
		CurrentBalance:  cfg.InitialBalance,
		InitialBalance:  cfg.InitialBalance,
	})
	if err != nil {
		log.Fatalf("[botengine] account seed failed: %v", err)
	}
	log.Printf("[botengine] account %d ready (%s %s)", accountID, cfg.Symbol, cfg.Interval)

	// ---- Redis: tick lock + snapshot cache. The lock is mandatory. ----
	rdb, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("[botengine] redis init failed: %v", err)
	}
	defer rdb.Close()

	// ---- Market data ----
	market := binancemd.New(binancemd.Config{
		APIKey:    cfg.BinanceAPIKey,
		APISecret: cfg.BinanceAPISecret,
		Testnet:   cfg.BinanceTestnet,
	})

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetMarketDataOK(true)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()
	health.StartLivenessChecker(ctx, rdb.Redis(), store.DB(), 10*time.Second)

	// ---- Notifier selection ----
	var notifier notification.Notifier
	switch {
	case cfg.TelegramBotToken != "" && cfg.TelegramChatID != "":
		notifier = notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		log.Println("[botengine] telegram notifier enabled")
	case cfg.WebhookURL != "":
		notifier = notification.NewWebhookNotifier(cfg.WebhookURL)
		log.Println("[botengine] webhook notifier enabled")
	default:
		notifier = notification.NewLogNotifier()
	}

	// ---- Engine ----
	eng := engine.New(market, store, rdb, notifier, prom, engine.DefaultConfig())

	// ---- Gateway: WS hub + control API ----
	hub := gateway.NewHub()
	api := gateway.NewServer(hub, store, eng, rdb, cfg.TOTPSecret)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	httpSrv := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}
	go func() {
		log.Printf("[botengine] gateway serving at http://localhost%s", cfg.GatewayAddr)
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[botengine] gateway server error: %v", err)
		}
	}()

	// ---- Scheduler loop ----
	go runScheduler(ctx, cfg.TickInterval, eng, store, rdb, hub, prom, health)

	log.Println("[botengine] ╔════════════════════════════════════════════════════════╗")
	log.Println("[botengine] ║  Paper Trading Engine                                  ║")
	log.Println("[botengine] ║                                                        ║")
	log.Println("[botengine] ║  [Binance REST] → [Indicators] → [Signals] → [SQLite]  ║")
	log.Printf("[botengine] ║  Symbol: %-10s  Interval: %-5s  Tick: %-8s  ║",
		cfg.Symbol, cfg.Interval, cfg.TickInterval)
	log.Println("[botengine] ╚════════════════════════════════════════════════════════╝")

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[botengine] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	log.Println("[botengine] shutdown complete.")
}

// runScheduler ticks every active account on a fixed interval. One pass runs
// immediately so a fresh boot does not idle for a full interval.
func runScheduler(ctx context.Context, interval time.Duration, eng *engine.Engine,
	store *sqlitestore.Store, rdb *redisstore.Client, hub *gateway.Hub,
	prom *metrics.Metrics, health *metrics.HealthStatus) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tickAll(ctx, eng, store, rdb, hub, prom, health)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tickAll(ctx, eng, store, rdb, hub, prom, health)
		}
	}
}

func tickAll(ctx context.Context, eng *engine.Engine, store *sqlitestore.Store,
	rdb *redisstore.Client, hub *gateway.Hub, prom *metrics.Metrics,
	health *metrics.HealthStatus) {

	prom.WSClients.Set(float64(hub.ClientCount()))

	accounts, err := store.ListActiveAccounts(ctx)
	if err != nil {
		slog.Error("list accounts", "err", err)
		return
	}

	for _, acct := range accounts {
		// Every tick carries its own trace ID so one account's pass can be
		// followed through the JSON log stream.
		tctx := logger.WithTraceID(ctx, logger.GenerateTraceID(acct.Symbol, time.Now()))

		res, err := eng.Tick(tctx, acct.ID, false)
		switch {
		case errors.Is(err, engine.ErrTickInProgress), errors.Is(err, engine.ErrInactive):
			continue
		case err != nil:
			slog.Error("tick failed",
				append(logger.LogWithTrace(tctx), "account", acct.ID, "err", err)...)
			health.SetMarketDataOK(false)
			continue
		}

		health.SetMarketDataOK(true)
		health.SetLastTickTime(res.At)
		slog.Info("tick complete",
			append(logger.LogWithTrace(tctx),
				"account", acct.ID, "symbol", res.Symbol,
				"price", res.Price, "balance", res.Balance,
				"open_positions", len(res.Open))...)

		// Fan out to the dashboard and the Redis hot cache. Cache failures
		// are non-fatal: the tick already committed.
		data, err := json.Marshal(res)
		if err != nil {
			slog.Error("marshal tick result",
				append(logger.LogWithTrace(tctx), "account", acct.ID, "err", err)...)
			continue
		}
		hub.Broadcast(acct.ID, data)
		if err := rdb.SetSnapshot(tctx, acct.ID, data); err != nil {
			slog.Warn("snapshot cache",
				append(logger.LogWithTrace(tctx), "account", acct.ID, "err", err)...)
		}
		if err := rdb.SetPrice(tctx, res.Symbol, res.Price); err != nil {
			slog.Warn("price cache",
				append(logger.LogWithTrace(tctx), "symbol", res.Symbol, "err", err)...)
		}
	}
}
