package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"rotation-trading-btc-binance/internal/api"
	"rotation-trading-btc-binance/internal/config"
	"rotation-trading-btc-binance/internal/core"
	"rotation-trading-btc-binance/internal/logger"
	"rotation-trading-btc-binance/internal/metrics"
	"rotation-trading-btc-binance/internal/repository"
	"rotation-trading-btc-binance/internal/service"
)

func main() {
	logger.Init()
	logger.Info("Starting Rotation Trading Strategy (Production Mode)...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Info("Configuration loaded successfully",
		"quote_asset", cfg.QuoteAsset,
		"trade_pairs_limit", cfg.TradePairsLimit,
		"min_profit_coef", cfg.MinProfitCoef,
		"loss_time_sec", cfg.LossTimeSec,
		"awake_timeout_sec", cfg.AwakeTimeoutSec,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Repositories
	storage := repository.NewStorage()
	journal := repository.NewOrderJournal(storage, "orders.json")
	if err := journal.Load(); err != nil {
		logger.Error("Failed to load order journal", "error", err)
	}

	// Initialize Binance Gateway
	gateway := api.NewBinanceGateway(cfg.BinanceApiKey, cfg.BinanceSecretKey)
	if err := gateway.SyncTime(ctx); err != nil {
		logger.Warn("⚠️ Failed to synchronize time with Binance, using local time", "error", err)
	}

	// Services
	telegramService := service.NewTelegramService(cfg)
	streamService := service.NewStreamService(gateway)
	tracker := metrics.NewTracker(cfg)

	// Strategy
	strategy := core.NewStrategy(cfg, gateway, journal)

	// Bot
	bot := core.NewBot(cfg, strategy, tracker, telegramService)

	// Start WebSocket Stream
	go func() {
		// Simple retry loop for stream start
		for {
			if ctx.Err() != nil {
				return
			}
			if err := streamService.Start(ctx); err != nil {
				logger.Error("❌ Failed to start WebSocket Stream, retrying in 10s...", "error", err)
				time.Sleep(10 * time.Second)
				continue
			}
			// Blocked inside Start() -> readLoop
			// If it returns, it disconnected
			logger.Warn("⚠️ WebSocket Stream disconnected, reconnecting in 5s...")
			time.Sleep(5 * time.Second)
		}
	}()

	// Listen for WebSocket Updates
	go func() {
		for update := range streamService.Updates {
			logger.Info("Order update streamed",
				"symbol", update.Symbol,
				"side", update.Side,
				"status", update.Status,
				"exec_type", update.ExecutionType,
				"order_id", update.OrderID,
			)
		}
	}()

	bot.Run(ctx)

	if streamService.IsConnected {
		_ = streamService.Stop()
	}
	logger.Info("Shutdown complete")
}
