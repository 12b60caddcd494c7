package core

import (
	"context"
	"sync"
	"time"

	"rotation-trading-btc-binance/internal/config"
	"rotation-trading-btc-binance/internal/logger"
	"rotation-trading-btc-binance/internal/metrics"
	"rotation-trading-btc-binance/internal/service"
)

// Bot is the wake scheduler: one cycle at process start, then one per
// awake interval. It owns the cycle-exclusivity guard.
type Bot struct {
	Cfg      *config.Config
	Strategy *Strategy
	Metrics  *metrics.Tracker
	Telegram *service.TelegramService

	cycleMu  sync.Mutex
	cycleSeq int64
}

func NewBot(cfg *config.Config, strategy *Strategy, tracker *metrics.Tracker, telegram *service.TelegramService) *Bot {
	return &Bot{
		Cfg:      cfg,
		Strategy: strategy,
		Metrics:  tracker,
		Telegram: telegram,
	}
}

// Run blocks until ctx is cancelled, waking the strategy on a fixed
// interval. The first cycle runs immediately.
func (b *Bot) Run(ctx context.Context) {
	interval := time.Duration(b.Cfg.AwakeTimeoutSec) * time.Second
	logger.Info("Starting bot loop", "quote_asset", b.Cfg.QuoteAsset, "awake_interval", interval.String())

	b.Wake(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Bot loop stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			b.Wake(ctx)
		}
	}
}

// Wake runs one cycle if none is active. A wake that finds a cycle already
// running is rejected outright, never queued. The guard is released on every
// exit path by the deferred unlock.
func (b *Bot) Wake(ctx context.Context) {
	if !b.cycleMu.TryLock() {
		logger.Warn("Cycle already running, wake rejected")
		return
	}
	defer b.cycleMu.Unlock()

	b.cycleSeq++
	start := time.Now()
	res := b.Strategy.RunCycle(ctx, b.cycleSeq)
	elapsed := time.Since(start)

	if b.Metrics != nil {
		b.Metrics.TrackCycle(elapsed, res.SellsSubmitted, res.BuysSubmitted, res.Cancelled)
	}
	if b.Telegram != nil {
		if res.Err != nil {
			b.Telegram.SendCycleError(b.cycleSeq, res.Err)
		} else if res.SellsSubmitted+res.BuysSubmitted+res.Cancelled > 0 {
			b.Telegram.SendCycleSummary(b.cycleSeq, res.Cancelled, res.SellsSubmitted, res.BuysSubmitted)
		}
	}
}
