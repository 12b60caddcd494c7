package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"rotation-trading-btc-binance/internal/logger"
	"rotation-trading-btc-binance/internal/model"
)

// sellPass walks every held non-quote asset and decides whether to exit it:
// a LIMIT sell one tick inside the spread once the profit margin over the
// last own trade is reached, or a MARKET sell when a losing position has
// aged past the loss timeout. It also prunes the buy-candidate list of
// symbols where a material position already exists, and returns the pruned
// list. Missing snapshot entries for a held asset are cycle-fatal; failures
// on a single asset are logged and skipped.
func (s *Strategy) sellPass(ctx context.Context, snap *Snapshot, candidates []model.TradingPairStat) ([]model.TradingPairStat, int, error) {
	coef := decimal.NewFromFloat(s.Cfg.MinProfitCoef)
	minLots := decimal.NewFromFloat(s.Cfg.MinLotsSizeInBTC)
	lossAge := time.Duration(s.Cfg.LossTimeSec) * time.Second
	submitted := 0

	for _, bal := range snap.Balances {
		if bal.Asset == s.Cfg.QuoteAsset {
			continue
		}
		symbol := bal.Asset + s.Cfg.QuoteAsset
		logger.Debug("Evaluating held asset for SELL", "asset", bal.Asset, "symbol", symbol)

		pair, ok := snap.Pair(symbol)
		if !ok {
			return candidates, submitted, validationf("held asset %s has no %s pair in snapshot", bal.Asset, s.Cfg.QuoteAsset)
		}
		filters, ok := snap.Filters[symbol]
		if !ok {
			return candidates, submitted, validationf("no filter set for symbol %s", symbol)
		}

		// One tick inside the spread to favor a fill.
		askPrice := pair.AskPrice.Sub(filters.Price.TickSize)
		positionValue := bal.Total().Mul(pair.LastPrice)

		// An existing material position is not re-bought this cycle.
		if positionValue.Cmp(minLots) > 0 {
			candidates = removeCandidate(candidates, symbol)
		}

		sellQty := QuantizeDown(bal.Free, filters.LotSize.StepSize)
		if sellQty.Sign() <= 0 ||
			sellQty.Cmp(bal.Free) > 0 ||
			sellQty.Cmp(filters.LotSize.MinQty) < 0 ||
			(filters.LotSize.MaxQty.Sign() > 0 && sellQty.Cmp(filters.LotSize.MaxQty) > 0) {
			logger.Debug("Quantity outside lot bounds, skipping", "symbol", symbol, "qty", sellQty.String())
			continue
		}

		callCtx, cancel := s.callCtx(ctx)
		trades, err := s.Gateway.MyTrades(callCtx, symbol)
		cancel()
		if err != nil {
			logger.Warn("Failed to fetch own trades, skipping asset", "symbol", symbol, "error", err)
			continue
		}
		if len(trades) == 0 {
			logger.Debug("No trade history, skipping asset", "symbol", symbol)
			continue
		}
		entry := trades[0]

		switch {
		case askPrice.Cmp(entry.Price.Mul(coef)) > 0:
			req := model.OrderRequest{
				Symbol:      symbol,
				Side:        model.SideSell,
				Type:        model.OrderTypeLimit,
				Quantity:    sellQty,
				Price:       askPrice,
				TimeInForce: model.TimeInForceGTC,
			}
			if s.submit(ctx, req, filters) {
				submitted++
			}
		case time.Since(entry.Time) > lossAge:
			logger.Info("Loss time reached, forcing exit",
				"symbol", symbol, "entry_price", entry.Price.String(), "entry_time", entry.Time)
			req := model.OrderRequest{
				Symbol:   symbol,
				Side:     model.SideSell,
				Type:     model.OrderTypeMarket,
				Quantity: sellQty,
			}
			if s.submit(ctx, req, filters) {
				submitted++
			}
		default:
			logger.Debug("No exit condition met",
				"symbol", symbol, "ask", askPrice.String(), "entry_price", entry.Price.String())
		}
	}
	return candidates, submitted, nil
}

func removeCandidate(candidates []model.TradingPairStat, symbol string) []model.TradingPairStat {
	for i, c := range candidates {
		if c.Symbol == symbol {
			return append(candidates[:i], candidates[i+1:]...)
		}
	}
	return candidates
}
