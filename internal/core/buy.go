package core

import (
	"context"

	"github.com/shopspring/decimal"

	"rotation-trading-btc-binance/internal/logger"
	"rotation-trading-btc-binance/internal/model"
)

// buyPass spreads the quote balance captured at snapshot time across the top
// ranked candidates. Each candidate gets remaining/N; a slot that falls under
// the symbol's minimum notional is widened to the whole remaining budget when
// the pot still clears the minimum, otherwise the candidate is skipped with
// the budget untouched. Per-candidate submission failures never abort the
// pass.
func (s *Strategy) buyPass(ctx context.Context, snap *Snapshot, candidates []model.TradingPairStat) (int, error) {
	limit := s.Cfg.TradePairsLimit
	if limit <= 0 {
		return 0, nil
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	slots := decimal.NewFromInt(int64(limit))
	remaining := snap.QuoteFree
	submitted := 0

	for _, pair := range candidates {
		logger.Debug("Evaluating candidate for BUY",
			"symbol", pair.Symbol, "remaining", remaining.String())

		filters, ok := snap.Filters[pair.Symbol]
		if !ok {
			return submitted, validationf("no filter set for symbol %s", pair.Symbol)
		}

		slotBudget := remaining.Div(slots)
		if slotBudget.Cmp(filters.MinNotional) < 0 {
			if remaining.Cmp(filters.MinNotional) > 0 {
				// Slot too small but the pot still clears the minimum:
				// spend the whole remainder on this one candidate.
				slotBudget = remaining
				remaining = decimal.Zero
			} else {
				logger.Debug("Slot below minimum notional, skipping",
					"symbol", pair.Symbol, "slot", slotBudget.String(),
					"min_notional", filters.MinNotional.String())
				continue
			}
		} else {
			remaining = remaining.Sub(slotBudget)
		}

		// One tick above the best bid to sit at the top of the book.
		bidPrice := pair.BidPrice.Add(filters.Price.TickSize)
		if bidPrice.Cmp(filters.Price.MinPrice) < 0 || bidPrice.Cmp(filters.Price.MaxPrice) > 0 {
			logger.Debug("Bid outside price bounds, skipping", "symbol", pair.Symbol, "bid", bidPrice.String())
			continue
		}

		buyQty := QuantizeDown(slotBudget.Div(bidPrice), filters.LotSize.StepSize)
		if buyQty.Sign() <= 0 {
			logger.Debug("Buy quantity quantized to zero, skipping", "symbol", pair.Symbol)
			continue
		}

		req := model.OrderRequest{
			Symbol:      pair.Symbol,
			Side:        model.SideBuy,
			Type:        model.OrderTypeLimit,
			Quantity:    buyQty,
			Price:       bidPrice,
			TimeInForce: model.TimeInForceGTC,
		}
		if s.submit(ctx, req, filters) {
			submitted++
		}
	}
	return submitted, nil
}
