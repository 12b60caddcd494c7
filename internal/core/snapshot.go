package core

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rotation-trading-btc-binance/internal/logger"
	"rotation-trading-btc-binance/internal/model"
)

// Snapshot is the per-cycle read of the market and the account. It is taken
// once at the start of a cycle and treated as read-only afterwards; in
// particular the buy pass spends QuoteFree as captured here, never a balance
// refreshed after sell submissions.
type Snapshot struct {
	RankedPairs []model.TradingPairStat
	Filters     map[string]model.SymbolFilters
	Balances    []model.AssetBalance
	OpenOrders  []model.OpenOrder
	QuoteFree   decimal.Decimal
	TakenAt     time.Time
}

func (s *Snapshot) Pair(symbol string) (model.TradingPairStat, bool) {
	for _, p := range s.RankedPairs {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return model.TradingPairStat{}, false
}

// pairScore is the momentum-weighted liquidity rank of a candidate.
func pairScore(p model.TradingPairStat) float64 {
	bid, _ := p.BidPrice.Float64()
	ask, _ := p.AskPrice.Float64()
	return ((ask - bid) / bid) * p.QuoteVolume24h * (1 + p.PriceChangePercent/100)
}

// rankPairs filters the ticker universe down to quote-asset pairs above the
// price floor and sorts them by score, best first. The sort is stable so
// equal scores keep feed order.
func rankPairs(pairs []model.TradingPairStat, quoteAsset string, minPairPrice decimal.Decimal) []model.TradingPairStat {
	ranked := make([]model.TradingPairStat, 0, len(pairs))
	for _, p := range pairs {
		if !strings.HasSuffix(p.Symbol, quoteAsset) {
			continue
		}
		if strings.Contains(p.Symbol, "USDT") {
			continue
		}
		if p.LastPrice.Cmp(minPairPrice) <= 0 {
			continue
		}
		if p.BidPrice.Sign() <= 0 {
			continue
		}
		ranked = append(ranked, p)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return pairScore(ranked[i]) > pairScore(ranked[j])
	})
	return ranked
}

// takeSnapshot fetches all cycle inputs. Every fetch here is mandatory, so
// any transport failure or empty result escalates to a ValidationError.
func (s *Strategy) takeSnapshot(ctx context.Context) (*Snapshot, error) {
	callCtx, cancel := s.callCtx(ctx)
	tickers, err := s.Gateway.Ticker24h(callCtx)
	cancel()
	if err != nil {
		return nil, validationf("fetching 24h ticker: %v", err)
	}

	minPairPrice := decimal.NewFromFloat(s.Cfg.MinPairPrice)
	ranked := rankPairs(tickers, s.Cfg.QuoteAsset, minPairPrice)
	if len(ranked) == 0 {
		return nil, validationf("no tradable %s pairs after ranking", s.Cfg.QuoteAsset)
	}

	callCtx, cancel = s.callCtx(ctx)
	symbols, err := s.Gateway.ExchangeSymbols(callCtx)
	cancel()
	if err != nil {
		return nil, validationf("fetching exchange symbols: %v", err)
	}
	if len(symbols) == 0 {
		return nil, validationf("empty exchange symbol list")
	}
	filters := make(map[string]model.SymbolFilters, len(symbols))
	for _, info := range symbols {
		filters[info.Symbol] = info.Filters
	}

	callCtx, cancel = s.callCtx(ctx)
	balances, err := s.Gateway.AccountBalances(callCtx)
	cancel()
	if err != nil {
		return nil, validationf("fetching account balances: %v", err)
	}
	if len(balances) == 0 {
		return nil, validationf("empty account balance list")
	}

	var quoteFree decimal.Decimal
	var quoteFound bool
	for _, b := range balances {
		if b.Asset == s.Cfg.QuoteAsset {
			quoteFree = b.Free
			quoteFound = true
			break
		}
	}
	if !quoteFound {
		return nil, validationf("no %s balance entry in account", s.Cfg.QuoteAsset)
	}

	callCtx, cancel = s.callCtx(ctx)
	openOrders, err := s.Gateway.OpenOrders(callCtx, "")
	cancel()
	if err != nil {
		return nil, validationf("fetching open orders: %v", err)
	}

	snap := &Snapshot{
		RankedPairs: ranked,
		Filters:     filters,
		Balances:    balances,
		OpenOrders:  openOrders,
		QuoteFree:   quoteFree,
		TakenAt:     time.Now(),
	}

	logger.Info("Snapshot taken",
		"ranked_pairs", len(snap.RankedPairs),
		"symbols", len(snap.Filters),
		"balances", len(snap.Balances),
		"open_orders", len(snap.OpenOrders),
		"quote_free", snap.QuoteFree.String(),
	)
	return snap, nil
}
