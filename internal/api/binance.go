package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"

	"rotation-trading-btc-binance/internal/logger"
	"rotation-trading-btc-binance/internal/model"
)

// BinanceGateway adapts the Binance spot REST API to the strategy's gateway
// contract. All monetary strings from the wire are parsed into exact decimals
// at this boundary; a parse failure is reported as a transport error.
type BinanceGateway struct {
	client *binance.Client
}

func NewBinanceGateway(apiKey, secretKey string) *BinanceGateway {
	return &BinanceGateway{
		client: binance.NewClient(apiKey, secretKey),
	}
}

// SyncTime aligns the client clock offset with the Binance server so signed
// requests are not rejected for timestamp drift.
func (g *BinanceGateway) SyncTime(ctx context.Context) error {
	offset, err := g.client.NewSetServerTimeService().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to sync server time: %w", err)
	}
	logger.Info("⏰ Time Synchronized", "offset_ms", offset)
	return nil
}

func (g *BinanceGateway) Ticker24h(ctx context.Context) ([]model.TradingPairStat, error) {
	stats, err := g.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch 24h ticker: %w", err)
	}

	pairs := make([]model.TradingPairStat, 0, len(stats))
	for _, st := range stats {
		bid, err := decimal.NewFromString(st.BidPrice)
		if err != nil {
			return nil, fmt.Errorf("bad bidPrice for %s: %w", st.Symbol, err)
		}
		ask, err := decimal.NewFromString(st.AskPrice)
		if err != nil {
			return nil, fmt.Errorf("bad askPrice for %s: %w", st.Symbol, err)
		}
		last, err := decimal.NewFromString(st.LastPrice)
		if err != nil {
			return nil, fmt.Errorf("bad lastPrice for %s: %w", st.Symbol, err)
		}
		quoteVol, err := strconv.ParseFloat(st.QuoteVolume, 64)
		if err != nil {
			return nil, fmt.Errorf("bad quoteVolume for %s: %w", st.Symbol, err)
		}
		changePct, err := strconv.ParseFloat(st.PriceChangePercent, 64)
		if err != nil {
			return nil, fmt.Errorf("bad priceChangePercent for %s: %w", st.Symbol, err)
		}

		pairs = append(pairs, model.TradingPairStat{
			Symbol:             st.Symbol,
			BidPrice:           bid,
			AskPrice:           ask,
			LastPrice:          last,
			QuoteVolume24h:     quoteVol,
			PriceChangePercent: changePct,
		})
	}
	return pairs, nil
}

func (g *BinanceGateway) ExchangeSymbols(ctx context.Context) ([]model.SymbolInfo, error) {
	info, err := g.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange info: %w", err)
	}

	symbols := make([]model.SymbolInfo, 0, len(info.Symbols))
	for i := range info.Symbols {
		sym := &info.Symbols[i]
		if sym.Status != "TRADING" {
			continue
		}
		filters, err := symbolFilters(sym)
		if err != nil {
			logger.Warn("Skipping symbol with unusable filters", "symbol", sym.Symbol, "error", err)
			continue
		}
		symbols = append(symbols, model.SymbolInfo{
			Symbol:  sym.Symbol,
			Filters: filters,
		})
	}
	return symbols, nil
}

func symbolFilters(sym *binance.Symbol) (model.SymbolFilters, error) {
	var out model.SymbolFilters

	pf := sym.PriceFilter()
	if pf == nil {
		return out, fmt.Errorf("missing PRICE_FILTER")
	}
	lf := sym.LotSizeFilter()
	if lf == nil {
		return out, fmt.Errorf("missing LOT_SIZE filter")
	}

	var err error
	if out.Price.MinPrice, err = decimal.NewFromString(pf.MinPrice); err != nil {
		return out, fmt.Errorf("bad minPrice: %w", err)
	}
	if out.Price.MaxPrice, err = decimal.NewFromString(pf.MaxPrice); err != nil {
		return out, fmt.Errorf("bad maxPrice: %w", err)
	}
	if out.Price.TickSize, err = decimal.NewFromString(pf.TickSize); err != nil {
		return out, fmt.Errorf("bad tickSize: %w", err)
	}
	if out.LotSize.MinQty, err = decimal.NewFromString(lf.MinQuantity); err != nil {
		return out, fmt.Errorf("bad minQty: %w", err)
	}
	if out.LotSize.MaxQty, err = decimal.NewFromString(lf.MaxQuantity); err != nil {
		return out, fmt.Errorf("bad maxQty: %w", err)
	}
	if out.LotSize.StepSize, err = decimal.NewFromString(lf.StepSize); err != nil {
		return out, fmt.Errorf("bad stepSize: %w", err)
	}

	// Older symbols carry MIN_NOTIONAL, newer ones NOTIONAL. The SDK only
	// decodes the latter, so the legacy type is read from the raw filter maps.
	minNotional := ""
	for _, f := range sym.Filters {
		if f["filterType"] == "MIN_NOTIONAL" {
			if v, ok := f["minNotional"].(string); ok {
				minNotional = v
			}
			break
		}
	}
	if minNotional == "" {
		if n := sym.NotionalFilter(); n != nil {
			minNotional = n.MinNotional
		}
	}
	if minNotional == "" {
		return out, fmt.Errorf("missing notional filter")
	}
	if out.MinNotional, err = decimal.NewFromString(minNotional); err != nil {
		return out, fmt.Errorf("bad minNotional: %w", err)
	}

	return out, nil
}

func (g *BinanceGateway) OpenOrders(ctx context.Context, side string) ([]model.OpenOrder, error) {
	orders, err := g.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open orders: %w", err)
	}

	var out []model.OpenOrder
	for _, o := range orders {
		if side != "" && string(o.Side) != side {
			continue
		}
		price, err := decimal.NewFromString(o.Price)
		if err != nil {
			return nil, fmt.Errorf("bad price for order %d: %w", o.OrderID, err)
		}
		qty, err := decimal.NewFromString(o.OrigQuantity)
		if err != nil {
			return nil, fmt.Errorf("bad quantity for order %d: %w", o.OrderID, err)
		}
		out = append(out, model.OpenOrder{
			Symbol:   o.Symbol,
			OrderID:  o.OrderID,
			Side:     string(o.Side),
			Price:    price,
			Quantity: qty,
			PlacedAt: time.UnixMilli(o.Time),
		})
	}
	return out, nil
}

func (g *BinanceGateway) AccountBalances(ctx context.Context) ([]model.AssetBalance, error) {
	account, err := g.client.NewGetAccountService().OmitZeroBalances(true).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}

	var out []model.AssetBalance
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return nil, fmt.Errorf("bad free balance for %s: %w", b.Asset, err)
		}
		locked, err := decimal.NewFromString(b.Locked)
		if err != nil {
			return nil, fmt.Errorf("bad locked balance for %s: %w", b.Asset, err)
		}
		if free.Sign() == 0 && locked.Sign() == 0 {
			continue
		}
		out = append(out, model.AssetBalance{
			Asset:  b.Asset,
			Free:   free,
			Locked: locked,
		})
	}
	return out, nil
}

// MyTrades returns the own-trade history for a symbol, most recent first.
// The exchange serves trades oldest first, so the page is reversed here.
func (g *BinanceGateway) MyTrades(ctx context.Context, symbol string) ([]model.Trade, error) {
	trades, err := g.client.NewListTradesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trades for %s: %w", symbol, err)
	}

	out := make([]model.Trade, 0, len(trades))
	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		price, err := decimal.NewFromString(t.Price)
		if err != nil {
			return nil, fmt.Errorf("bad trade price for %s: %w", symbol, err)
		}
		out = append(out, model.Trade{
			Price: price,
			Time:  time.UnixMilli(t.Time),
		})
	}
	return out, nil
}

func (g *BinanceGateway) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.SubmitResult, error) {
	svc := g.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(binance.SideType(req.Side)).
		Type(binance.OrderType(req.Type)).
		Quantity(req.Quantity.String())
	if req.Type == model.OrderTypeLimit {
		svc = svc.Price(req.Price.String()).
			TimeInForce(binance.TimeInForceType(req.TimeInForce))
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			return model.SubmitResult{
				Accepted: false,
				Code:     apiErr.Code,
				Message:  apiErr.Message,
			}, nil
		}
		return model.SubmitResult{}, fmt.Errorf("failed to submit order on %s: %w", req.Symbol, err)
	}

	return model.SubmitResult{
		Accepted:      true,
		OrderID:       resp.OrderID,
		ClientOrderID: resp.ClientOrderID,
	}, nil
}

func (g *BinanceGateway) CancelOrder(ctx context.Context, symbol string, orderID int64) (model.CancelResult, error) {
	_, err := g.client.NewCancelOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			return model.CancelResult{
				Accepted: false,
				Code:     apiErr.Code,
				Message:  apiErr.Message,
			}, nil
		}
		return model.CancelResult{}, fmt.Errorf("failed to cancel order %d on %s: %w", orderID, symbol, err)
	}
	return model.CancelResult{Accepted: true}, nil
}

// User data stream listen-key lifecycle, consumed by the stream service.

func (g *BinanceGateway) StartUserStream(ctx context.Context) (string, error) {
	key, err := g.client.NewStartUserStreamService().Do(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to start user stream: %w", err)
	}
	return key, nil
}

func (g *BinanceGateway) KeepAliveUserStream(ctx context.Context, listenKey string) error {
	if err := g.client.NewKeepaliveUserStreamService().ListenKey(listenKey).Do(ctx); err != nil {
		return fmt.Errorf("failed to keep alive user stream: %w", err)
	}
	return nil
}

func (g *BinanceGateway) CloseUserStream(ctx context.Context, listenKey string) error {
	if err := g.client.NewCloseUserStreamService().ListenKey(listenKey).Do(ctx); err != nil {
		return fmt.Errorf("failed to close user stream: %w", err)
	}
	return nil
}
