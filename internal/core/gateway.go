package core

import (
	"context"
	"fmt"

	"rotation-trading-btc-binance/internal/model"
)

// ExchangeGateway is the exchange surface the strategy engine consumes.
// All monetary fields are exact decimals parsed from the wire strings.
// Implementations return errors for transport failures only; a structured
// exchange rejection of an order action is reported in the result value.
type ExchangeGateway interface {
	Ticker24h(ctx context.Context) ([]model.TradingPairStat, error)
	ExchangeSymbols(ctx context.Context) ([]model.SymbolInfo, error)
	OpenOrders(ctx context.Context, side string) ([]model.OpenOrder, error)
	AccountBalances(ctx context.Context) ([]model.AssetBalance, error)
	// MyTrades returns the own-trade history for a symbol, most recent first.
	MyTrades(ctx context.Context, symbol string) ([]model.Trade, error)
	SubmitOrder(ctx context.Context, req model.OrderRequest) (model.SubmitResult, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) (model.CancelResult, error)
}

// ValidationError marks a cycle-fatal condition: a missing or invalid
// mandatory parameter, or a snapshot with an absent required entry. It aborts
// the current cycle only; the next wake retries independently.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
