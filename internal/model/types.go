package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	OrderTypeLimit  = "LIMIT"
	OrderTypeMarket = "MARKET"

	TimeInForceGTC = "GTC"
)

// AssetBalance is one account balance entry.
type AssetBalance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

func (b AssetBalance) Total() decimal.Decimal {
	return b.Free.Add(b.Locked)
}

// OpenOrder is a currently resting order on the exchange. Only stale BUY
// orders are ever acted on.
type OpenOrder struct {
	Symbol   string
	OrderID  int64
	Side     string
	Price    decimal.Decimal
	Quantity decimal.Decimal
	PlacedAt time.Time
}

// Trade is one own-trade history entry.
type Trade struct {
	Price decimal.Decimal
	Time  time.Time
}

// OrderRequest is an outbound order. Price and TimeInForce apply to LIMIT
// orders only.
type OrderRequest struct {
	Symbol      string
	Side        string
	Type        string
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	TimeInForce string
}

// SubmitResult reports the outcome of an order submission. A structured
// exchange rejection arrives here with Accepted=false, not as an error.
type SubmitResult struct {
	Accepted      bool
	OrderID       int64
	ClientOrderID string
	Code          int64
	Message       string
}

// CancelResult reports the outcome of an order cancellation.
type CancelResult struct {
	Accepted bool
	Code     int64
	Message  string
}
