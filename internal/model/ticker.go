package model

import "github.com/shopspring/decimal"

// TradingPairStat is one entry of the 24h ticker snapshot. Prices are exact
// decimals because they feed order math; volume and change percent are only
// ever used as a ranking weight.
type TradingPairStat struct {
	Symbol             string
	BidPrice           decimal.Decimal
	AskPrice           decimal.Decimal
	LastPrice          decimal.Decimal
	QuoteVolume24h     float64
	PriceChangePercent float64
}
