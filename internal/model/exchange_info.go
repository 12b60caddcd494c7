package model

import "github.com/shopspring/decimal"

// PriceFilter constrains order prices: multiples of TickSize within
// [MinPrice, MaxPrice].
type PriceFilter struct {
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	TickSize decimal.Decimal
}

// LotSizeFilter constrains order quantities: multiples of StepSize within
// [MinQty, MaxQty].
type LotSizeFilter struct {
	MinQty   decimal.Decimal
	MaxQty   decimal.Decimal
	StepSize decimal.Decimal
}

// SymbolFilters is the full trading-rule set for one symbol.
type SymbolFilters struct {
	Price       PriceFilter
	LotSize     LotSizeFilter
	MinNotional decimal.Decimal
}

// SymbolInfo pairs a tradable symbol with its filters, as reported by
// the exchange metadata endpoint.
type SymbolInfo struct {
	Symbol  string
	Filters SymbolFilters
}
