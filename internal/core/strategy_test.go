package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"rotation-trading-btc-binance/internal/config"
	"rotation-trading-btc-binance/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig() *config.Config {
	return &config.Config{
		QuoteAsset:       "BTC",
		MinPairPrice:     0.000001,
		MinLotsSizeInBTC: 0.0001,
		MinProfitCoef:    1.04,
		LossTimeSec:      604800,
		TradePairsLimit:  10,
		AwakeTimeoutSec:  300,
		HTTPTimeoutSec:   10,
	}
}

// fakeGateway is an in-memory ExchangeGateway fed with canned data.
type fakeGateway struct {
	tickers  []model.TradingPairStat
	symbols  []model.SymbolInfo
	open     []model.OpenOrder
	balances []model.AssetBalance
	trades   map[string][]model.Trade

	tickerErr error
	tradesErr map[string]error
	cancelErr error
	submitErr error

	rejectSubmit bool
	rejectCancel bool

	submitted   []model.OrderRequest
	cancelled   []int64
	tickerCalls int
	nextOrderID int64
}

func (f *fakeGateway) Ticker24h(ctx context.Context) ([]model.TradingPairStat, error) {
	f.tickerCalls++
	if f.tickerErr != nil {
		return nil, f.tickerErr
	}
	return f.tickers, nil
}

func (f *fakeGateway) ExchangeSymbols(ctx context.Context) ([]model.SymbolInfo, error) {
	return f.symbols, nil
}

func (f *fakeGateway) OpenOrders(ctx context.Context, side string) ([]model.OpenOrder, error) {
	if side == "" {
		return f.open, nil
	}
	var out []model.OpenOrder
	for _, o := range f.open {
		if o.Side == side {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeGateway) AccountBalances(ctx context.Context) ([]model.AssetBalance, error) {
	return f.balances, nil
}

func (f *fakeGateway) MyTrades(ctx context.Context, symbol string) ([]model.Trade, error) {
	if err := f.tradesErr[symbol]; err != nil {
		return nil, err
	}
	return f.trades[symbol], nil
}

func (f *fakeGateway) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.SubmitResult, error) {
	if f.submitErr != nil {
		return model.SubmitResult{}, f.submitErr
	}
	if f.rejectSubmit {
		return model.SubmitResult{Accepted: false, Code: -2010, Message: "Account has insufficient balance"}, nil
	}
	f.submitted = append(f.submitted, req)
	f.nextOrderID++
	return model.SubmitResult{Accepted: true, OrderID: f.nextOrderID}, nil
}

func (f *fakeGateway) CancelOrder(ctx context.Context, symbol string, orderID int64) (model.CancelResult, error) {
	if f.cancelErr != nil {
		return model.CancelResult{}, f.cancelErr
	}
	if f.rejectCancel {
		return model.CancelResult{Accepted: false, Code: -2011, Message: "Unknown order sent"}, nil
	}
	f.cancelled = append(f.cancelled, orderID)
	return model.CancelResult{Accepted: true}, nil
}

// filters matching a typical small-cap BTC pair.
func testFilters() model.SymbolFilters {
	return model.SymbolFilters{
		Price: model.PriceFilter{
			MinPrice: dec("0.00000010"),
			MaxPrice: dec("100000.0"),
			TickSize: dec("0.0001"),
		},
		LotSize: model.LotSizeFilter{
			MinQty:   dec("0.01"),
			MaxQty:   dec("100000.0"),
			StepSize: dec("0.01"),
		},
		MinNotional: dec("0.0001"),
	}
}

func symbolInfo(symbol string) model.SymbolInfo {
	return model.SymbolInfo{Symbol: symbol, Filters: testFilters()}
}

func TestRunCycleHappyPath(t *testing.T) {
	gw := &fakeGateway{
		tickers: []model.TradingPairStat{
			{Symbol: "LTCBTC", BidPrice: dec("0.0100"), AskPrice: dec("0.0102"), LastPrice: dec("0.0101"), QuoteVolume24h: 500, PriceChangePercent: 2.5},
			{Symbol: "EOSBTC", BidPrice: dec("0.0004"), AskPrice: dec("0.0005"), LastPrice: dec("0.0004"), QuoteVolume24h: 300, PriceChangePercent: 1.0},
		},
		symbols: []model.SymbolInfo{symbolInfo("LTCBTC"), symbolInfo("EOSBTC")},
		open: []model.OpenOrder{
			{Symbol: "EOSBTC", OrderID: 77, Side: model.SideBuy, Price: dec("0.0004"), Quantity: dec("10"), PlacedAt: time.Now().Add(-time.Hour)},
		},
		balances: []model.AssetBalance{
			{Asset: "BTC", Free: dec("1.0")},
			{Asset: "LTC", Free: dec("5.0")},
		},
		trades: map[string][]model.Trade{
			"LTCBTC": {{Price: dec("0.0022"), Time: time.Now().Add(-24 * time.Hour)}},
		},
	}
	s := NewStrategy(testConfig(), gw, nil)

	res := s.RunCycle(context.Background(), 1)
	if res.State != StateDone {
		t.Fatalf("state = %s, want DONE (err: %v)", res.State, res.Err)
	}
	if res.Cancelled != 1 || len(gw.cancelled) != 1 || gw.cancelled[0] != 77 {
		t.Fatalf("cancelled = %d (%v), want stale order 77", res.Cancelled, gw.cancelled)
	}
	if res.SellsSubmitted != 1 {
		t.Fatalf("sells = %d, want 1", res.SellsSubmitted)
	}
	// LTCBTC holds a material position, so only EOSBTC is bought.
	if res.BuysSubmitted != 1 {
		t.Fatalf("buys = %d, want 1", res.BuysSubmitted)
	}

	sell := gw.submitted[0]
	if sell.Symbol != "LTCBTC" || sell.Side != model.SideSell || sell.Type != model.OrderTypeLimit {
		t.Fatalf("unexpected sell order: %+v", sell)
	}
	if !sell.Price.Equal(dec("0.0101")) {
		t.Errorf("sell price = %s, want 0.0101", sell.Price)
	}
	if !sell.Quantity.Equal(dec("5")) {
		t.Errorf("sell qty = %s, want 5", sell.Quantity)
	}
	if sell.TimeInForce != model.TimeInForceGTC {
		t.Errorf("sell tif = %s, want GTC", sell.TimeInForce)
	}

	buy := gw.submitted[1]
	if buy.Symbol != "EOSBTC" || buy.Side != model.SideBuy {
		t.Fatalf("unexpected buy order: %+v", buy)
	}
	if !buy.Price.Equal(dec("0.0005")) {
		t.Errorf("buy price = %s, want bid+tick 0.0005", buy.Price)
	}
}

func TestRunCycleAbortsWhenCancelFails(t *testing.T) {
	gw := &fakeGateway{
		open: []model.OpenOrder{
			{Symbol: "LTCBTC", OrderID: 42, Side: model.SideBuy, Price: dec("0.01"), Quantity: dec("1")},
		},
		cancelErr: errors.New("read timeout"),
	}
	s := NewStrategy(testConfig(), gw, nil)

	res := s.RunCycle(context.Background(), 1)
	if res.State != StateError {
		t.Fatalf("state = %s, want ERROR", res.State)
	}
	var vErr *ValidationError
	if !errors.As(res.Err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", res.Err)
	}
	if gw.tickerCalls != 0 {
		t.Errorf("snapshot was taken after cancel failure")
	}
	if len(gw.submitted) != 0 {
		t.Errorf("orders were submitted after cancel failure: %v", gw.submitted)
	}
}

func TestRunCycleAbortsWhenCancelRejected(t *testing.T) {
	gw := &fakeGateway{
		open: []model.OpenOrder{
			{Symbol: "LTCBTC", OrderID: 42, Side: model.SideBuy, Price: dec("0.01"), Quantity: dec("1")},
		},
		rejectCancel: true,
	}
	s := NewStrategy(testConfig(), gw, nil)

	res := s.RunCycle(context.Background(), 1)
	if res.State != StateError {
		t.Fatalf("state = %s, want ERROR", res.State)
	}
	if gw.tickerCalls != 0 {
		t.Errorf("snapshot was taken after cancel rejection")
	}
}

func TestRunCycleAbortsOnSnapshotFailure(t *testing.T) {
	gw := &fakeGateway{
		tickerErr: errors.New("connection refused"),
	}
	s := NewStrategy(testConfig(), gw, nil)

	res := s.RunCycle(context.Background(), 1)
	if res.State != StateError {
		t.Fatalf("state = %s, want ERROR", res.State)
	}
	if len(gw.submitted) != 0 {
		t.Errorf("orders were submitted without a snapshot")
	}
}

func TestRunCycleRejectedOrdersDoNotAbort(t *testing.T) {
	gw := &fakeGateway{
		tickers: []model.TradingPairStat{
			{Symbol: "EOSBTC", BidPrice: dec("0.0004"), AskPrice: dec("0.0005"), LastPrice: dec("0.0004"), QuoteVolume24h: 300, PriceChangePercent: 1.0},
		},
		symbols: []model.SymbolInfo{symbolInfo("EOSBTC")},
		balances: []model.AssetBalance{
			{Asset: "BTC", Free: dec("1.0")},
		},
		rejectSubmit: true,
	}
	s := NewStrategy(testConfig(), gw, nil)

	res := s.RunCycle(context.Background(), 1)
	if res.State != StateDone {
		t.Fatalf("state = %s, want DONE (err: %v)", res.State, res.Err)
	}
	if res.BuysSubmitted != 0 {
		t.Errorf("buys = %d, want 0 after rejection", res.BuysSubmitted)
	}
}

func TestValidateOrder(t *testing.T) {
	f := testFilters()

	cases := []struct {
		name    string
		req     model.OrderRequest
		wantErr bool
	}{
		{
			name: "valid limit",
			req: model.OrderRequest{
				Symbol: "LTCBTC", Side: model.SideSell, Type: model.OrderTypeLimit,
				Quantity: dec("5"), Price: dec("0.0101"), TimeInForce: model.TimeInForceGTC,
			},
		},
		{
			name: "zero quantity",
			req: model.OrderRequest{
				Symbol: "LTCBTC", Side: model.SideSell, Type: model.OrderTypeLimit,
				Quantity: dec("0"), Price: dec("0.0101"),
			},
			wantErr: true,
		},
		{
			name: "quantity off step",
			req: model.OrderRequest{
				Symbol: "LTCBTC", Side: model.SideSell, Type: model.OrderTypeLimit,
				Quantity: dec("5.005"), Price: dec("0.0101"),
			},
			wantErr: true,
		},
		{
			name: "quantity below minQty",
			req: model.OrderRequest{
				Symbol: "LTCBTC", Side: model.SideSell, Type: model.OrderTypeLimit,
				Quantity: dec("0.001"), Price: dec("0.0101"),
			},
			wantErr: true,
		},
		{
			name: "price off tick",
			req: model.OrderRequest{
				Symbol: "LTCBTC", Side: model.SideSell, Type: model.OrderTypeLimit,
				Quantity: dec("5"), Price: dec("0.01015"),
			},
			wantErr: true,
		},
		{
			name: "notional below minimum",
			req: model.OrderRequest{
				Symbol: "MTHBTC", Side: model.SideBuy, Type: model.OrderTypeLimit,
				Quantity: dec("0.01"), Price: dec("0.0001"),
			},
			wantErr: true,
		},
		{
			name: "market checks quantity only",
			req: model.OrderRequest{
				Symbol: "LTCBTC", Side: model.SideSell, Type: model.OrderTypeMarket,
				Quantity: dec("5"),
			},
		},
		{
			name: "market with bad quantity",
			req: model.OrderRequest{
				Symbol: "LTCBTC", Side: model.SideSell, Type: model.OrderTypeMarket,
				Quantity: dec("5.005"),
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateOrder(tc.req, f)
			if (err != nil) != tc.wantErr {
				t.Fatalf("validateOrder() err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestWakeRejectedWhileCycleRunning(t *testing.T) {
	gw := &fakeGateway{}
	s := NewStrategy(testConfig(), gw, nil)
	b := NewBot(testConfig(), s, nil, nil)

	b.cycleMu.Lock()
	b.Wake(context.Background())
	b.cycleMu.Unlock()

	if gw.tickerCalls != 0 || len(gw.submitted) != 0 {
		t.Fatalf("wake ran a cycle while another was active")
	}
	if b.cycleSeq != 0 {
		t.Fatalf("cycleSeq = %d, want 0 for rejected wake", b.cycleSeq)
	}
}
