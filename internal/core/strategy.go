package core

import (
	"context"
	"fmt"
	"time"

	"rotation-trading-btc-binance/internal/config"
	"rotation-trading-btc-binance/internal/logger"
	"rotation-trading-btc-binance/internal/model"
	"rotation-trading-btc-binance/internal/repository"
)

// CycleState tracks where a wake cycle is in its fixed progression.
type CycleState int

const (
	StateIdle CycleState = iota
	StateCancelStaleBuys
	StateSnapshot
	StateSellPass
	StateBuyPass
	StateDone
	StateError
)

func (st CycleState) String() string {
	switch st {
	case StateIdle:
		return "IDLE"
	case StateCancelStaleBuys:
		return "CANCEL_STALE_BUYS"
	case StateSnapshot:
		return "SNAPSHOT"
	case StateSellPass:
		return "SELL_PASS"
	case StateBuyPass:
		return "BUY_PASS"
	case StateDone:
		return "DONE"
	case StateError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(st))
	}
}

// CycleResult summarizes one wake cycle for the scheduler.
type CycleResult struct {
	State          CycleState
	Cancelled      int
	SellsSubmitted int
	BuysSubmitted  int
	Err            error
}

// Strategy runs the sell-then-buy rotation over a single exchange gateway.
// One instance serves one cycle at a time; the scheduler guards exclusivity.
type Strategy struct {
	Cfg     *config.Config
	Gateway ExchangeGateway
	Journal *repository.OrderJournal

	cycle int64
}

func NewStrategy(cfg *config.Config, gateway ExchangeGateway, journal *repository.OrderJournal) *Strategy {
	return &Strategy{
		Cfg:     cfg,
		Gateway: gateway,
		Journal: journal,
	}
}

// RunCycle executes one full wake cycle:
// CANCEL_STALE_BUYS -> SNAPSHOT -> SELL_PASS -> BUY_PASS -> DONE.
// All cycle-fatal failures converge here: log, report ERROR, return. The
// scheduler owns retry via the next wake.
func (s *Strategy) RunCycle(ctx context.Context, cycle int64) CycleResult {
	s.cycle = cycle
	res := CycleResult{State: StateIdle}
	logger.Info("Cycle started", "cycle", cycle)

	s.transition(&res, StateCancelStaleBuys)
	cancelled, err := s.cancelStaleBuys(ctx)
	res.Cancelled = cancelled
	if err != nil {
		return s.fail(res, err)
	}

	s.transition(&res, StateSnapshot)
	snap, err := s.takeSnapshot(ctx)
	if err != nil {
		return s.fail(res, err)
	}

	s.transition(&res, StateSellPass)
	candidates := append([]model.TradingPairStat(nil), snap.RankedPairs...)
	candidates, sells, err := s.sellPass(ctx, snap, candidates)
	res.SellsSubmitted = sells
	if err != nil {
		return s.fail(res, err)
	}

	s.transition(&res, StateBuyPass)
	buys, err := s.buyPass(ctx, snap, candidates)
	res.BuysSubmitted = buys
	if err != nil {
		return s.fail(res, err)
	}

	s.transition(&res, StateDone)
	logger.Info("Cycle finished",
		"cycle", cycle,
		"cancelled", res.Cancelled,
		"sells", res.SellsSubmitted,
		"buys", res.BuysSubmitted,
	)
	return res
}

func (s *Strategy) transition(res *CycleResult, next CycleState) {
	logger.Debug("Cycle state transition", "cycle", s.cycle, "from", res.State.String(), "to", next.String())
	res.State = next
}

func (s *Strategy) fail(res CycleResult, err error) CycleResult {
	logger.Error("Cycle aborted", "cycle", s.cycle, "state", res.State.String(), "error", err)
	res.State = StateError
	res.Err = err
	return res
}

// cancelStaleBuys cancels every open BUY order left over from previous
// cycles. Any failure aborts the cycle: new buys are never layered on top of
// un-cancelled stale ones.
func (s *Strategy) cancelStaleBuys(ctx context.Context) (int, error) {
	callCtx, cancel := s.callCtx(ctx)
	orders, err := s.Gateway.OpenOrders(callCtx, model.SideBuy)
	cancel()
	if err != nil {
		return 0, validationf("fetching open BUY orders: %v", err)
	}

	cancelled := 0
	for _, o := range orders {
		callCtx, cancel := s.callCtx(ctx)
		res, err := s.Gateway.CancelOrder(callCtx, o.Symbol, o.OrderID)
		cancel()
		if err != nil {
			s.record(o.Symbol, model.SideBuy, model.OrderTypeLimit, repository.StatusCancelFailed,
				o.Quantity.String(), o.Price.String(), o.OrderID, err.Error())
			return cancelled, validationf("cancelling order %d on %s: %v", o.OrderID, o.Symbol, err)
		}
		if !res.Accepted {
			s.record(o.Symbol, model.SideBuy, model.OrderTypeLimit, repository.StatusCancelFailed,
				o.Quantity.String(), o.Price.String(), o.OrderID, res.Message)
			return cancelled, validationf("cancel of order %d on %s rejected: %s", o.OrderID, o.Symbol, res.Message)
		}
		s.record(o.Symbol, model.SideBuy, model.OrderTypeLimit, repository.StatusCancelled,
			o.Quantity.String(), o.Price.String(), o.OrderID, "")
		cancelled++
		logger.Info("Stale BUY order cancelled", "symbol", o.Symbol, "order_id", o.OrderID)
	}
	return cancelled, nil
}

// submit validates an order against the symbol filters and sends it.
// Rejections and transport errors are logged and journaled; the caller just
// moves on to the next item.
func (s *Strategy) submit(ctx context.Context, req model.OrderRequest, filters model.SymbolFilters) bool {
	if err := validateOrder(req, filters); err != nil {
		logger.Warn("Order failed validation, not submitted",
			"symbol", req.Symbol, "side", req.Side, "type", req.Type, "error", err)
		return false
	}

	qtyStr := req.Quantity.StringFixed(int32(FractionalDigits(filters.LotSize.StepSize)))
	priceStr := ""
	if req.Type == model.OrderTypeLimit {
		priceStr = req.Price.StringFixed(int32(FractionalDigits(filters.Price.TickSize)))
	}

	callCtx, cancel := s.callCtx(ctx)
	res, err := s.Gateway.SubmitOrder(callCtx, req)
	cancel()
	if err != nil {
		logger.Warn("Order submission failed",
			"symbol", req.Symbol, "side", req.Side, "type", req.Type, "error", err)
		s.record(req.Symbol, req.Side, req.Type, repository.StatusFailed, qtyStr, priceStr, 0, err.Error())
		return false
	}
	if !res.Accepted {
		logger.Warn("Order rejected by exchange",
			"symbol", req.Symbol, "side", req.Side, "type", req.Type,
			"code", res.Code, "msg", res.Message)
		s.record(req.Symbol, req.Side, req.Type, repository.StatusRejected, qtyStr, priceStr, 0, res.Message)
		return false
	}

	logger.Info("Order submitted",
		"symbol", req.Symbol, "side", req.Side, "type", req.Type,
		"qty", qtyStr, "price", priceStr, "order_id", res.OrderID)
	s.record(req.Symbol, req.Side, req.Type, repository.StatusSubmitted, qtyStr, priceStr, res.OrderID, "")
	return true
}

// validateOrder enforces the exchange quantization invariants before any
// submission: quantity on step within lot bounds, and for LIMIT orders the
// price on tick within price bounds and the notional above the minimum.
// MARKET orders have no known execution price, so only quantity is checked.
func validateOrder(req model.OrderRequest, f model.SymbolFilters) error {
	if req.Quantity.Sign() <= 0 {
		return fmt.Errorf("quantity %s is not positive", req.Quantity.String())
	}
	if f.LotSize.StepSize.Sign() > 0 && !req.Quantity.Mod(f.LotSize.StepSize).IsZero() {
		return fmt.Errorf("quantity %s is not a multiple of step %s", req.Quantity.String(), f.LotSize.StepSize.String())
	}
	if req.Quantity.Cmp(f.LotSize.MinQty) < 0 {
		return fmt.Errorf("quantity %s below minQty %s", req.Quantity.String(), f.LotSize.MinQty.String())
	}
	if f.LotSize.MaxQty.Sign() > 0 && req.Quantity.Cmp(f.LotSize.MaxQty) > 0 {
		return fmt.Errorf("quantity %s above maxQty %s", req.Quantity.String(), f.LotSize.MaxQty.String())
	}
	if req.Type != model.OrderTypeLimit {
		return nil
	}
	if req.Price.Sign() <= 0 {
		return fmt.Errorf("price %s is not positive", req.Price.String())
	}
	if f.Price.TickSize.Sign() > 0 && !req.Price.Mod(f.Price.TickSize).IsZero() {
		return fmt.Errorf("price %s is not a multiple of tick %s", req.Price.String(), f.Price.TickSize.String())
	}
	if req.Price.Cmp(f.Price.MinPrice) < 0 {
		return fmt.Errorf("price %s below minPrice %s", req.Price.String(), f.Price.MinPrice.String())
	}
	if f.Price.MaxPrice.Sign() > 0 && req.Price.Cmp(f.Price.MaxPrice) > 0 {
		return fmt.Errorf("price %s above maxPrice %s", req.Price.String(), f.Price.MaxPrice.String())
	}
	if notional := req.Price.Mul(req.Quantity); notional.Cmp(f.MinNotional) < 0 {
		return fmt.Errorf("notional %s below minNotional %s", notional.String(), f.MinNotional.String())
	}
	return nil
}

func (s *Strategy) record(symbol, side, orderType, status, qty, price string, orderID int64, note string) {
	if s.Journal == nil {
		return
	}
	if err := s.Journal.Append(repository.OrderRecord{
		Cycle:     s.cycle,
		Symbol:    symbol,
		Side:      side,
		Type:      orderType,
		Status:    status,
		Quantity:  qty,
		Price:     price,
		OrderID:   orderID,
		Note:      note,
		CreatedAt: time.Now(),
	}); err != nil {
		logger.Error("Failed to journal order action", "symbol", symbol, "error", err)
	}
}

// callCtx derives the short per-call timeout every network call runs under.
func (s *Strategy) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(s.Cfg.HTTPTimeoutSec)*time.Second)
}
