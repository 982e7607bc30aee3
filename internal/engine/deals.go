package engine

import (
	"math"

	"go.uber.org/zap"

	"tradesim/pkg/types"
)

func dealTypeFor(side types.OrderSide) types.DealType {
	if side == types.Buy {
		return types.Long
	}
	return types.Short
}

func (e *Engine) newDeal(typ types.DealType, auto bool) *types.Deal {
	d := &types.Deal{
		ID:        int64(len(e.deals) + 1),
		Type:      typ,
		CloseType: types.GroupNone,
		Auto:      auto,
	}
	e.deals = append(e.deals, d)
	dealsOpened.Inc()
	e.logger.Debug("deal opened",
		zap.Int64("deal_id", d.ID),
		zap.String("type", string(typ)),
		zap.Bool("auto", auto))
	return d
}

// attach points the order at the deal and lists it there. An order normally
// belongs to one deal; the flip split moves it to the deal its opening part
// landed in while both deals keep it listed.
func (e *Engine) attach(o *types.Order, d *types.Deal) {
	if o.DealID != d.ID {
		o.DealID = d.ID
		e.touch(o)
	}
	for _, id := range d.OrderIDs {
		if id == o.ID {
			return
		}
	}
	d.OrderIDs = append(d.OrderIDs, o.ID)
}

// recordFill routes an executed volume into a deal. Orders created with a
// deal id keep it; bare buy/sell fills go through the automatic-deal flip
// rules.
func (e *Engine) recordFill(o *types.Order, price, qty, fee float64) {
	if o.DealID != 0 {
		e.addTrade(e.deal(o.DealID), o, price, qty, fee)
		return
	}
	e.recordAutoFill(o, price, qty, fee)
}

func (e *Engine) recordAutoFill(o *types.Order, price, qty, fee float64) {
	d := e.openAutoDeal()
	if d == nil {
		d = e.newDeal(dealTypeFor(o.Side), true)
		e.autoDealID = d.ID
		e.addTrade(d, o, price, qty, fee)
		return
	}

	signed := o.Side.Sign() * qty
	newQ := d.Quantity + signed
	flip := !e.amountZero(d.Quantity) && !e.amountZero(newQ) && (newQ > 0) != (d.Quantity > 0)
	if !flip {
		e.addTrade(d, o, price, qty, fee)
		return
	}

	// The fill flips the position. Split it: one part closes the current
	// deal exactly, the remainder opens the next one. Fees are prorated by
	// volume so the two parts sum to the original fee.
	closeQty := math.Abs(d.Quantity)
	closeFee := fee * closeQty / qty
	e.addTrade(d, o, price, closeQty, closeFee)

	next := e.newDeal(dealTypeFor(o.Side), true)
	e.autoDealID = next.ID
	e.addTrade(next, o, price, qty-closeQty, fee-closeFee)
}

func (e *Engine) openAutoDeal() *types.Deal {
	d := e.deal(e.autoDealID)
	if d == nil || d.IsClosed {
		return nil
	}
	return d
}

// addTrade records one fill against the deal and updates the accumulators.
// When the position returns to zero and no entry orders are still working,
// the deal closes with the close type taken from the filling order's group.
func (e *Engine) addTrade(d *types.Deal, o *types.Order, price, qty, fee float64) *types.Trade {
	e.attach(o, d)
	t := &types.Trade{
		ID:       int64(len(e.trades) + 1),
		DealID:   d.ID,
		OrderID:  o.ID,
		Time:     e.currentTime,
		Side:     o.Side,
		Price:    price,
		Quantity: qty,
		Fee:      fee,
		Sum:      qty * price,
	}
	e.trades = append(e.trades, t)
	d.TradeIDs = append(d.TradeIDs, t.ID)

	if t.Side == types.Buy {
		d.BuyQuantity += qty
		d.BuyCost += t.Sum
	} else {
		d.SellQuantity += qty
		d.SellProceeds += t.Sum
	}
	d.Fee += fee
	d.Quantity = d.BuyQuantity - d.SellQuantity
	if d.BuyQuantity > 0 {
		d.AvgBuyPrice = d.BuyCost / d.BuyQuantity
	}
	if d.SellQuantity > 0 {
		d.AvgSellPrice = d.SellProceeds / d.SellQuantity
	}

	e.statsOnTrade(t)

	if e.amountZero(d.Quantity) && !e.hasWorkingEntries(d) {
		e.settleClosed(d, o.Group)
	}
	return t
}

func (e *Engine) hasWorkingEntries(d *types.Deal) bool {
	for _, id := range d.OrderIDs {
		o := e.order(id)
		if o != nil && o.Group == types.GroupNone && !o.Status.Final() {
			return true
		}
	}
	return false
}

// settleClosed finalizes the deal: profit locked in, remaining orders
// canceled, close statistics updated.
func (e *Engine) settleClosed(d *types.Deal, group types.OrderGroup) {
	d.Quantity = 0
	d.IsClosed = true
	d.CloseType = group
	d.Profit = d.SellProceeds - d.BuyCost - d.Fee
	e.CancelOrders(d.OrderIDs...)
	if e.autoDealID == d.ID {
		e.autoDealID = 0
	}
	e.statsOnDealClose(d)
	dealsClosed.Inc()
	e.logger.Debug("deal closed",
		zap.Int64("deal_id", d.ID),
		zap.String("close_type", string(group)),
		zap.Float64("profit", d.Profit))
}

// closeDeal cancels the deal's working orders and flattens any remaining
// position with a market order. A deal with no position settles directly.
func (e *Engine) closeDeal(d *types.Deal) {
	e.CancelOrders(d.OrderIDs...)
	if !e.amountZero(d.Quantity) {
		side := types.Sell
		if d.Quantity < 0 {
			side = types.Buy
		}
		o := e.newOrder(side, e.roundAmount(math.Abs(d.Quantity)), 0, 0, types.GroupNone, d.ID)
		e.attach(o, d)
		if err := e.validateOrder(o); err != nil {
			e.logger.Error("close order rejected", zap.Int64("deal_id", d.ID), zap.Error(err))
			return
		}
		e.executeOrder(o, e.marketFillPrice(o.Side), e.cfg.FeeTaker)
		return
	}
	if !d.IsClosed {
		e.settleClosed(d, types.GroupNone)
	}
}
