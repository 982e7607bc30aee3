package engine

import (
	"fmt"

	"go.uber.org/zap"

	"tradesim/pkg/types"
)

// Buy places a single entry order on the buy side. With neither price nor
// triggerPrice the order is a MARKET order and executes immediately; a price
// makes it a LIMIT order, a triggerPrice a STOP order, and both rest on the
// book until a bar crosses them. The fill is attached to an automatic deal
// per the flip rules. On validation failure the returned order carries
// status ERROR and the reasons in Errors.
func (e *Engine) Buy(volume, price, triggerPrice float64) (*types.Order, error) {
	return e.placeEntry(types.Buy, volume, price, triggerPrice)
}

// Sell mirrors Buy on the sell side.
func (e *Engine) Sell(volume, price, triggerPrice float64) (*types.Order, error) {
	return e.placeEntry(types.Sell, volume, price, triggerPrice)
}

func (e *Engine) placeEntry(side types.OrderSide, volume, price, triggerPrice float64) (*types.Order, error) {
	o := e.newOrder(side, volume, price, triggerPrice, types.GroupNone, 0)
	if err := e.validateOrder(o); err != nil {
		return o, err
	}
	if o.Type == types.Market {
		e.executeOrder(o, e.marketFillPrice(o.Side), e.cfg.FeeTaker)
		return o, nil
	}
	e.activate(o)
	return o, nil
}

// CancelOrders cancels the given orders. Orders already in a final state are
// left untouched.
func (e *Engine) CancelOrders(ids ...int64) {
	for _, id := range ids {
		o := e.order(id)
		if o == nil || o.Status.Final() {
			continue
		}
		o.Status = types.StatusCanceled
		e.touch(o)
		ordersCanceled.Inc()
	}
}

// newOrder appends an order to the arena in NEW status. dealID zero means
// the order is not attached yet; automatic entries get their deal at fill
// time.
func (e *Engine) newOrder(side types.OrderSide, volume, price, triggerPrice float64, group types.OrderGroup, dealID int64) *types.Order {
	typ := types.Market
	switch {
	case price != 0:
		typ = types.Limit
	case triggerPrice != 0:
		typ = types.Stop
	}
	o := &types.Order{
		ID:           int64(len(e.orders) + 1),
		DealID:       dealID,
		Type:         typ,
		Side:         side,
		Price:        price,
		TriggerPrice: triggerPrice,
		Volume:       volume,
		Status:       types.StatusNew,
		Group:        group,
		CreateTime:   e.currentTime,
		ModifyTime:   e.currentTime,
	}
	e.orders = append(e.orders, o)
	ordersPlaced.WithLabelValues(string(typ)).Inc()
	return o
}

func (e *Engine) activate(o *types.Order) {
	o.Status = types.StatusActive
	e.touch(o)
}

// fail marks the order failed and records why. The order takes no further
// part in the run.
func (e *Engine) fail(o *types.Order, reason string) error {
	o.Status = types.StatusError
	o.Errors = append(o.Errors, reason)
	e.touch(o)
	orderErrors.Inc()
	e.logger.Warn("order rejected",
		zap.Int64("order_id", o.ID),
		zap.String("reason", reason))
	return fmt.Errorf("order %d: %s", o.ID, reason)
}

// validateOrder applies the placement rules: one price field at most, the
// price on the proper side of the current price, and all values already in
// their precision-rounded form. A limit that would cross immediately and a
// stop that would trigger immediately are both rejected.
func (e *Engine) validateOrder(o *types.Order) error {
	if e.currentPrice <= 0 {
		return e.fail(o, "no market price")
	}
	if o.Volume <= 0 {
		return e.fail(o, fmt.Sprintf("volume must be positive, got %v", o.Volume))
	}
	if !e.amountRounded(o.Volume) {
		return e.fail(o, fmt.Sprintf("volume %v is not aligned to precision %v", o.Volume, e.cfg.PrecisionAmount))
	}
	if o.Price != 0 && o.TriggerPrice != 0 {
		return e.fail(o, "price and trigger price are mutually exclusive")
	}
	switch o.Type {
	case types.Limit:
		if !e.priceRounded(o.Price) {
			return e.fail(o, fmt.Sprintf("price %v is not aligned to precision %v", o.Price, e.cfg.PrecisionPrice))
		}
		if o.Side == types.Buy && !e.priceGte(e.currentPrice, o.Price) {
			return e.fail(o, fmt.Sprintf("buy limit %v above current price %v", o.Price, e.currentPrice))
		}
		if o.Side == types.Sell && !e.priceLte(e.currentPrice, o.Price) {
			return e.fail(o, fmt.Sprintf("sell limit %v below current price %v", o.Price, e.currentPrice))
		}
	case types.Stop:
		if !e.priceRounded(o.TriggerPrice) {
			return e.fail(o, fmt.Sprintf("trigger price %v is not aligned to precision %v", o.TriggerPrice, e.cfg.PrecisionPrice))
		}
		if o.Side == types.Buy && !e.priceLt(e.currentPrice, o.TriggerPrice) {
			return e.fail(o, fmt.Sprintf("buy stop %v not above current price %v", o.TriggerPrice, e.currentPrice))
		}
		if o.Side == types.Sell && !e.priceGt(e.currentPrice, o.TriggerPrice) {
			return e.fail(o, fmt.Sprintf("sell stop %v not below current price %v", o.TriggerPrice, e.currentPrice))
		}
	}
	return nil
}

// marketFillPrice is the current price moved against the taker by the
// configured slippage.
func (e *Engine) marketFillPrice(side types.OrderSide) float64 {
	if side == types.Buy {
		return e.roundPrice(e.currentPrice + e.slippage())
	}
	return e.roundPrice(e.currentPrice - e.slippage())
}

// executeOrder fills the order's remaining volume at the given price and
// routes the resulting trade into a deal. feeRate is the maker or taker rate
// chosen by the caller.
func (e *Engine) executeOrder(o *types.Order, price, feeRate float64) {
	qty := o.Remaining()
	o.FilledVolume = o.Volume
	o.Status = types.StatusExecuted
	e.touch(o)

	sum := qty * price
	fee := sum * feeRate
	e.recordFill(o, price, qty, fee)
}
