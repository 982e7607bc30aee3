package engine

import "tradesim/pkg/types"

// matchBar fills resting orders the bar's high/low range crosses. Entries
// and stop-losses are matched first, in placement order; take-profits run in
// a second pass and are skipped for any deal whose stop-loss fired on this
// bar, so a bar wide enough to touch both only realizes the stop.
func (e *Engine) matchBar(high, low float64) {
	stopFired := make(map[int64]bool)

	for _, o := range e.orders {
		if o.Group == types.GroupTakeProfit || !o.Resting() || e.amountZero(o.Remaining()) {
			continue
		}
		if price, feeRate, ok := e.crossing(o, high, low); ok {
			e.executeOrder(o, price, feeRate)
			if o.Group == types.GroupStopLoss {
				stopFired[o.DealID] = true
			}
		}
	}

	for _, o := range e.orders {
		if o.Group != types.GroupTakeProfit || !o.Resting() || e.amountZero(o.Remaining()) {
			continue
		}
		if stopFired[o.DealID] {
			continue
		}
		if price, feeRate, ok := e.crossing(o, high, low); ok {
			e.executeOrder(o, price, feeRate)
		}
	}
}

// crossing reports whether the bar touches the order, and at what price and
// fee rate it fills. Limits fill at their own price as makers; stops fill
// past their trigger by the slippage and pay the taker rate.
func (e *Engine) crossing(o *types.Order, high, low float64) (price, feeRate float64, ok bool) {
	switch o.Type {
	case types.Limit:
		if o.Side == types.Buy && e.priceLte(low, o.Price) {
			return o.Price, e.cfg.FeeMaker, true
		}
		if o.Side == types.Sell && e.priceGt(high, o.Price) {
			return o.Price, e.cfg.FeeMaker, true
		}
	case types.Stop:
		if o.Side == types.Buy && e.priceGte(high, o.TriggerPrice) {
			return e.roundPrice(o.TriggerPrice + e.slippage()), e.cfg.FeeTaker, true
		}
		if o.Side == types.Sell && e.priceLte(low, o.TriggerPrice) {
			return e.roundPrice(o.TriggerPrice - e.slippage()), e.cfg.FeeTaker, true
		}
	}
	return 0, 0, false
}
