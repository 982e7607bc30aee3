package engine

import (
	"fmt"
	"math"

	"tradesim/pkg/types"
)

// EntrySpec describes one entry order for ExecuteDeal. A zero price means a
// market entry, which must be the only entry in the deal.
type EntrySpec struct {
	Volume float64
	Price  float64
}

// CloseSpec describes one stop-loss or take-profit order. Fraction is the
// share of the position the order liquidates, in (0, 1].
type CloseSpec struct {
	Fraction float64
	Price    float64
}

// ExecuteDeal opens a deal with declared entry, stop-loss and take-profit
// legs. Entry and stop orders go active immediately; take-profit orders stay
// NEW until the first entry fill. Stop and take volumes start at
// round(fraction*total entry volume) with the extreme order absorbing the
// rounding remainder, and are reconciled against the live position every
// bar. If anything fails validation the whole deal is unwound and nil is
// returned.
func (e *Engine) ExecuteDeal(side types.OrderSide, entries []EntrySpec, stopLosses, takeProfits []CloseSpec) (*types.Deal, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("deal needs at least one entry")
	}
	d := e.newDeal(dealTypeFor(side), false)

	var target float64
	for _, en := range entries {
		target += en.Volume
	}
	target = e.roundAmount(target)

	for _, en := range entries {
		if en.Price == 0 && len(entries) > 1 {
			e.closeDeal(d)
			return nil, fmt.Errorf("market entry must be the only entry")
		}
		o := e.newOrder(side, en.Volume, en.Price, 0, types.GroupNone, d.ID)
		e.attach(o, d)
		if err := e.validateOrder(o); err != nil {
			e.closeDeal(d)
			return nil, fmt.Errorf("entry: %w", err)
		}
		if o.Type == types.Market {
			e.executeOrder(o, e.marketFillPrice(o.Side), e.cfg.FeeTaker)
		} else {
			e.activate(o)
		}
	}

	closeSide := side.Opposite()
	if err := e.addCloseGroup(d, closeSide, types.GroupStopLoss, stopLosses, target); err != nil {
		e.closeDeal(d)
		return nil, err
	}
	if err := e.addCloseGroup(d, closeSide, types.GroupTakeProfit, takeProfits, target); err != nil {
		e.closeDeal(d)
		return nil, err
	}

	// A market entry already filled, so the takes can activate now instead
	// of waiting for the per-bar reconciliation.
	if !e.amountZero(d.Quantity) {
		e.reconcileDeal(d)
	}
	return d, nil
}

func (e *Engine) addCloseGroup(d *types.Deal, side types.OrderSide, group types.OrderGroup, specs []CloseSpec, target float64) error {
	if len(specs) == 0 {
		return nil
	}
	for _, s := range specs {
		if s.Fraction <= 0 || s.Fraction > 1 {
			return fmt.Errorf("%s fraction %v outside (0, 1]", group, s.Fraction)
		}
	}

	created := make([]*types.Order, 0, len(specs))
	for _, s := range specs {
		var price, trigger float64
		if group == types.GroupStopLoss {
			trigger = s.Price
		} else {
			price = s.Price
		}
		o := e.newOrder(side, 0, price, trigger, group, d.ID)
		o.Fraction = s.Fraction
		e.attach(o, d)
		created = append(created, o)
	}

	extreme := extremeOf(created, group, d.Type)
	rest := target
	for _, o := range created {
		if o == extreme {
			continue
		}
		o.Volume = e.roundAmount(o.Fraction * target)
		rest -= o.Volume
	}
	extreme.Volume = rest

	for _, o := range created {
		if err := e.validateOrder(o); err != nil {
			return fmt.Errorf("%s: %w", group, err)
		}
		if group == types.GroupStopLoss {
			e.activate(o)
		}
	}
	return nil
}

// reconcileSLTP re-sizes the stop-loss and take-profit groups of every open
// deal against the live position. It runs each bar, right after matching.
func (e *Engine) reconcileSLTP() {
	for _, d := range e.deals {
		if !d.IsClosed {
			e.reconcileDeal(d)
		}
	}
}

// reconcileDeal redistributes group volumes: stops cover the position plus
// any entry limit volume that would fill on the way to the extreme stop,
// takes cover the position exactly. Take orders still NEW activate once the
// position is non-zero.
func (e *Engine) reconcileDeal(d *types.Deal) {
	stops, takes := e.workingGroups(d)
	if len(stops) == 0 && len(takes) == 0 {
		return
	}

	pos := math.Abs(d.Quantity)
	if e.amountZero(d.Quantity) {
		pos = 0
	}

	if len(stops) > 0 {
		extreme := extremeOf(stops, types.GroupStopLoss, d.Type)
		target := pos + e.pendingEntryVolumeInRange(d, extreme.TriggerPrice)
		e.redistribute(stops, extreme, target)
	}
	if len(takes) > 0 && pos > 0 {
		extreme := extremeOf(takes, types.GroupTakeProfit, d.Type)
		e.redistribute(takes, extreme, pos)
		for _, o := range takes {
			if o.Status == types.StatusNew {
				e.activate(o)
			}
		}
	}
}

func (e *Engine) workingGroups(d *types.Deal) (stops, takes []*types.Order) {
	for _, id := range d.OrderIDs {
		o := e.order(id)
		if o == nil || o.Status.Final() {
			continue
		}
		switch o.Group {
		case types.GroupStopLoss:
			stops = append(stops, o)
		case types.GroupTakeProfit:
			takes = append(takes, o)
		}
	}
	return stops, takes
}

// pendingEntryVolumeInRange sums the unexecuted entry limit volume between
// the current price and the extreme stop trigger, both ends inclusive. Those
// entries would fill before the extreme stop does, so the stop group has to
// cover them.
func (e *Engine) pendingEntryVolumeInRange(d *types.Deal, extremeTrigger float64) float64 {
	lo, hi := extremeTrigger, e.currentPrice
	if lo > hi {
		lo, hi = hi, lo
	}
	var vol float64
	for _, id := range d.OrderIDs {
		o := e.order(id)
		if o == nil || o.Group != types.GroupNone || o.Type != types.Limit || o.Status != types.StatusActive {
			continue
		}
		if e.priceGte(o.Price, lo) && e.priceLte(o.Price, hi) {
			vol += o.Remaining()
		}
	}
	return vol
}

func (e *Engine) redistribute(group []*types.Order, extreme *types.Order, target float64) {
	rest := target
	for _, o := range group {
		if o == extreme {
			continue
		}
		v := e.roundAmount(o.Fraction * target)
		e.setVolume(o, v)
		rest -= v
	}
	e.setVolume(extreme, rest)
}

func (e *Engine) setVolume(o *types.Order, v float64) {
	if v < 0 {
		v = 0
	}
	if o.Volume == v {
		return
	}
	o.Volume = v
	e.touch(o)
}

// extremeOf picks the group order farthest from the entry: the lowest
// trigger for long stops and the highest for short stops, the highest price
// for long takes and the lowest for short takes.
func extremeOf(group []*types.Order, kind types.OrderGroup, dt types.DealType) *types.Order {
	best := group[0]
	for _, o := range group[1:] {
		if kind == types.GroupStopLoss {
			if (dt == types.Long && o.TriggerPrice < best.TriggerPrice) ||
				(dt == types.Short && o.TriggerPrice > best.TriggerPrice) {
				best = o
			}
		} else {
			if (dt == types.Long && o.Price > best.Price) ||
				(dt == types.Short && o.Price < best.Price) {
				best = o
			}
		}
	}
	return best
}
