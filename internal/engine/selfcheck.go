package engine

import (
	"fmt"
	"math"

	"tradesim/pkg/types"
)

// SelfCheck audits the run's bookkeeping after all deals are closed: deal
// ids contiguous from one, trade ids positive and unique, trades ordered in
// time within each automatic deal, every deal closed, and the stored
// averages, fee and profit matching a recomputation from the raw trade
// list. A failure means the engine corrupted its own state and the run must
// not be reported as valid.
func (e *Engine) SelfCheck() error {
	seen := make(map[int64]bool, len(e.trades))
	for _, t := range e.trades {
		if t.ID <= 0 {
			return fmt.Errorf("trade id %d is not positive", t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("trade id %d duplicated", t.ID)
		}
		seen[t.ID] = true
	}

	for i, d := range e.deals {
		if d.ID != int64(i+1) {
			return fmt.Errorf("deal id %d at index %d", d.ID, i)
		}
		if !d.IsClosed {
			return fmt.Errorf("deal %d is not closed", d.ID)
		}
		if d.Auto {
			if err := e.checkTradeOrder(d); err != nil {
				return err
			}
		}
		if err := e.checkAccumulators(d); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) checkTradeOrder(d *types.Deal) error {
	var lastID, lastMs int64
	for _, id := range d.TradeIDs {
		t := e.trades[id-1]
		if t.ID <= lastID {
			return fmt.Errorf("deal %d: trade ids not monotonic (%d after %d)", d.ID, t.ID, lastID)
		}
		ms := t.Time.UnixMilli()
		if ms < lastMs {
			return fmt.Errorf("deal %d: trade %d out of time order", d.ID, t.ID)
		}
		lastMs = ms
		lastID = t.ID
	}
	return nil
}

func (e *Engine) checkAccumulators(d *types.Deal) error {
	tol := e.priceEps()
	var buyQ, buyCost, sellQ, proceeds, fee float64
	for _, id := range d.TradeIDs {
		t := e.trades[id-1]
		if t.Side == types.Buy {
			buyQ += t.Quantity
			buyCost += t.Sum
		} else {
			sellQ += t.Quantity
			proceeds += t.Sum
		}
		fee += t.Fee
	}
	if buyQ > 0 {
		if avg := buyCost / buyQ; math.Abs(avg-d.AvgBuyPrice) > tol {
			return fmt.Errorf("deal %d: avg buy price %v, recomputed %v", d.ID, d.AvgBuyPrice, avg)
		}
	}
	if sellQ > 0 {
		if avg := proceeds / sellQ; math.Abs(avg-d.AvgSellPrice) > tol {
			return fmt.Errorf("deal %d: avg sell price %v, recomputed %v", d.ID, d.AvgSellPrice, avg)
		}
	}
	if math.Abs(fee-d.Fee) > tol {
		return fmt.Errorf("deal %d: fee %v, recomputed %v", d.ID, d.Fee, fee)
	}
	if profit := proceeds - buyCost - fee; math.Abs(profit-d.Profit) > tol {
		return fmt.Errorf("deal %d: profit %v, recomputed %v", d.ID, d.Profit, profit)
	}
	return nil
}
