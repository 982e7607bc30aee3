package engine

import (
	"math"

	"tradesim/pkg/types"
)

func (e *Engine) statsOnTrade(t *types.Trade) {
	if t.Side == types.Buy {
		e.stats.TradesBuy++
		e.equitySymbol += t.Quantity
		e.equityUSD -= t.Sum + t.Fee
	} else {
		e.stats.TradesSell++
		e.equitySymbol -= t.Quantity
		e.equityUSD += t.Sum - t.Fee
	}
	e.stats.Fees += t.Fee
	if v := math.Abs(e.equitySymbol); v > e.stats.MaxMarketVolume {
		e.stats.MaxMarketVolume = v
	}
	e.refreshProfit()
	tradesExecuted.WithLabelValues(string(t.Side)).Inc()
}

// refreshProfit marks the position to the current price and rolls the peak
// and drawdown figures forward.
func (e *Engine) refreshProfit() {
	profit := e.equitySymbol*e.currentPrice + e.equityUSD - e.cfg.InitialEquityUSD
	e.stats.Profit = profit
	if profit > e.stats.ProfitMax {
		e.stats.ProfitMax = profit
	}
	if dd := e.stats.ProfitMax - profit; dd > e.stats.DrawdownMax {
		e.stats.DrawdownMax = dd
	}
}

func (e *Engine) statsOnDealClose(d *types.Deal) {
	e.stats.Deals++
	side := &e.stats.Long
	if d.Type == types.Short {
		side = &e.stats.Short
	}
	side.Deals++
	if d.Profit > 0 {
		e.stats.Winners++
		side.Winners++
		side.WinnersPnl += d.Profit
		side.AvgWinner = side.WinnersPnl / float64(side.Winners)
	} else {
		e.stats.Losers++
		side.Losers++
		side.LosersPnl += d.Profit
		side.AvgLoser = side.LosersPnl / float64(side.Losers)
	}
}
