package driver

import (
	"time"

	"tradesim/internal/engine"
	"tradesim/internal/publisher"
)

// resultProperties wires the publisher's tracked properties to the engine
// arenas and the run's scalar state. The arenas only ever grow, which is
// what the tail-publishing contract relies on.
func resultProperties(e *engine.Engine, run *runState) []publisher.Property {
	return []publisher.Property{
		publisher.Scalar("stats", func() any { return e.Stats() }),
		publisher.Scalar("equity_usd", func() any { return e.EquityUSD() }),
		publisher.Scalar("equity_symbol", func() any { return e.EquitySymbol() }),
		publisher.Scalar("current_time", func() any {
			return time.UnixMilli(e.CurrentTime()).UTC().Format(time.RFC3339)
		}),
		publisher.Scalar("progress", func() any { return run.progress }),
		publisher.Scalar("is_finish", func() any { return run.isFinish }),

		publisher.List("orders",
			func() int { return len(e.Orders()) },
			func(from, to int) any { return e.Orders()[from:to] }),
		publisher.List("deals",
			func() int { return len(e.Deals()) },
			func(from, to int) any { return e.Deals()[from:to] }),
		publisher.List("trades",
			func() int { return len(e.Trades()) },
			func(from, to int) any { return e.Trades()[from:to] }),
		publisher.List("profit_history",
			func() int { return len(e.ProfitHistory()) },
			func(from, to int) any { return e.ProfitHistory()[from:to] }),
	}
}
