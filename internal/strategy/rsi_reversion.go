package strategy

import (
	"fmt"

	"tradesim/internal/engine"
	"tradesim/pkg/types"
)

// rsiReversion buys oversold dips and scales out through two take-profit
// rungs with a protective stop under the entry. An overbought reading while
// the position is still open closes it at market.
type rsiReversion struct {
	Base
	period     int
	oversold   float64
	overbought float64
	volume     float64
	stopPct    float64
	takePct    float64
}

func init() {
	Register(Descriptor{
		Name: "rsi-reversion",
		Params: map[string]ParamDescription{
			"period":     {Default: 14, Description: "RSI period in bars"},
			"oversold":   {Default: 30.0, Description: "RSI level that triggers an entry"},
			"overbought": {Default: 70.0, Description: "RSI level that closes the position"},
			"volume":     {Default: 1.0, Description: "entry volume in base units"},
			"stop_pct":   {Default: 0.05, Description: "stop-loss distance as a fraction of the entry price"},
			"take_pct":   {Default: 0.04, Description: "outer take-profit distance as a fraction of the entry price"},
		},
		New: func() Strategy { return &rsiReversion{} },
	})
}

func (s *rsiReversion) OnStart(ctx *Context) error {
	s.period = ctx.Params.Int("period", 14)
	s.oversold = ctx.Params.Float("oversold", 30)
	s.overbought = ctx.Params.Float("overbought", 70)
	s.volume = ctx.Broker.RoundAmount(ctx.Params.Float("volume", 1))
	s.stopPct = ctx.Params.Float("stop_pct", 0.05)
	s.takePct = ctx.Params.Float("take_pct", 0.04)
	if s.period < 2 {
		return fmt.Errorf("rsi-reversion: period must be at least 2, got %d", s.period)
	}
	if s.oversold >= s.overbought {
		return fmt.Errorf("rsi-reversion: oversold %v must be below overbought %v", s.oversold, s.overbought)
	}
	if s.volume <= 0 {
		return fmt.Errorf("rsi-reversion: volume must be positive, got %v", s.volume)
	}
	if s.stopPct <= 0 || s.stopPct >= 1 {
		return fmt.Errorf("rsi-reversion: stop_pct %v outside (0, 1)", s.stopPct)
	}
	if s.takePct <= 0 {
		return fmt.Errorf("rsi-reversion: take_pct must be positive, got %v", s.takePct)
	}
	return nil
}

func (s *rsiReversion) OnBar(ctx *Context) error {
	i := ctx.Index()
	if i < s.period {
		return nil
	}
	rsi, err := ctx.Talib().Series("rsi", map[string]float64{"timeperiod": float64(s.period)})
	if err != nil {
		return err
	}

	deals := ctx.Broker.ActiveDeals()
	if len(deals) == 0 && rsi[i] < s.oversold {
		price := ctx.Price()
		stop := ctx.Broker.RoundPrice(price * (1 - s.stopPct))
		inner := ctx.Broker.RoundPrice(price * (1 + s.takePct/2))
		outer := ctx.Broker.RoundPrice(price * (1 + s.takePct))
		if stop <= 0 || ctx.Broker.RoundPrice(price-stop) <= 0 {
			return nil
		}
		_, err = ctx.Broker.ExecuteDeal(types.Buy,
			[]engine.EntrySpec{{Volume: s.volume}},
			[]engine.CloseSpec{{Fraction: 1, Price: stop}},
			[]engine.CloseSpec{{Fraction: 0.5, Price: inner}, {Fraction: 0.5, Price: outer}})
		return err
	}
	if rsi[i] > s.overbought {
		for _, d := range deals {
			if err := ctx.Broker.CloseDeal(d.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
