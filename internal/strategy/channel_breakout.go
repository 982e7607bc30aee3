package strategy

import (
	"fmt"

	"tradesim/internal/engine"
	"tradesim/pkg/types"
)

// channelBreakout enters when the close escapes the recent close channel and
// brackets the position: the protective stop sits on the far channel bound,
// the take-profit a configurable multiple of that risk away.
type channelBreakout struct {
	Base
	period      int
	volume      float64
	rewardRatio float64
}

func init() {
	Register(Descriptor{
		Name: "channel-breakout",
		Params: map[string]ParamDescription{
			"period":       {Default: 20, Description: "channel lookback in bars"},
			"volume":       {Default: 1.0, Description: "entry volume in base units"},
			"reward_ratio": {Default: 1.0, Description: "take-profit distance as a multiple of the stop distance"},
		},
		New: func() Strategy { return &channelBreakout{} },
	})
}

func (s *channelBreakout) OnStart(ctx *Context) error {
	s.period = ctx.Params.Int("period", 20)
	s.volume = ctx.Broker.RoundAmount(ctx.Params.Float("volume", 1))
	s.rewardRatio = ctx.Params.Float("reward_ratio", 1)
	if s.period < 2 {
		return fmt.Errorf("channel-breakout: period must be at least 2, got %d", s.period)
	}
	if s.volume <= 0 {
		return fmt.Errorf("channel-breakout: volume must be positive, got %v", s.volume)
	}
	if s.rewardRatio <= 0 {
		return fmt.Errorf("channel-breakout: reward_ratio must be positive, got %v", s.rewardRatio)
	}
	return nil
}

func (s *channelBreakout) OnBar(ctx *Context) error {
	i := ctx.Index()
	if i < s.period || len(ctx.Broker.ActiveDeals()) > 0 {
		return nil
	}
	upper, err := ctx.Talib().Series("max", map[string]float64{"timeperiod": float64(s.period)})
	if err != nil {
		return err
	}
	lower, err := ctx.Talib().Series("min", map[string]float64{"timeperiod": float64(s.period)})
	if err != nil {
		return err
	}

	// The channel is taken at the previous bar so the breakout bar itself
	// does not stretch its own bounds.
	price := ctx.Price()
	switch {
	case price > upper[i-1]:
		stop := ctx.Broker.RoundPrice(lower[i-1])
		risk := price - stop
		if ctx.Broker.RoundPrice(risk) <= 0 {
			return nil
		}
		take := ctx.Broker.RoundPrice(price + s.rewardRatio*risk)
		_, err = ctx.Broker.ExecuteDeal(types.Buy,
			[]engine.EntrySpec{{Volume: s.volume}},
			[]engine.CloseSpec{{Fraction: 1, Price: stop}},
			[]engine.CloseSpec{{Fraction: 1, Price: take}})
	case price < lower[i-1]:
		stop := ctx.Broker.RoundPrice(upper[i-1])
		risk := stop - price
		if ctx.Broker.RoundPrice(risk) <= 0 {
			return nil
		}
		take := ctx.Broker.RoundPrice(price - s.rewardRatio*risk)
		if take <= 0 {
			return nil
		}
		_, err = ctx.Broker.ExecuteDeal(types.Sell,
			[]engine.EntrySpec{{Volume: s.volume}},
			[]engine.CloseSpec{{Fraction: 1, Price: stop}},
			[]engine.CloseSpec{{Fraction: 1, Price: take}})
	}
	return err
}
