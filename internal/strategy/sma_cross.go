package strategy

import "fmt"

// smaCross trades a fast/slow moving-average crossover on the automatic
// deal: long after a golden cross, short after a death cross, flipping the
// position with market orders.
type smaCross struct {
	Base
	fast   int
	slow   int
	volume float64
}

func init() {
	Register(Descriptor{
		Name: "sma-cross",
		Params: map[string]ParamDescription{
			"fast":   {Default: 10, Description: "fast moving-average period in bars"},
			"slow":   {Default: 30, Description: "slow moving-average period in bars"},
			"volume": {Default: 1.0, Description: "position size in base units"},
		},
		New: func() Strategy { return &smaCross{} },
	})
}

func (s *smaCross) OnStart(ctx *Context) error {
	s.fast = ctx.Params.Int("fast", 10)
	s.slow = ctx.Params.Int("slow", 30)
	s.volume = ctx.Broker.RoundAmount(ctx.Params.Float("volume", 1))
	if s.fast < 1 || s.slow <= s.fast {
		return fmt.Errorf("sma-cross: need 1 <= fast < slow, got fast=%d slow=%d", s.fast, s.slow)
	}
	if s.volume <= 0 {
		return fmt.Errorf("sma-cross: volume must be positive, got %v", s.volume)
	}
	return nil
}

func (s *smaCross) OnBar(ctx *Context) error {
	i := ctx.Index()
	if i < s.slow {
		return nil
	}
	fast, err := ctx.Talib().Series("sma", map[string]float64{"timeperiod": float64(s.fast)})
	if err != nil {
		return err
	}
	slow, err := ctx.Talib().Series("sma", map[string]float64{"timeperiod": float64(s.slow)})
	if err != nil {
		return err
	}

	pos := ctx.Broker.EquitySymbol()
	switch {
	case fast[i-1] <= slow[i-1] && fast[i] > slow[i] && pos <= 0:
		_, err = ctx.Broker.Buy(ctx.Broker.RoundAmount(s.volume-pos), 0, 0)
	case fast[i-1] >= slow[i-1] && fast[i] < slow[i] && pos >= 0:
		_, err = ctx.Broker.Sell(ctx.Broker.RoundAmount(s.volume+pos), 0, 0)
	}
	return err
}
