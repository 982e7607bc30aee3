package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradesim/internal/engine"
	"tradesim/internal/ta"
	"tradesim/pkg/types"
)

const eps = 1e-9

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New(&engine.Config{
		FeeTaker:        0.002,
		FeeMaker:        0.001,
		PriceStep:       0.01,
		PrecisionAmount: 0.001,
		PrecisionPrice:  0.01,
		Logger:          zap.NewNop(),
	})
	require.NoError(t, err)
	return eng
}

func mkBar(i int, h, l, c float64) types.Bar {
	return types.Bar{Time: int64(i) * 60_000, Open: c, High: h, Low: l, Close: c, Volume: 100}
}

// barsAround builds bars whose highs and lows straddle each close by half a
// point, wide enough to carry the close but too narrow to touch test orders.
func barsAround(closes ...float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = mkBar(i, c+0.5, c-0.5, c)
	}
	return bars
}

// runStrategy drives one strategy over the bars the way the backtest driver
// does: match first, then the strategy callback, closing leftovers at the
// end.
func runStrategy(t *testing.T, name string, params Params, bars []types.Bar) *engine.Engine {
	t.Helper()
	desc, ok := Lookup(name)
	require.True(t, ok, "strategy %s not registered", name)

	eng := newTestEngine(t)
	series := types.NewSeries(bars)
	ctx := &Context{
		Broker: eng,
		Series: series,
		TA:     map[string]*ta.Proxy{"talib": ta.NewProxy(series, eng.BarIndex)},
		Params: params,
		Logger: zap.NewNop(),
	}

	s := desc.New()
	require.NoError(t, s.OnStart(ctx))
	for i := 0; i < series.Len(); i++ {
		eng.ProcessBar(i, series.Bar(i))
		require.NoError(t, s.OnBar(ctx))
	}
	eng.CloseAll()
	require.NoError(t, s.OnFinish(ctx))
	require.NoError(t, eng.SelfCheck())
	return eng
}

func TestRegistryListsBuiltins(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "sma-cross")
	assert.Contains(t, names, "channel-breakout")
	assert.Contains(t, names, "rsi-reversion")

	for _, d := range All() {
		assert.NotNil(t, d.New, "descriptor %s has no constructor", d.Name)
		assert.NotEmpty(t, d.Params, "descriptor %s has no parameter descriptions", d.Name)
		for name, p := range d.Params {
			assert.NotEmpty(t, p.Description, "%s.%s has no description", d.Name, name)
			assert.NotNil(t, p.Default, "%s.%s has no default", d.Name, name)
		}
	}

	_, ok := Lookup("SMA-Cross")
	assert.True(t, ok, "lookup should be case-insensitive")
}

func TestParamsCoercion(t *testing.T) {
	p := Params{
		"float":  2.5,
		"int":    7,
		"int64":  int64(9),
		"string": "hello",
		"bool":   true,
	}

	assert.InDelta(t, 2.5, p.Float("float", 0), eps)
	assert.InDelta(t, 7.0, p.Float("int", 0), eps)
	assert.InDelta(t, 9.0, p.Float("int64", 0), eps)
	assert.InDelta(t, 1.5, p.Float("missing", 1.5), eps)
	assert.InDelta(t, 1.5, p.Float("string", 1.5), eps)

	assert.Equal(t, 7, p.Int("int", 0))
	assert.Equal(t, 2, p.Int("float", 0))
	assert.Equal(t, 42, p.Int("missing", 42))

	assert.Equal(t, "hello", p.String("string", ""))
	assert.Equal(t, "dflt", p.String("missing", "dflt"))

	assert.True(t, p.Bool("bool", false))
	assert.False(t, p.Bool("missing", false))
}

func TestContextSlicesTrackCursor(t *testing.T) {
	eng := newTestEngine(t)
	series := types.NewSeries(barsAround(1, 2, 3, 4))
	ctx := &Context{Broker: eng, Series: series}

	assert.Empty(t, ctx.Closes(), "no bars processed yet")

	for i := 0; i < series.Len(); i++ {
		eng.ProcessBar(i, series.Bar(i))
		assert.Len(t, ctx.Closes(), i+1)
		assert.Len(t, ctx.Times(), i+1)
		assert.Len(t, ctx.Highs(), i+1)
		assert.InDelta(t, series.Close[i], ctx.Price(), eps)
		assert.Equal(t, series.Time[i], ctx.Time())
	}
}

func TestSmaCrossFlipsOnCrossover(t *testing.T) {
	bars := barsAround(10, 9, 8, 7, 8, 9, 10, 11, 10, 9, 8)
	eng := runStrategy(t, "sma-cross", Params{"fast": 2, "slow": 3, "volume": 1.0}, bars)

	deals := eng.Deals()
	require.Len(t, deals, 2)
	assert.Equal(t, types.Long, deals[0].Type)
	assert.Equal(t, types.Short, deals[1].Type)
	for _, d := range deals {
		assert.True(t, d.IsClosed)
		assert.True(t, d.Auto)
	}
	require.Len(t, eng.Trades(), 4)

	// Long from the cross at 9, flipped short at 9, bought back at 8.
	assert.InDelta(t, -0.036, deals[0].Profit, eps)
	assert.InDelta(t, 0.966, deals[1].Profit, eps)
	assert.True(t, eng.Flat())
}

func TestSmaCrossStaysIdleWithoutCross(t *testing.T) {
	bars := barsAround(10, 10, 10, 10, 10, 10)
	eng := runStrategy(t, "sma-cross", Params{"fast": 2, "slow": 3}, bars)
	assert.Empty(t, eng.Deals())
	assert.Empty(t, eng.Trades())
}

func TestChannelBreakoutBracketsLong(t *testing.T) {
	bars := []types.Bar{
		mkBar(0, 10.5, 9.5, 10),
		mkBar(1, 10.5, 9.5, 10),
		mkBar(2, 10.5, 9.5, 10),
		mkBar(3, 10.5, 9.5, 10),
		mkBar(4, 12.5, 11.5, 12), // close above the 3-bar channel
		mkBar(5, 13.5, 12.5, 13),
		mkBar(6, 15, 12.4, 12.9), // high crosses the take at 14
	}
	eng := runStrategy(t, "channel-breakout", Params{"period": 3, "volume": 1.0}, bars)

	deals := eng.Deals()
	require.Len(t, deals, 1)
	d := deals[0]
	assert.Equal(t, types.Long, d.Type)
	assert.True(t, d.IsClosed)
	assert.Equal(t, types.GroupTakeProfit, d.CloseType)
	// Entry 1 @ 12 taker, take 1 @ 14 maker.
	assert.InDelta(t, 14-12-(12*0.002+14*0.001), d.Profit, eps)

	var stop *types.Order
	for _, o := range eng.Orders() {
		if o.Group == types.GroupStopLoss {
			stop = o
		}
	}
	require.NotNil(t, stop)
	assert.Equal(t, types.StatusCanceled, stop.Status)
	assert.InDelta(t, 10.0, stop.TriggerPrice, eps)
}

func TestChannelBreakoutShortMirror(t *testing.T) {
	bars := []types.Bar{
		mkBar(0, 10.5, 9.5, 10),
		mkBar(1, 10.5, 9.5, 10),
		mkBar(2, 10.5, 9.5, 10),
		mkBar(3, 10.5, 9.5, 10),
		mkBar(4, 8.5, 7.5, 8), // close below the 3-bar channel
		mkBar(5, 8.2, 5.9, 8.05), // low crosses the take at 6
	}
	eng := runStrategy(t, "channel-breakout", Params{"period": 3, "volume": 1.0}, bars)

	deals := eng.Deals()
	require.Len(t, deals, 1)
	d := deals[0]
	assert.Equal(t, types.Short, d.Type)
	assert.Equal(t, types.GroupTakeProfit, d.CloseType)
	// Entry sell 1 @ 8 taker, take buy 1 @ 6 maker.
	assert.InDelta(t, 8-6-(8*0.002+6*0.001), d.Profit, eps)
	assert.True(t, eng.Flat())
}

func TestRsiReversionScalesOut(t *testing.T) {
	bars := []types.Bar{
		mkBar(0, 10.2, 9.8, 10),
		mkBar(1, 9.7, 9.3, 9.5),
		mkBar(2, 9.2, 8.8, 9), // two straight losses: RSI(2) pins to 0
		mkBar(3, 9.7, 9.3, 9.5), // high crosses both takes
	}
	eng := runStrategy(t, "rsi-reversion", Params{"period": 2, "volume": 1.0}, bars)

	deals := eng.Deals()
	require.Len(t, deals, 1)
	d := deals[0]
	assert.Equal(t, types.Long, d.Type)
	assert.Equal(t, types.GroupTakeProfit, d.CloseType)

	// Entry 1 @ 9 taker; takes 0.5 @ 9.18 and 0.5 @ 9.36, both maker.
	wantFee := 9*0.002 + 9.18*0.5*0.001 + 9.36*0.5*0.001
	assert.InDelta(t, 0.5*9.18+0.5*9.36-9-wantFee, d.Profit, eps)

	var takes int
	for _, o := range eng.Orders() {
		if o.Group == types.GroupTakeProfit {
			takes++
			assert.Equal(t, types.StatusExecuted, o.Status)
			assert.InDelta(t, 0.5, o.Volume, eps)
		}
	}
	assert.Equal(t, 2, takes)
}

func TestRsiReversionExitsOverbought(t *testing.T) {
	// Takes pushed far away so the overbought close fires first.
	bars := []types.Bar{
		mkBar(0, 10.2, 9.8, 10),
		mkBar(1, 9.7, 9.3, 9.5),
		mkBar(2, 9.2, 8.8, 9),
		mkBar(3, 12.2, 11.8, 12), // RSI(2) swings overbought
	}
	eng := runStrategy(t, "rsi-reversion", Params{"period": 2, "volume": 1.0, "take_pct": 1.0}, bars)

	deals := eng.Deals()
	require.Len(t, deals, 1)
	d := deals[0]
	assert.True(t, d.IsClosed)
	assert.Equal(t, types.GroupNone, d.CloseType, "closed at market, not by a bracket")
	// Entry 1 @ 9 taker, market exit 1 @ 12 taker.
	assert.InDelta(t, 12-9-(9*0.002+12*0.002), d.Profit, eps)
}

func TestOnStartValidatesParams(t *testing.T) {
	eng := newTestEngine(t)
	ctx := &Context{Broker: eng, Series: &types.Series{}, Params: Params{}}

	tests := []struct {
		strategy string
		params   Params
		wantErr  string
	}{
		{"sma-cross", Params{"fast": 30, "slow": 10}, "fast < slow"},
		{"sma-cross", Params{"volume": -1.0}, "volume must be positive"},
		{"channel-breakout", Params{"period": 1}, "period must be at least 2"},
		{"channel-breakout", Params{"reward_ratio": 0.0}, "reward_ratio must be positive"},
		{"rsi-reversion", Params{"oversold": 80.0, "overbought": 20.0}, "below overbought"},
		{"rsi-reversion", Params{"stop_pct": 1.5}, "stop_pct"},
	}
	for _, tt := range tests {
		desc, ok := Lookup(tt.strategy)
		require.True(t, ok)
		s := desc.New()
		ctx.Params = tt.params
		err := s.OnStart(ctx)
		require.Error(t, err, "%s %v", tt.strategy, tt.params)
		assert.Contains(t, err.Error(), tt.wantErr)
	}
}
