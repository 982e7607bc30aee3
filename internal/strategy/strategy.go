// Package strategy defines the plugin surface for trading strategies and a
// compiled-in registry of the strategies this binary ships with.
//
// A strategy implements the three lifecycle callbacks and registers itself
// through an init function with a Descriptor carrying its parameter
// descriptions. The driver looks strategies up by the task's file_name key.
package strategy

import (
	"go.uber.org/zap"

	"tradesim/internal/engine"
	"tradesim/internal/ta"
	"tradesim/pkg/types"
)

// Strategy is one trading strategy's lifecycle. OnStart runs before the
// first bar, OnBar once per bar after the engine has matched resting orders,
// OnFinish after the last bar before remaining positions are closed. Any
// error aborts the run.
type Strategy interface {
	OnStart(ctx *Context) error
	OnBar(ctx *Context) error
	OnFinish(ctx *Context) error
}

// Base provides no-op lifecycle methods so strategies only implement the
// callbacks they care about.
type Base struct{}

func (Base) OnStart(*Context) error  { return nil }
func (Base) OnBar(*Context) error    { return nil }
func (Base) OnFinish(*Context) error { return nil }

// Broker is the order-placement and account surface the engine exposes to a
// strategy.
type Broker interface {
	Buy(volume, price, triggerPrice float64) (*types.Order, error)
	Sell(volume, price, triggerPrice float64) (*types.Order, error)
	ExecuteDeal(side types.OrderSide, entries []engine.EntrySpec, stopLosses, takeProfits []engine.CloseSpec) (*types.Deal, error)
	CancelOrders(ids ...int64)
	CloseDeal(id int64) error

	Orders() []*types.Order
	Deals() []*types.Deal
	ActiveDeals() []*types.Deal
	EquityUSD() float64
	EquitySymbol() float64
	CurrentPrice() float64
	CurrentTime() int64
	BarIndex() int
	Flat() bool

	RoundPrice(v float64) float64
	RoundAmount(v float64) float64
}

// Context is a strategy's window into one running backtest: the broker it
// trades through, the bar columns up to the current index, TA proxies keyed
// by library name, and the task's parameter map.
type Context struct {
	Broker Broker
	Series *types.Series
	TA     map[string]*ta.Proxy
	Params Params
	Logger *zap.Logger
}

// Index is the current bar index, -1 before the first bar.
func (c *Context) Index() int { return c.Broker.BarIndex() }

// Time is the current bar's timestamp in Unix milliseconds.
func (c *Context) Time() int64 { return c.Broker.CurrentTime() }

// Price is the current bar's close.
func (c *Context) Price() float64 { return c.Broker.CurrentPrice() }

// Talib returns the proxy for the talib indicator library.
func (c *Context) Talib() *ta.Proxy { return c.TA["talib"] }

func (c *Context) n() int {
	n := c.Broker.BarIndex() + 1
	if n < 0 {
		n = 0
	}
	if c.Series != nil && n > c.Series.Len() {
		n = c.Series.Len()
	}
	return n
}

// Times through Volumes return the bar columns up to and including the
// current bar. The slices alias the run's series and must not be mutated.

func (c *Context) Times() []int64     { return c.Series.Time[:c.n()] }
func (c *Context) Opens() []float64   { return c.Series.Open[:c.n()] }
func (c *Context) Highs() []float64   { return c.Series.High[:c.n()] }
func (c *Context) Lows() []float64    { return c.Series.Low[:c.n()] }
func (c *Context) Closes() []float64  { return c.Series.Close[:c.n()] }
func (c *Context) Volumes() []float64 { return c.Series.Volume[:c.n()] }

// Params is the free-form strategy parameter map carried by a task. Values
// decoded from JSON arrive as float64; the getters coerce the common numeric
// shapes and fall back to the given default when a key is absent or of the
// wrong kind.
type Params map[string]any

func (p Params) Float(name string, def float64) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

func (p Params) Int(name string, def int) int {
	switch v := p[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

func (p Params) String(name, def string) string {
	if v, ok := p[name].(string); ok {
		return v
	}
	return def
}

func (p Params) Bool(name string, def bool) bool {
	if v, ok := p[name].(bool); ok {
		return v
	}
	return def
}
