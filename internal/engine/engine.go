// Package engine simulates order matching, position tracking and trading
// statistics for one backtest run.
//
// The engine owns flat arenas of orders, deals and trades; objects reference
// each other by id, never by pointer. Ids are the arena index plus one, so
// deal ids are contiguous 1..N. All mutation goes through the engine, which
// stamps modify times and keeps the statistics current.
package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradesim/pkg/types"
)

// Config carries the simulation parameters, normally copied from the task.
type Config struct {
	FeeTaker        float64
	FeeMaker        float64
	PriceStep       float64
	PrecisionAmount float64
	PrecisionPrice  float64
	SlippageInSteps int

	InitialEquityUSD float64

	Logger *zap.Logger
}

// Engine is the deterministic matching and accounting core. It is not safe
// for concurrent use; the bar loop drives it from a single goroutine.
type Engine struct {
	cfg    Config
	logger *zap.Logger

	orders []*types.Order
	deals  []*types.Deal
	trades []*types.Trade

	// autoDealID is the open deal that bare buy/sell fills attach to, zero
	// when the next such fill has to open a fresh deal.
	autoDealID int64

	barIndex     int
	currentTime  time.Time
	currentMs    int64
	currentPrice float64

	equityUSD    float64
	equitySymbol float64

	stats         types.TradingStats
	profitHistory []types.ProfitPoint
}

// New builds an engine. Both precisions must be positive; everything else
// may be zero.
func New(cfg *Config) (*Engine, error) {
	if cfg.PrecisionPrice <= 0 {
		return nil, fmt.Errorf("precision price must be positive, got %v", cfg.PrecisionPrice)
	}
	if cfg.PrecisionAmount <= 0 {
		return nil, fmt.Errorf("precision amount must be positive, got %v", cfg.PrecisionAmount)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:       *cfg,
		logger:    logger,
		barIndex:  -1,
		equityUSD: cfg.InitialEquityUSD,
	}, nil
}

// NewFromTask builds an engine with the task's fee, precision and slippage
// parameters.
func NewFromTask(task *types.Task, logger *zap.Logger) (*Engine, error) {
	return New(&Config{
		FeeTaker:        task.FeeTaker,
		FeeMaker:        task.FeeMaker,
		PriceStep:       task.PriceStep,
		PrecisionAmount: task.PrecisionAmount,
		PrecisionPrice:  task.PrecisionPrice,
		SlippageInSteps: task.SlippageInSteps,
		Logger:          logger,
	})
}

// ProcessBar advances the simulation to bar i: it moves the cursor to the
// bar's close, matches resting orders against the bar's high/low, reconciles
// stop-loss and take-profit volumes for open deals, and refreshes the
// profit and drawdown figures. The strategy callback for the same bar runs
// after this returns, so orders it places are first matched on the next bar.
func (e *Engine) ProcessBar(i int, bar types.Bar) {
	e.barIndex = i
	e.currentMs = bar.Time
	e.currentTime = time.UnixMilli(bar.Time).UTC()
	e.currentPrice = bar.Close

	e.matchBar(bar.High, bar.Low)
	e.reconcileSLTP()
	e.refreshProfit()
}

// RecordProfitPoint appends the current profit to the equity curve. The
// driver calls it once per bar, after the strategy callback, so same-bar
// trades are reflected in the recorded point.
func (e *Engine) RecordProfitPoint() {
	e.profitHistory = append(e.profitHistory, types.ProfitPoint{
		Time:   e.currentMs,
		Profit: e.stats.Profit,
	})
}

// CloseAll closes every open deal at market. The driver calls it when the
// bar loop ends or the run is aborted.
func (e *Engine) CloseAll() {
	for _, d := range e.deals {
		if !d.IsClosed {
			e.closeDeal(d)
		}
	}
}

// CloseDeal cancels the deal's working orders and closes any remaining
// position with a market order.
func (e *Engine) CloseDeal(id int64) error {
	d := e.deal(id)
	if d == nil {
		return fmt.Errorf("%w: deal %d", types.ErrNotFound, id)
	}
	if d.IsClosed {
		return nil
	}
	e.closeDeal(d)
	return nil
}

func (e *Engine) deal(id int64) *types.Deal {
	if id < 1 || int(id) > len(e.deals) {
		return nil
	}
	return e.deals[id-1]
}

func (e *Engine) order(id int64) *types.Order {
	if id < 1 || int(id) > len(e.orders) {
		return nil
	}
	return e.orders[id-1]
}

// touch stamps the order's modify time. Every field change goes through the
// engine, which calls this in place of the original implicit on-set hook.
func (e *Engine) touch(o *types.Order) {
	o.ModifyTime = e.currentTime
}

func (e *Engine) Orders() []*types.Order { return e.orders }
func (e *Engine) Deals() []*types.Deal   { return e.deals }
func (e *Engine) Trades() []*types.Trade { return e.trades }

// ActiveDeals returns the deals that are still open, in id order.
func (e *Engine) ActiveDeals() []*types.Deal {
	var open []*types.Deal
	for _, d := range e.deals {
		if !d.IsClosed {
			open = append(open, d)
		}
	}
	return open
}

func (e *Engine) Stats() *types.TradingStats        { return &e.stats }
func (e *Engine) ProfitHistory() []types.ProfitPoint { return e.profitHistory }
func (e *Engine) EquityUSD() float64                { return e.equityUSD }
func (e *Engine) EquitySymbol() float64             { return e.equitySymbol }
func (e *Engine) CurrentPrice() float64             { return e.currentPrice }
func (e *Engine) CurrentTime() int64                { return e.currentMs }
func (e *Engine) BarIndex() int                     { return e.barIndex }

// Flat reports whether the instrument position is zero within the amount
// precision tolerance.
func (e *Engine) Flat() bool {
	return e.amountZero(e.equitySymbol)
}
