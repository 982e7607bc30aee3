package testutil

import (
	"context"
	"sync"

	"tradesim/internal/exchange"
	"tradesim/pkg/types"
)

// FakeExchange is an in-memory exchange.Client seeded with bar history per
// (symbol, timeframe). It honors since/limit pagination the way the live
// klines endpoint does, so the fetcher's hold-back and gap logic can be
// exercised without a network.
type FakeExchange struct {
	mu      sync.Mutex
	bars    map[string][]types.Bar
	markets map[string]*exchange.Market

	FetchCalls  int
	MarketCalls int
	FetchErr    error
}

// NewFakeExchange creates an empty fake exchange.
func NewFakeExchange() *FakeExchange {
	return &FakeExchange{
		bars:    make(map[string][]types.Bar),
		markets: make(map[string]*exchange.Market),
	}
}

// SeedBars installs the bar history for a symbol and timeframe, replacing
// whatever was there, and registers the symbol as an active market.
func (f *FakeExchange) SeedBars(symbol string, tf types.Timeframe, bars []types.Bar) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bars[seriesKey(symbol, tf)] = bars
	if _, ok := f.markets[symbol]; !ok {
		f.markets[symbol] = &exchange.Market{
			Symbol:     symbol,
			ID:         exchange.NativeSymbol(symbol),
			Active:     true,
			PriceStep:  0.01,
			AmountStep: 0.001,
		}
	}
}

// FetchOHLCV returns up to limit seeded bars at or after since.
func (f *FakeExchange) FetchOHLCV(_ context.Context, symbol string, tf types.Timeframe, since int64, limit int) ([]types.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.FetchCalls++
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}

	all := f.bars[seriesKey(symbol, tf)]
	var out []types.Bar
	for _, b := range all {
		if b.Time < since {
			continue
		}
		out = append(out, b)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// FetchMarket returns seeded metadata or types.ErrNoMarket.
func (f *FakeExchange) FetchMarket(_ context.Context, symbol string) (*exchange.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.MarketCalls++
	m, ok := f.markets[symbol]
	if !ok {
		return nil, types.ErrNoMarket
	}
	cp := *m
	return &cp, nil
}

func seriesKey(symbol string, tf types.Timeframe) string {
	return symbol + "|" + string(tf)
}

// StaticQuotes is a bar source that always answers with the same series.
// It satisfies the driver's QuotesSource without a bus round-trip.
type StaticQuotes struct {
	Series *types.Series
	Err    error
	Calls  int
}

// GetQuotes returns the canned series.
func (s *StaticQuotes) GetQuotes(context.Context, string, string, types.Timeframe, int64, int64) (*types.Series, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Series, nil
}
