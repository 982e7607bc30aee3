// Package testutil holds fixtures and fakes shared by the integration-style
// tests: deterministic bar sequences, runnable task objects and an in-memory
// exchange.
package testutil

import (
	"math"
	"time"

	"tradesim/pkg/types"
)

// Bars builds n consecutive bars starting at start, one timeframe step
// apart. Prices follow a deterministic sine walk around 100 so indicator
// warmups and crossovers have something to chew on, and every bar satisfies
// the OHLC ordering invariant.
func Bars(n int, start int64, tf types.Timeframe) []types.Bar {
	step := tf.Millis()
	bars := make([]types.Bar, 0, n)
	prev := 100.0
	for i := 0; i < n; i++ {
		c := 100 + 10*math.Sin(float64(i)/5)
		bars = append(bars, types.Bar{
			Time:   start + int64(i)*step,
			Open:   prev,
			High:   math.Max(prev, c) + 0.5,
			Low:    math.Min(prev, c) - 0.5,
			Close:  c,
			Volume: 1000 + float64(i%7)*10,
		})
		prev = c
	}
	return bars
}

// Series is shorthand for a column view over Bars.
func Series(n int, start int64, tf types.Timeframe) *types.Series {
	return types.NewSeries(Bars(n, start, tf))
}

// Task returns a valid, runnable task covering n hourly bars.
func Task(id int64, strategyName string, n int) *types.Task {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &types.Task{
		ID:              id,
		FileName:        strategyName,
		Source:          "binance",
		Symbol:          "BTC/USDT",
		Timeframe:       types.TF1h,
		DateStart:       start,
		DateEnd:         start.Add(time.Duration(n) * time.Hour),
		FeeTaker:        0.002,
		FeeMaker:        0.001,
		PriceStep:       0.01,
		PrecisionAmount: 0.001,
		PrecisionPrice:  0.01,
	}
}
