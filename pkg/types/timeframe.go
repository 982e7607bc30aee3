package types

import (
	"fmt"
	"time"
)

// Timeframe is the symbolic bar duration ("1m", "1h", ...). Every timeframe
// maps to a canonical millisecond length; bar times are aligned to multiples
// of that length.
type Timeframe string

// Supported timeframes, shortest to longest.
const (
	TF1s  Timeframe = "1s"
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
	TF1w  Timeframe = "1w"
	TF1M  Timeframe = "1M"
)

//nolint:gochecknoglobals // canonical timeframe table
var timeframeMillis = map[Timeframe]int64{
	TF1s:  1_000,
	TF1m:  60_000,
	TF5m:  300_000,
	TF15m: 900_000,
	TF30m: 1_800_000,
	TF1h:  3_600_000,
	TF4h:  14_400_000,
	TF1d:  86_400_000,
	TF1w:  604_800_000,
	TF1M:  2_592_000_000, // calendar month approximated as 30 days
}

// ParseTimeframe validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeMillis[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// Valid reports whether the timeframe is one of the supported values.
func (tf Timeframe) Valid() bool {
	_, ok := timeframeMillis[tf]
	return ok
}

// Millis returns the canonical duration of one bar in milliseconds.
// Panics on an unknown timeframe; validate at the boundary first.
func (tf Timeframe) Millis() int64 {
	ms, ok := timeframeMillis[tf]
	if !ok {
		panic(fmt.Sprintf("unknown timeframe %q", tf))
	}
	return ms
}

// Duration returns the canonical duration of one bar.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.Millis()) * time.Millisecond
}

// Align snaps a millisecond timestamp down to the timeframe boundary.
func (tf Timeframe) Align(ms int64) int64 {
	step := tf.Millis()
	return ms - ms%step
}

func (tf Timeframe) String() string { return string(tf) }
