package types

import "fmt"

// Bar is one OHLCV candle. Time is the bar open in Unix milliseconds,
// aligned to the timeframe boundary. Bars are unique per
// (source, symbol, timeframe, time).
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Validate checks the OHLC ordering invariant: low ≤ {open, close} ≤ high,
// volume ≥ 0.
func (b Bar) Validate() error {
	if b.Low > b.Open || b.Low > b.Close {
		return fmt.Errorf("bar %d: low %g above open %g / close %g", b.Time, b.Low, b.Open, b.Close)
	}
	if b.High < b.Open || b.High < b.Close {
		return fmt.Errorf("bar %d: high %g below open %g / close %g", b.Time, b.High, b.Open, b.Close)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %d: negative volume %g", b.Time, b.Volume)
	}
	return nil
}

// Series is a column-oriented view of a bar sequence. The quotes wire format
// and the strategy callbacks both work on columns, so bars are kept unpacked
// only at the storage edge.
type Series struct {
	Time   []int64
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// Len returns the number of rows.
func (s *Series) Len() int { return len(s.Time) }

// Bar reassembles row i.
func (s *Series) Bar(i int) Bar {
	return Bar{
		Time:   s.Time[i],
		Open:   s.Open[i],
		High:   s.High[i],
		Low:    s.Low[i],
		Close:  s.Close[i],
		Volume: s.Volume[i],
	}
}

// Append adds one bar to every column.
func (s *Series) Append(b Bar) {
	s.Time = append(s.Time, b.Time)
	s.Open = append(s.Open, b.Open)
	s.High = append(s.High, b.High)
	s.Low = append(s.Low, b.Low)
	s.Close = append(s.Close, b.Close)
	s.Volume = append(s.Volume, b.Volume)
}

// NewSeries builds a column view from a bar slice.
func NewSeries(bars []Bar) *Series {
	s := &Series{
		Time:   make([]int64, 0, len(bars)),
		Open:   make([]float64, 0, len(bars)),
		High:   make([]float64, 0, len(bars)),
		Low:    make([]float64, 0, len(bars)),
		Close:  make([]float64, 0, len(bars)),
		Volume: make([]float64, 0, len(bars)),
	}
	for _, b := range bars {
		s.Append(b)
	}
	return s
}
