package ta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/pkg/types"
)

func testSeries(closes ...float64) *types.Series {
	s := &types.Series{}
	for i, c := range closes {
		s.Append(types.Bar{
			Time:   int64(i) * 60_000,
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 100,
		})
	}
	return s
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	_, ok := Lookup("SMA")
	assert.True(t, ok)
	_, ok = Lookup("sMa")
	assert.True(t, ok)
	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestSmaWarmupAndValues(t *testing.T) {
	series := testSeries(1, 2, 3, 4, 5, 6)
	cursor := series.Len() - 1
	p := NewProxy(series, func() int { return cursor })

	col, err := p.Series("sma", map[string]float64{"timeperiod": 3})
	require.NoError(t, err)
	require.Len(t, col, 6)

	// go-talib zero-fills the warmup region and emits values from period-1 on.
	assert.InDeltaSlice(t, []float64{0, 0, 2, 3, 4, 5}, col, 1e-9)
}

func TestValuesTruncateAtCursor(t *testing.T) {
	series := testSeries(1, 2, 3, 4, 5, 6)
	cursor := 0
	p := NewProxy(series, func() int { return cursor })

	for cursor = 0; cursor < series.Len(); cursor++ {
		col, err := p.Series("sma", map[string]float64{"timeperiod": 3})
		require.NoError(t, err)
		assert.Len(t, col, cursor+1)
	}
}

func TestLastReturnsCurrentBarValue(t *testing.T) {
	series := testSeries(1, 2, 3, 4, 5, 6)
	cursor := 3
	p := NewProxy(series, func() int { return cursor })

	v, err := p.Last("sma", map[string]float64{"timeperiod": 3})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-9)

	cursor = 5
	v, err = p.Last("sma", map[string]float64{"timeperiod": 3})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, v, 1e-9)
}

func TestValuesMemoizesPerParamSet(t *testing.T) {
	calls := 0
	Register(Indicator{
		Name:    "counting_fake",
		Inputs:  []string{"real"},
		Params:  []Param{{Name: "timeperiod", Default: 2, Int: true}},
		Outputs: []string{"real"},
		Compute: func(in [][]float64, _ []float64) [][]float64 {
			calls++
			out := make([]float64, len(in[0]))
			copy(out, in[0])
			return [][]float64{out}
		},
	})

	series := testSeries(1, 2, 3)
	p := NewProxy(series, func() int { return 2 })

	_, err := p.Series("counting_fake", nil)
	require.NoError(t, err)
	_, err = p.Series("counting_fake", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "same params should hit the cache")

	_, err = p.Series("counting_fake", map[string]float64{"timeperiod": 5})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "different params should recompute")
}

func TestMacdHasThreeOutputs(t *testing.T) {
	closes := make([]float64, 0, 60)
	for i := 0; i < 60; i++ {
		closes = append(closes, 100+float64(i%7))
	}
	series := testSeries(closes...)
	p := NewProxy(series, func() int { return series.Len() - 1 })

	cols, err := p.Values("macd", nil)
	require.NoError(t, err)
	require.Len(t, cols, 3)
	for _, col := range cols {
		assert.Len(t, col, series.Len())
	}
}

func TestUnknownIndicatorAndParamErrors(t *testing.T) {
	series := testSeries(1, 2, 3)
	p := NewProxy(series, func() int { return 2 })

	_, err := p.Values("wavelet", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown indicator")

	_, err = p.Values("sma", map[string]float64{"sigma": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown parameter")
}

func TestDefaultsApplied(t *testing.T) {
	closes := make([]float64, 0, 30)
	for i := 0; i < 30; i++ {
		closes = append(closes, float64(i+1))
	}
	series := testSeries(closes...)
	p := NewProxy(series, func() int { return series.Len() - 1 })

	got, err := p.Series("sma", nil)
	require.NoError(t, err)
	want, err := p.Series("sma", map[string]float64{"timeperiod": 14})
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-9)
}

func TestMemoKeyOrderIndependent(t *testing.T) {
	a := memoKey("bbands", map[string]float64{"timeperiod": 20, "nbdevup": 2})
	b := memoKey("bbands", map[string]float64{"nbdevup": 2, "timeperiod": 20})
	assert.Equal(t, a, b)
}

func TestNamesSortedAndPopulated(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "sma")
	assert.Contains(t, names, "macd")
	assert.Contains(t, names, "bbands")
}
