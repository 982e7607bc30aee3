package ta

import (
	"fmt"

	"tradesim/pkg/types"
)

// Proxy exposes indicator values to a strategy without letting it peek past
// the bar currently being processed. Each indicator is computed once over the
// full series and memoized; reads return a prefix ending at the cursor.
type Proxy struct {
	series *types.Series
	cursor func() int
	cache  map[string][][]float64
}

// NewProxy wraps a series. cursor reports the index of the bar the engine is
// currently on; values beyond it are never handed out.
func NewProxy(series *types.Series, cursor func() int) *Proxy {
	return &Proxy{
		series: series,
		cursor: cursor,
		cache:  make(map[string][][]float64),
	}
}

func (p *Proxy) column(name string) ([]float64, error) {
	switch name {
	case "open":
		return p.series.Open, nil
	case "high":
		return p.series.High, nil
	case "low":
		return p.series.Low, nil
	case "close", "real":
		return p.series.Close, nil
	case "volume":
		return p.series.Volume, nil
	}
	return nil, fmt.Errorf("unknown input column %q", name)
}

// Values computes (or retrieves) the named indicator and returns every output
// column truncated to the current bar.
func (p *Proxy) Values(name string, params map[string]float64) ([][]float64, error) {
	ind, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown indicator %q", name)
	}
	if err := ind.checkParams(params); err != nil {
		return nil, err
	}

	key := memoKey(ind.Name, params)
	full, ok := p.cache[key]
	if !ok {
		inputs := make([][]float64, len(ind.Inputs))
		for i, col := range ind.Inputs {
			c, err := p.column(col)
			if err != nil {
				return nil, fmt.Errorf("indicator %s: %w", ind.Name, err)
			}
			inputs[i] = c
		}
		full = ind.Compute(inputs, ind.resolve(params))
		p.cache[key] = full
	}

	limit := p.cursor() + 1
	if limit < 0 {
		limit = 0
	}
	out := make([][]float64, len(full))
	for i, col := range full {
		if limit > len(col) {
			out[i] = col
			continue
		}
		out[i] = col[:limit]
	}
	return out, nil
}

// Series returns the first output column of the indicator up to the current
// bar. Most indicators have a single output, which makes this the common call.
func (p *Proxy) Series(name string, params map[string]float64) ([]float64, error) {
	cols, err := p.Values(name, params)
	if err != nil {
		return nil, err
	}
	return cols[0], nil
}

// Last returns the indicator's first output at the current bar.
func (p *Proxy) Last(name string, params map[string]float64) (float64, error) {
	col, err := p.Series(name, params)
	if err != nil {
		return 0, err
	}
	if len(col) == 0 {
		return 0, fmt.Errorf("indicator %s: no bars", name)
	}
	return col[len(col)-1], nil
}
