// Package ta exposes technical-analysis indicators to strategies through a
// static descriptor registry and a per-run memoizing proxy.
//
// Each indicator declares which OHLCV columns it consumes and which named
// parameters it takes, so strategies address indicators uniformly by name and
// keyword parameters without knowing the underlying library's signatures.
package ta

import (
	"fmt"
	"sort"
	"strings"
)

// Param is one named indicator parameter with its default.
type Param struct {
	Name    string
	Default float64
	// Int marks parameters the underlying library takes as integers, such
	// as period lengths and moving-average types.
	Int bool
}

// Indicator describes one registered indicator. Inputs name the source
// columns in positional order: open, high, low, close, volume, or real
// (which resolves to close). Compute receives the resolved input columns and
// the parameter values in declared order and returns the full-length output
// columns.
type Indicator struct {
	Name    string
	Inputs  []string
	Params  []Param
	Outputs []string
	Compute func(inputs [][]float64, params []float64) [][]float64
}

var registry = map[string]Indicator{}

// Register adds an indicator to the registry. Registering a duplicate name
// panics; the registry is assembled once at startup.
func Register(ind Indicator) {
	key := strings.ToLower(ind.Name)
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("ta: indicator %q registered twice", ind.Name))
	}
	registry[key] = ind
}

// Lookup finds an indicator by case-insensitive name.
func Lookup(name string) (Indicator, bool) {
	ind, ok := registry[strings.ToLower(name)]
	return ind, ok
}

// Names lists the registered indicators in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolve produces the parameter vector in declared order, applying defaults
// for anything the caller omitted.
func (ind Indicator) resolve(params map[string]float64) []float64 {
	out := make([]float64, len(ind.Params))
	for i, p := range ind.Params {
		if v, ok := params[p.Name]; ok {
			out[i] = v
		} else {
			out[i] = p.Default
		}
	}
	return out
}

// checkParams rejects parameter names the indicator does not declare.
func (ind Indicator) checkParams(params map[string]float64) error {
	for name := range params {
		found := false
		for _, p := range ind.Params {
			if p.Name == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("indicator %s: unknown parameter %q", ind.Name, name)
		}
	}
	return nil
}

// memoKey builds the cache key from the indicator name and the sorted
// parameter set, so identical calls share one full-series computation.
func memoKey(name string, params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(strings.ToLower(name))
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, params[k])
	}
	return b.String()
}
