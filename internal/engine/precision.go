package engine

import "math"

// RoundToPrecision snaps v to the nearest multiple of step. A non-positive
// step returns v unchanged.
func RoundToPrecision(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

// RoundPrice snaps a price to the engine's price precision. Strategies use
// it to align prices before placing orders, since validation rejects values
// that are not already rounded.
func (e *Engine) RoundPrice(v float64) float64 { return e.roundPrice(v) }

// RoundAmount snaps a volume to the engine's amount precision.
func (e *Engine) RoundAmount(v float64) float64 { return e.roundAmount(v) }

func (e *Engine) roundPrice(v float64) float64 {
	return RoundToPrecision(v, e.cfg.PrecisionPrice)
}

func (e *Engine) roundAmount(v float64) float64 {
	return RoundToPrecision(v, e.cfg.PrecisionAmount)
}

// Price comparisons tolerate a tenth of the price precision, so values that
// went through independent roundings still compare as intended.
func (e *Engine) priceEps() float64 { return e.cfg.PrecisionPrice / 10 }

func (e *Engine) amountEps() float64 { return e.cfg.PrecisionAmount / 10 }

func (e *Engine) priceEq(a, b float64) bool  { return math.Abs(a-b) <= e.priceEps() }
func (e *Engine) priceLt(a, b float64) bool  { return b-a > e.priceEps() }
func (e *Engine) priceGt(a, b float64) bool  { return a-b > e.priceEps() }
func (e *Engine) priceLte(a, b float64) bool { return a-b <= e.priceEps() }
func (e *Engine) priceGte(a, b float64) bool { return b-a <= e.priceEps() }

func (e *Engine) amountZero(v float64) bool { return math.Abs(v) <= e.amountEps() }

// priceRounded reports whether v already equals its precision-rounded form.
func (e *Engine) priceRounded(v float64) bool {
	return math.Abs(v-e.roundPrice(v)) <= e.priceEps()
}

func (e *Engine) amountRounded(v float64) bool {
	return math.Abs(v-e.roundAmount(v)) <= e.amountEps()
}

// slippage is the adverse price movement applied to market and stop fills.
func (e *Engine) slippage() float64 {
	return float64(e.cfg.SlippageInSteps) * e.cfg.PriceStep
}
