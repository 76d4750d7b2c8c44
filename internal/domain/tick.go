package domain

import "math"

// tickEpsilon absorbs float64 representation noise when checking alignment
// of prices that are conceptually exact tick multiples.
const tickEpsilon = 1e-6

// RoundToTick rounds a price to the nearest integer multiple of tick.
// Exact half-tick values round to the even multiple, keeping the rounding
// bias-free over many cycles.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.RoundToEven(price/tick) * tick
}

// IsTickAligned reports whether price is an integer multiple of tick
// within floating tolerance.
func IsTickAligned(price, tick float64) bool {
	if tick <= 0 {
		return false
	}
	ratio := price / tick
	return math.Abs(ratio-math.Round(ratio)) < tickEpsilon
}
