package randx

import "math"

// SafeDiv divides num by den, returning fallback when the denominator is
// zero or the division would not produce a finite number.
func SafeDiv(num, den, fallback float64) float64 {
	if den == 0 || math.IsNaN(den) {
		return fallback
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
