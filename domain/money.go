package domain

import "math"

// ToMinorUnits converts a major-unit amount (e.g. 45.90 EUR) to cents,
// rounding half away from zero.
func ToMinorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}

// ToMajorUnits converts cents to a major-unit amount.
func ToMajorUnits(minor int64) float64 {
	return float64(minor) / 100
}
