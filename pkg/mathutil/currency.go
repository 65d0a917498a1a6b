// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
	"github.com/shopspring/decimal"
)

// Round rounds half away from zero to two decimals, i.e. to represent real
// currency. It uses decimal arithmetic so 1.005 rounds to 1.01 rather than
// falling to 1.00 through binary representation error. Non-finite values are
// returned unchanged.
func Round(val float64) float64 {
	if !IsFinite(val) {
		return val
	}
	f, _ := decimal.NewFromFloat(val).Round(constants.CurrencyPlaces).Float64()
	return f
}

// IsFinite reports whether val is neither NaN nor an infinity.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// AllFinite reports whether every value is finite.
func AllFinite(vals ...float64) bool {
	for _, v := range vals {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}

// IsPositive checks if a value is positive (greater than tolerance)
func IsPositive(val float64) bool {
	return val > constants.CurrencyTolerance
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Min returns the minimum of two float64 values
func Min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of two float64 values
func Max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Clamp limits val to the closed range [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	return Max(lo, Min(hi, val))
}

// Mean returns the arithmetic mean of vals, or 0 for an empty list.
func Mean(vals ...float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}
