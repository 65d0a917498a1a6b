// Package format renders currency and percentage values for display.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
	"github.com/josz5930/CDC-Value-For-You/pkg/mathutil"
)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
// NaN and infinities render as "Invalid".
func Currency(amount float64) string {
	if !mathutil.IsFinite(amount) {
		return constants.InvalidDisplay
	}
	formatted := formatPositiveCurrency(math.Abs(amount))
	if amount < 0 && formatted != "0.00" {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Percent renders a score with one decimal place, clamped to [0, 100].
func Percent(score float64) string {
	if !mathutil.IsFinite(score) {
		return constants.InvalidDisplay
	}
	return fmt.Sprintf("%.1f%%", mathutil.Clamp(score, 0, constants.PercentageMultiplier))
}

func formatPositiveCurrency(value float64) string {
	formatted := fmt.Sprintf("%.2f", value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
