// Package denomination computes the value lost when vouchers that give no change
// are spent on purchases that do not match their face value.
package denomination

import (
	"github.com/josz5930/CDC-Value-For-You/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Loss returns the value wasted by a single purchase of spendAmount paid with
// vouchers of one denomination. A purchase that is an exact multiple of the
// denomination loses nothing; otherwise the unused part of the last voucher is lost.
// Non-positive or non-finite inputs describe no transaction and lose nothing.
func Loss(spendAmount, denomination float64) float64 {
	if !mathutil.AllFinite(spendAmount, denomination) || spendAmount <= 0 || denomination <= 0 {
		return 0
	}

	d := decimal.NewFromFloat(denomination)
	remainder := decimal.NewFromFloat(spendAmount).Mod(d)
	if remainder.IsZero() {
		return 0
	}

	loss, _ := d.Sub(remainder).Float64()
	return loss
}

// ComputeDenominationLoss is Loss under the name used by presentation code.
func ComputeDenominationLoss(purchaseAmount, denominationFaceValue float64) float64 {
	return Loss(purchaseAmount, denominationFaceValue)
}
