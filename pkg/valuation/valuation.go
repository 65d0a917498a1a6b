// Package valuation estimates what a voucher bundle is worth to a shopper by
// reconciling three methods: willingness to pay, usable value after
// denomination loss, and the spending-habit ceiling.
package valuation

import (
	"errors"
	"fmt"

	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
	"github.com/josz5930/CDC-Value-For-You/pkg/denomination"
	"github.com/josz5930/CDC-Value-For-You/pkg/mathutil"
)

// ErrInvalidInput is returned when a profile holds a NaN or infinite value, or
// when the computation produces one. No partial result accompanies it.
var ErrInvalidInput = errors.New("invalid input")

// Category is a recurring purchase pattern.
type Category struct {
	SpendPerVisit float64 `json:"spendPerVisit" yaml:"spendPerVisit" mapstructure:"spendPerVisit"`
	Visits        int     `json:"visits" yaml:"visits" mapstructure:"visits"`
}

// ProjectedSpend is the spend across all visits.
func (c Category) ProjectedSpend() float64 {
	return c.SpendPerVisit * float64(c.Visits)
}

// UsageProfile describes the vouchers held and how the shopper spends.
// CategoryA models supermarket trips and CategoryB heartland shops.
type UsageProfile struct {
	VoucherTotal float64  `json:"voucherTotal"`
	Denomination float64  `json:"denomination"`
	CategoryA    Category `json:"categoryA"`
	CategoryB    Category `json:"categoryB"`
	WTPPercent   float64  `json:"wtpPercent"`
}

// LossBreakdown details the denomination-loss method.
type LossBreakdown struct {
	CategoryALoss  float64 `json:"categoryALoss"`
	CategoryBLoss  float64 `json:"categoryBLoss"`
	RawLoss        float64 `json:"rawLoss"`
	TotalLoss      float64 `json:"totalLoss"`
	UsableAmount   float64 `json:"usableAmount"`
	ProjectedSpend float64 `json:"projectedSpend"`
}

// Result holds every method's value and their reconciliation.
type Result struct {
	VoucherTotal           float64       `json:"voucherTotal"`
	WTPValue               float64       `json:"wtpValue"`
	DenominationLossValue  float64       `json:"denominationLossValue"`
	IncrementalValue       float64       `json:"incrementalValue"`
	MinValue               float64       `json:"minValue"`
	MaxValue               float64       `json:"maxValue"`
	EfficiencyScorePercent float64       `json:"efficiencyScorePercent"`
	LossBreakdown          LossBreakdown `json:"lossBreakdown"`
}

// Valuate runs the three valuation methods over p and reconciles them.
func Valuate(p UsageProfile) (Result, error) {
	if err := p.checkFinite(); err != nil {
		return Result{}, err
	}

	wtp := WillingnessToPay(p.VoucherTotal, p.WTPPercent)
	breakdown := DenominationLoss(p)
	denomValue := breakdown.UsableAmount - breakdown.TotalLoss
	incremental := IncrementalSpending(p)

	values := []float64{wtp, denomValue, incremental}
	if !mathutil.AllFinite(values...) || !mathutil.AllFinite(breakdown.RawLoss, breakdown.ProjectedSpend) {
		return Result{}, fmt.Errorf("%w: valuation overflowed", ErrInvalidInput)
	}

	result := Result{
		VoucherTotal:          p.VoucherTotal,
		WTPValue:              wtp,
		DenominationLossValue: denomValue,
		IncrementalValue:      incremental,
		MinValue:              mathutil.Min(wtp, mathutil.Min(denomValue, incremental)),
		MaxValue:              mathutil.Max(wtp, mathutil.Max(denomValue, incremental)),
		LossBreakdown:         breakdown,
	}

	// Only the final score is clamped; the method values above are reported as computed.
	if p.VoucherTotal > 0 {
		score := mathutil.CalculatePercentage(mathutil.Mean(values...), p.VoucherTotal)
		result.EfficiencyScorePercent = mathutil.Clamp(score, 0, constants.PercentageMultiplier)
	}

	return result, nil
}

// ComputeValuation is Valuate under the name used by presentation code.
func ComputeValuation(p UsageProfile) (Result, error) {
	return Valuate(p)
}

// WillingnessToPay scales the voucher total by the share the shopper would pay in cash.
func WillingnessToPay(voucherTotal, wtpPercent float64) float64 {
	return mathutil.ApplyPercentage(voucherTotal, wtpPercent)
}

// DenominationLoss applies the single-purchase loss rule to every visit of each
// category. The loss is capped at the usable amount, which is itself capped by
// both the voucher total and the projected spend.
func DenominationLoss(p UsageProfile) LossBreakdown {
	lossA := denomination.Loss(p.CategoryA.SpendPerVisit, p.Denomination) * float64(p.CategoryA.Visits)
	lossB := denomination.Loss(p.CategoryB.SpendPerVisit, p.Denomination) * float64(p.CategoryB.Visits)
	projected := p.ProjectedSpend()
	usable := mathutil.Min(p.VoucherTotal, projected)

	return LossBreakdown{
		CategoryALoss:  lossA,
		CategoryBLoss:  lossB,
		RawLoss:        lossA + lossB,
		TotalLoss:      mathutil.Min(lossA+lossB, usable),
		UsableAmount:   usable,
		ProjectedSpend: projected,
	}
}

// IncrementalSpending is the most the vouchers can be worth given the
// shopper's habits, ignoring denomination friction.
func IncrementalSpending(p UsageProfile) float64 {
	return mathutil.Min(p.VoucherTotal, p.ProjectedSpend())
}

// ProjectedSpend is the combined spend of both categories.
func (p UsageProfile) ProjectedSpend() float64 {
	return p.CategoryA.ProjectedSpend() + p.CategoryB.ProjectedSpend()
}

func (p UsageProfile) checkFinite() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"voucherTotal", p.VoucherTotal},
		{"denomination", p.Denomination},
		{"categoryA.spendPerVisit", p.CategoryA.SpendPerVisit},
		{"categoryB.spendPerVisit", p.CategoryB.SpendPerVisit},
		{"wtpPercent", p.WTPPercent},
	}
	for _, f := range fields {
		if !mathutil.IsFinite(f.value) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidInput, f.name, f.value)
		}
	}
	return nil
}
