package denomination

import (
	"math"
	"testing"
)

func TestLoss(t *testing.T) {
	tests := []struct {
		name         string
		spend        float64
		denomination float64
		expected     float64
	}{
		{"Under one voucher", 8, 10, 2},
		{"Exact multiple", 80, 10, 0},
		{"Exact single voucher", 10, 10, 0},
		{"Partial last voucher", 25, 10, 5},
		{"Heartland spend", 7, 10, 3},
		{"Fractional denomination remainder", 12.5, 5, 2.5},
		{"Decimal exact multiple", 7.3, 0.1, 0},
		{"Cents remainder", 9.99, 2, 0.01},
		{"Zero spend", 0, 10, 0},
		{"Negative spend", -5, 10, 0},
		{"Zero denomination", 5, 0, 0},
		{"Negative denomination", 5, -2, 0},
		{"NaN spend", math.NaN(), 10, 0},
		{"Infinite denomination", 5, math.Inf(1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Loss(tt.spend, tt.denomination)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("Loss(%v, %v) = %v, expected %v", tt.spend, tt.denomination, result, tt.expected)
			}
		})
	}
}

func TestComputeDenominationLossMatchesLoss(t *testing.T) {
	if ComputeDenominationLoss(8, 10) != Loss(8, 10) {
		t.Errorf("ComputeDenominationLoss should delegate to Loss")
	}
}
