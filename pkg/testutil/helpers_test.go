package testutil

import (
	"testing"

	"github.com/josz5930/CDC-Value-For-You/pkg/denomination"
)

func TestFindConsumption(t *testing.T) {
	consumed := []denomination.Consumption{
		{FaceValue: 10, QuantityUsed: 2, TotalValueUsed: 20},
		{FaceValue: 5, QuantityUsed: 1, TotalValueUsed: 5, Loss: 2},
		{FaceValue: 2, QuantityUsed: 3, TotalValueUsed: 6},
	}

	tests := []struct {
		name         string
		faceValue    float64
		expectFound  bool
		expectedUsed int
	}{
		{
			name:         "Find first entry",
			faceValue:    10,
			expectFound:  true,
			expectedUsed: 2,
		},
		{
			name:         "Find middle entry",
			faceValue:    5,
			expectFound:  true,
			expectedUsed: 1,
		},
		{
			name:         "Find last entry",
			faceValue:    2,
			expectFound:  true,
			expectedUsed: 3,
		},
		{
			name:        "Search for face value never used",
			faceValue:   50,
			expectFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindConsumption(consumed, tt.faceValue)

			if tt.expectFound {
				if result == nil {
					t.Fatalf("Expected to find $%v but got nil", tt.faceValue)
				}
				if result.QuantityUsed != tt.expectedUsed {
					t.Errorf("Expected %d used, got %d", tt.expectedUsed, result.QuantityUsed)
				}
			} else if result != nil {
				t.Errorf("Expected nil for $%v, got %+v", tt.faceValue, *result)
			}
		})
	}
}

func TestFindConsumptionReturnsPointerIntoSlice(t *testing.T) {
	consumed := []denomination.Consumption{{FaceValue: 5, QuantityUsed: 1}}

	result := FindConsumption(consumed, 5)
	if result == nil {
		t.Fatal("Expected to find $5")
	}
	result.QuantityUsed = 4

	if consumed[0].QuantityUsed != 4 {
		t.Errorf("Expected modification through pointer, got %d", consumed[0].QuantityUsed)
	}
}

func TestFindConsumptionEmpty(t *testing.T) {
	if result := FindConsumption(nil, 10); result != nil {
		t.Errorf("Expected nil for nil slice, got %+v", *result)
	}
	if result := FindConsumption([]denomination.Consumption{}, 10); result != nil {
		t.Errorf("Expected nil for empty slice, got %+v", *result)
	}
}

func TestAlmostEqual(t *testing.T) {
	tests := []struct {
		a, b float64
		want bool
	}{
		{210, 210, true},
		{0.1 + 0.2, 0.3, true},
		{100, 100.009, true},
		{100, 100.02, false},
		{-5, 5, false},
	}

	for _, tt := range tests {
		if got := AlmostEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("AlmostEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
