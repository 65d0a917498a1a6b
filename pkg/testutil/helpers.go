// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
	"github.com/josz5930/CDC-Value-For-You/pkg/denomination"
	"github.com/josz5930/CDC-Value-For-You/pkg/mathutil"
)

// FindConsumption finds the consumption entry for a face value.
// Returns a pointer to the entry if found, nil otherwise.
func FindConsumption(consumed []denomination.Consumption, faceValue float64) *denomination.Consumption {
	for i := range consumed {
		if consumed[i].FaceValue == faceValue {
			return &consumed[i]
		}
	}
	return nil
}

// AlmostEqual reports whether two currency amounts agree to within a cent.
func AlmostEqual(a, b float64) bool {
	return mathutil.WithinTolerance(a, b, constants.CurrencyTolerance)
}
