package validation

import (
	"fmt"
	"sort"

	"github.com/josz5930/CDC-Value-For-You/pkg/denomination"
)

// ValidateWallet returns warnings for voucher stacks the spender will ignore
// or merge. A wallet with warnings is still usable.
func ValidateWallet(name string, units []denomination.Unit) []string {
	var warnings []string

	if len(units) == 0 {
		return []string{fmt.Sprintf("Wallet '%s' has no vouchers", name)}
	}

	seen := make(map[float64]int)
	for i, u := range units {
		switch {
		case !(u.FaceValue > 0):
			warnings = append(warnings, fmt.Sprintf("Wallet '%s' entry %d has non-positive face value %v and will be ignored", name, i+1, u.FaceValue))
			continue
		case u.Quantity <= 0:
			warnings = append(warnings, fmt.Sprintf("Wallet '%s' entry %d ($%v) has no vouchers and will be ignored", name, i+1, u.FaceValue))
			continue
		}
		seen[u.FaceValue]++
	}

	faces := make([]float64, 0, len(seen))
	for face, n := range seen {
		if n > 1 {
			faces = append(faces, face)
		}
	}
	sort.Float64s(faces)
	for _, face := range faces {
		warnings = append(warnings, fmt.Sprintf("Wallet '%s' lists $%v vouchers %d times; quantities will be combined", name, face, seen[face]))
	}

	return warnings
}

// ValidateWallets checks every named wallet in name order.
func ValidateWallets(wallets map[string][]denomination.Unit) []string {
	names := make([]string, 0, len(wallets))
	for name := range wallets {
		names = append(names, name)
	}
	sort.Strings(names)

	var warnings []string
	for _, name := range names {
		warnings = append(warnings, ValidateWallet(name, wallets[name])...)
	}
	return warnings
}
