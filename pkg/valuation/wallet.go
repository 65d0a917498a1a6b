package valuation

import (
	"github.com/josz5930/CDC-Value-For-You/pkg/denomination"
)

// WalletReport shows how each category's visits would draw down a concrete
// voucher wallet. It is for display only and does not feed Valuate.
type WalletReport struct {
	CategoryA denomination.Simulation `json:"categoryA"`
	CategoryB denomination.Simulation `json:"categoryB"`
	TotalLoss float64                 `json:"totalLoss"`
}

// SimulateWallets pays every visit of category A from walletA and every visit
// of category B from walletB, one purchase event per visit.
func SimulateWallets(p UsageProfile, walletA, walletB []denomination.Unit) WalletReport {
	a := denomination.SimulateRepeated(walletA, p.CategoryA.SpendPerVisit, p.CategoryA.Visits)
	b := denomination.SimulateRepeated(walletB, p.CategoryB.SpendPerVisit, p.CategoryB.Visits)
	return WalletReport{
		CategoryA: a,
		CategoryB: b,
		TotalLoss: a.TotalLoss + b.TotalLoss,
	}
}
