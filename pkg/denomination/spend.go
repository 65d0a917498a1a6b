package denomination

import (
	"sort"

	"github.com/josz5930/CDC-Value-For-You/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Unit is a stack of identical vouchers.
type Unit struct {
	FaceValue float64 `json:"faceValue" yaml:"faceValue" mapstructure:"faceValue"`
	Quantity  int     `json:"quantity" yaml:"quantity" mapstructure:"quantity"`
}

// Consumption records how many vouchers of one face value a purchase used.
type Consumption struct {
	FaceValue      float64 `json:"faceValue"`
	QuantityUsed   int     `json:"quantityUsed"`
	TotalValueUsed float64 `json:"totalValueUsed"`
	Loss           float64 `json:"lossFromThisDenomination"`
}

// Outcome is the result of spending vouchers on one purchase.
// UnitsConsumed is ordered by first use.
type Outcome struct {
	TotalLoss     float64       `json:"totalLoss"`
	UnitsConsumed []Consumption `json:"unitsConsumed"`
	// Uncovered is the part of the purchase left unpaid once the supply ran out.
	Uncovered float64 `json:"uncovered"`
}

// TotalValueUsed sums the face value of every voucher handed over.
func (o Outcome) TotalValueUsed() float64 {
	var total float64
	for _, c := range o.UnitsConsumed {
		total += c.TotalValueUsed
	}
	return total
}

// QuantityUsed returns how many vouchers of faceValue were consumed.
func (o Outcome) QuantityUsed(faceValue float64) int {
	for _, c := range o.UnitsConsumed {
		if c.FaceValue == faceValue {
			return c.QuantityUsed
		}
	}
	return 0
}

type stack struct {
	face     float64
	value    decimal.Decimal
	quantity int
}

// Spend simulates paying purchaseAmount with the given voucher supply, one
// voucher at a time. Each step hands over the smallest voucher that covers the
// remaining amount on its own, or the largest voucher left when none does. The
// loop stops once the purchase is covered or the supply is exhausted.
//
// The caller's units are never modified.
func Spend(purchaseAmount float64, units []Unit) Outcome {
	outcome := Outcome{UnitsConsumed: []Consumption{}}
	if !mathutil.IsFinite(purchaseAmount) || purchaseAmount <= 0 {
		return outcome
	}

	working := prepare(units)
	if len(working) == 0 {
		outcome.Uncovered = purchaseAmount
		return outcome
	}

	remaining := decimal.NewFromFloat(purchaseAmount)
	totalLoss := decimal.Zero
	index := make(map[float64]int)
	var lossByFace []decimal.Decimal

	for remaining.IsPositive() {
		selected := selectUnit(working, remaining)
		if selected == nil {
			break
		}

		selected.quantity--
		loss := decimal.Max(decimal.Zero, selected.value.Sub(remaining))
		totalLoss = totalLoss.Add(loss)
		remaining = decimal.Max(decimal.Zero, remaining.Sub(selected.value))

		i, ok := index[selected.face]
		if !ok {
			i = len(outcome.UnitsConsumed)
			index[selected.face] = i
			outcome.UnitsConsumed = append(outcome.UnitsConsumed, Consumption{FaceValue: selected.face})
			lossByFace = append(lossByFace, decimal.Zero)
		}
		outcome.UnitsConsumed[i].QuantityUsed++
		outcome.UnitsConsumed[i].TotalValueUsed += selected.face
		lossByFace[i] = lossByFace[i].Add(loss)
	}

	for i := range outcome.UnitsConsumed {
		outcome.UnitsConsumed[i].Loss, _ = lossByFace[i].Float64()
	}
	outcome.TotalLoss, _ = totalLoss.Float64()
	outcome.Uncovered, _ = remaining.Float64()
	return outcome
}

// selectUnit scans working (ascending by face value) for the smallest stack
// covering remaining, falling back to the largest stack with supply left.
func selectUnit(working []*stack, remaining decimal.Decimal) *stack {
	for _, s := range working {
		if s.quantity > 0 && s.value.GreaterThanOrEqual(remaining) {
			return s
		}
	}
	for i := len(working) - 1; i >= 0; i-- {
		if working[i].quantity > 0 {
			return working[i]
		}
	}
	return nil
}

// prepare copies the usable stacks, merges repeated face values and sorts
// them ascending. Stacks with no supply or a non-positive face value are dropped.
func prepare(units []Unit) []*stack {
	byFace := make(map[float64]*stack, len(units))
	working := make([]*stack, 0, len(units))
	for _, u := range units {
		if !mathutil.IsFinite(u.FaceValue) || u.FaceValue <= 0 || u.Quantity <= 0 {
			continue
		}
		if s, ok := byFace[u.FaceValue]; ok {
			s.quantity += u.Quantity
			continue
		}
		s := &stack{face: u.FaceValue, value: decimal.NewFromFloat(u.FaceValue), quantity: u.Quantity}
		byFace[u.FaceValue] = s
		working = append(working, s)
	}
	sort.Slice(working, func(i, j int) bool {
		return working[i].face < working[j].face
	})
	return working
}

// CloneUnits returns an independent copy of units.
func CloneUnits(units []Unit) []Unit {
	if units == nil {
		return nil
	}
	out := make([]Unit, len(units))
	copy(out, units)
	return out
}

// TotalFaceValue returns the combined face value of every voucher in units.
func TotalFaceValue(units []Unit) float64 {
	var total float64
	for _, u := range units {
		if u.Quantity > 0 && u.FaceValue > 0 {
			total += u.FaceValue * float64(u.Quantity)
		}
	}
	return total
}
