package denomination

import "github.com/josz5930/CDC-Value-For-You/pkg/mathutil"

// Wallet is a voucher supply drawn down by successive purchases. It is owned by
// the caller and is not safe for concurrent use.
type Wallet struct {
	units []Unit
}

// NewWallet creates a wallet holding a copy of units.
func NewWallet(units []Unit) *Wallet {
	w := &Wallet{}
	for _, s := range prepare(units) {
		w.units = append(w.units, Unit{FaceValue: s.face, Quantity: s.quantity})
	}
	return w
}

// Remaining returns a copy of the vouchers still in the wallet, ascending by face value.
func (w *Wallet) Remaining() []Unit {
	return CloneUnits(w.units)
}

// Total returns the face value still held.
func (w *Wallet) Total() float64 {
	return TotalFaceValue(w.units)
}

// Spend pays amount from the wallet and removes the vouchers handed over.
func (w *Wallet) Spend(amount float64) Outcome {
	outcome := Spend(amount, w.units)
	for _, c := range outcome.UnitsConsumed {
		for i := range w.units {
			if w.units[i].FaceValue == c.FaceValue {
				w.units[i].Quantity -= c.QuantityUsed
				break
			}
		}
	}
	return outcome
}

// Purchase pairs a purchase amount with how it was paid.
type Purchase struct {
	Amount  float64 `json:"amount"`
	Outcome Outcome `json:"outcome"`
}

// Simulation summarizes a sequence of purchases paid from one wallet.
type Simulation struct {
	Purchases      []Purchase    `json:"purchases"`
	UnitsConsumed  []Consumption `json:"unitsConsumed"`
	TotalLoss      float64       `json:"totalLoss"`
	TotalValueUsed float64       `json:"totalValueUsed"`
	Uncovered      float64       `json:"uncovered"`
	Remaining      []Unit        `json:"remaining"`
}

// Simulate pays each purchase in order from a fresh wallet built from units.
func Simulate(units []Unit, purchases []float64) Simulation {
	wallet := NewWallet(units)
	sim := newSimulation(len(purchases))
	for _, amount := range purchases {
		sim.record(amount, wallet.Spend(amount))
	}
	sim.Remaining = wallet.Remaining()
	return sim
}

// SimulateRepeated pays amount count times from a fresh wallet built from
// units. Once the wallet is empty the remaining purchases are added to
// Uncovered without being listed in Purchases.
func SimulateRepeated(units []Unit, amount float64, count int) Simulation {
	wallet := NewWallet(units)
	sim := newSimulation(0)
	if !mathutil.IsFinite(amount) || amount <= 0 {
		sim.Remaining = wallet.Remaining()
		return sim
	}

	for i := 0; i < count; i++ {
		if wallet.Total() <= 0 {
			sim.Uncovered += amount * float64(count-i)
			break
		}
		sim.record(amount, wallet.Spend(amount))
	}
	sim.Remaining = wallet.Remaining()
	return sim
}

func newSimulation(capacity int) Simulation {
	return Simulation{
		Purchases:     make([]Purchase, 0, capacity),
		UnitsConsumed: []Consumption{},
	}
}

// record adds one paid purchase to the running totals.
func (sim *Simulation) record(amount float64, outcome Outcome) {
	sim.Purchases = append(sim.Purchases, Purchase{Amount: amount, Outcome: outcome})
	sim.TotalLoss += outcome.TotalLoss
	sim.Uncovered += outcome.Uncovered

	for _, c := range outcome.UnitsConsumed {
		sim.TotalValueUsed += c.TotalValueUsed
		i := sim.consumptionIndex(c.FaceValue)
		if i < 0 {
			sim.UnitsConsumed = append(sim.UnitsConsumed, c)
			continue
		}
		sim.UnitsConsumed[i].QuantityUsed += c.QuantityUsed
		sim.UnitsConsumed[i].TotalValueUsed += c.TotalValueUsed
		sim.UnitsConsumed[i].Loss += c.Loss
	}
}

func (sim *Simulation) consumptionIndex(faceValue float64) int {
	for i, c := range sim.UnitsConsumed {
		if c.FaceValue == faceValue {
			return i
		}
	}
	return -1
}

// CDCRegular returns the $150 of regular vouchers issued per household:
// fifteen $2, twelve $5 and six $10.
func CDCRegular() []Unit {
	return []Unit{
		{FaceValue: 2, Quantity: 15},
		{FaceValue: 5, Quantity: 12},
		{FaceValue: 10, Quantity: 6},
	}
}

// CDCSupermarket returns the $150 of supermarket vouchers issued per household.
func CDCSupermarket() []Unit {
	return []Unit{
		{FaceValue: 10, Quantity: 15},
	}
}

// Preset looks up a named voucher supply.
func Preset(name string) ([]Unit, bool) {
	switch name {
	case PresetRegular:
		return CDCRegular(), true
	case PresetSupermarket:
		return CDCSupermarket(), true
	}
	return nil, false
}

// Preset names accepted by Preset.
const (
	PresetRegular     = "regular"
	PresetSupermarket = "supermarket"
)
