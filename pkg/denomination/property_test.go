package denomination

import (
	"testing"

	"pgregory.net/rapid"
)

const epsilon = 1e-9

func drawUnits(t *rapid.T) []Unit {
	faces := rapid.SliceOfNDistinct(rapid.IntRange(1, 50), 1, 5, rapid.ID[int]).Draw(t, "faces")
	units := make([]Unit, len(faces))
	for i, face := range faces {
		units[i] = Unit{
			FaceValue: float64(face),
			Quantity:  rapid.IntRange(0, 20).Draw(t, "quantity"),
		}
	}
	return units
}

func drawAmount(t *rapid.T) float64 {
	return float64(rapid.IntRange(1, 50000).Draw(t, "cents")) / 100
}

func TestProperty_SpendIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		units := drawUnits(t)
		amount := drawAmount(t)

		first := Spend(amount, CloneUnits(units))
		second := Spend(amount, CloneUnits(units))

		if first.TotalLoss != second.TotalLoss || len(first.UnitsConsumed) != len(second.UnitsConsumed) {
			t.Fatalf("outcomes differ: %+v vs %+v", first, second)
		}
		for i := range first.UnitsConsumed {
			if first.UnitsConsumed[i] != second.UnitsConsumed[i] {
				t.Fatalf("consumption %d differs: %+v vs %+v", i, first.UnitsConsumed[i], second.UnitsConsumed[i])
			}
		}
	})
}

func TestProperty_SpendConservesSupply(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		units := drawUnits(t)
		outcome := Spend(drawAmount(t), units)

		for _, c := range outcome.UnitsConsumed {
			var initial int
			for _, u := range units {
				if u.FaceValue == c.FaceValue {
					initial += u.Quantity
				}
			}
			if c.QuantityUsed > initial {
				t.Fatalf("used %d of $%v but only %d supplied", c.QuantityUsed, c.FaceValue, initial)
			}
		}
	})
}

func TestProperty_LossIsBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		outcome := Spend(drawAmount(t), drawUnits(t))

		if outcome.TotalLoss < 0 {
			t.Fatalf("negative loss %v", outcome.TotalLoss)
		}
		if outcome.TotalLoss > outcome.TotalValueUsed()+epsilon {
			t.Fatalf("loss %v exceeds value used %v", outcome.TotalLoss, outcome.TotalValueUsed())
		}
	})
}

func TestProperty_ExactFitLosesNothing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		face := rapid.IntRange(1, 100).Draw(t, "face")
		count := rapid.IntRange(1, 30).Draw(t, "count")
		spare := rapid.IntRange(0, 10).Draw(t, "spare")

		outcome := Spend(float64(face*count), []Unit{{FaceValue: float64(face), Quantity: count + spare}})

		if outcome.TotalLoss != 0 {
			t.Fatalf("exact multiple %d x $%d lost %v", count, face, outcome.TotalLoss)
		}
		if outcome.QuantityUsed(float64(face)) != count {
			t.Fatalf("expected %d vouchers, used %d", count, outcome.QuantityUsed(float64(face)))
		}
	})
}

func TestProperty_WalletNeverOverdraws(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		units := drawUnits(t)
		purchases := rapid.SliceOfN(rapid.Float64Range(0.01, 200), 0, 20).Draw(t, "purchases")

		sim := Simulate(units, purchases)

		if sim.TotalValueUsed > TotalFaceValue(units)+epsilon {
			t.Fatalf("spent %v from a wallet of %v", sim.TotalValueUsed, TotalFaceValue(units))
		}
		for _, u := range sim.Remaining {
			if u.Quantity < 0 {
				t.Fatalf("negative remaining quantity for $%v", u.FaceValue)
			}
		}
	})
}
