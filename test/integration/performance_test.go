package integration

import (
	"strconv"
	"testing"
	"time"

	"github.com/josz5930/CDC-Value-For-You/internal/profile"
	"github.com/josz5930/CDC-Value-For-You/internal/session"
	"github.com/josz5930/CDC-Value-For-You/pkg/denomination"
	"github.com/josz5930/CDC-Value-For-You/pkg/testutil"
	"github.com/josz5930/CDC-Value-For-You/pkg/valuation"
	"go.uber.org/zap"
)

func defaultWallets() *session.Wallets {
	return &session.Wallets{
		Regular:     denomination.CDCRegular(),
		Supermarket: denomination.CDCSupermarket(),
	}
}

// TestPerformance values a spread of profiles and checks it stays interactive.
func TestPerformance(t *testing.T) {
	s := session.New(profile.Defaults(), defaultWallets(), zap.NewNop())

	const runs = 2000
	start := time.Now()
	for i := 0; i < runs; i++ {
		in := profile.Input{
			VoucherAmount:  strconv.Itoa(100 + i%1900),
			HeartlandSpend: strconv.FormatFloat(float64(i%97)+0.5, 'f', 2, 64),
		}
		if out := s.Evaluate(session.Snapshot{Input: in}); out.Err != nil {
			t.Fatalf("run %d: Evaluate() error = %v", i, out.Err)
		}
	}
	elapsed := time.Since(start)

	t.Logf("%d valuations in %v (%v each)", runs, elapsed, elapsed/runs)
	if elapsed > 10*time.Second {
		t.Errorf("valuations took %v, expected well under 10s", elapsed)
	}
}

// TestDataConsistency checks repeated valuation of one profile is deterministic.
func TestDataConsistency(t *testing.T) {
	s := session.New(profile.Defaults(), defaultWallets(), zap.NewNop())

	first := s.Evaluate(session.Snapshot{})
	if first.Err != nil {
		t.Fatalf("Evaluate() error = %v", first.Err)
	}
	for i := 0; i < 50; i++ {
		again := s.Evaluate(session.Snapshot{})
		if again.Result != first.Result {
			t.Fatalf("run %d: result changed from %+v to %+v", i, first.Result, again.Result)
		}
		if !testutil.AlmostEqual(again.Wallets.TotalLoss, first.Wallets.TotalLoss) {
			t.Fatalf("run %d: wallet loss changed from %.2f to %.2f", i, first.Wallets.TotalLoss, again.Wallets.TotalLoss)
		}
	}
}

// TestProfileVariations walks the voucher total and checks the range stays ordered.
func TestProfileVariations(t *testing.T) {
	s := session.New(profile.Defaults(), nil, zap.NewNop())

	for _, amount := range []string{"1", "50", "150", "300", "999.99", "2000"} {
		t.Run(amount, func(t *testing.T) {
			out := s.Evaluate(session.Snapshot{Input: profile.Input{VoucherAmount: amount}})
			if out.Err != nil {
				t.Fatalf("Evaluate() error = %v", out.Err)
			}
			r := out.Result
			if r.MinValue > r.MaxValue {
				t.Errorf("min %.2f exceeds max %.2f", r.MinValue, r.MaxValue)
			}
			if r.MaxValue > r.VoucherTotal+0.01 {
				t.Errorf("max %.2f exceeds voucher total %.2f", r.MaxValue, r.VoucherTotal)
			}
			if r.EfficiencyScorePercent < 0 || r.EfficiencyScorePercent > 100 {
				t.Errorf("efficiency %.2f outside [0, 100]", r.EfficiencyScorePercent)
			}
		})
	}
}

func BenchmarkSpend(b *testing.B) {
	units := denomination.CDCRegular()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		denomination.Spend(87.35, units)
	}
}

func BenchmarkSimulate(b *testing.B) {
	units := denomination.CDCRegular()
	purchases := []float64{12.5, 7, 23.4, 3.1, 18, 40, 9.99}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		denomination.Simulate(units, purchases)
	}
}

func BenchmarkValuate(b *testing.B) {
	p := valuation.UsageProfile{
		VoucherTotal: 300,
		Denomination: 10,
		CategoryA:    valuation.Category{SpendPerVisit: 80, Visits: 4},
		CategoryB:    valuation.Category{SpendPerVisit: 30, Visits: 6},
		WTPPercent:   70,
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := valuation.Valuate(p); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSessionEvaluate(b *testing.B) {
	s := session.New(profile.Defaults(), defaultWallets(), zap.NewNop())
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.Evaluate(session.Snapshot{})
	}
}
