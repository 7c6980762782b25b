package stats

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/reemardelarosa/simulation/internal/fee"
	"github.com/reemardelarosa/simulation/internal/ledger"
	"github.com/reemardelarosa/simulation/internal/market"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGini(t *testing.T) {
	cases := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"perfect equality", []float64{5, 5, 5, 5}, 0},
		{"one holder of four", []float64{0, 0, 0, 1}, 0.75},
		{"two unequal", []float64{1, 3}, 0.25},
		{"all zero", []float64{0, 0, 0}, 0},
	}
	for _, tc := range cases {
		if got := gini(tc.xs); !almost(got, tc.want) {
			t.Fatalf("%s: gini = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestStddev(t *testing.T) {
	if got := stddev([]float64{1, 3, 5}); !almost(got, 2) {
		t.Fatalf("stddev = %v, want 2", got)
	}
	if got := stddev([]float64{7}); got != 0 {
		t.Fatalf("single-element stddev = %v, want 0", got)
	}
	if got := stddev(nil); got != 0 {
		t.Fatalf("empty stddev = %v, want 0", got)
	}
}

func TestWealthValuesWholePosition(t *testing.T) {
	policy := fee.NewPolicy(decimal.Zero, decimal.Zero, decimal.Zero)
	l := ledger.New(policy, decimal.NewFromInt(1_000_000), nil)
	m := market.New(l, market.Config{})
	mint := ledger.NewMint(l, m, decimal.NewFromInt(1))

	a := l.CreateAccount("a")
	if err := l.Endow(a.ID, ledger.Reference, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("endow: %v", err)
	}
	if err := l.Endow(a.ID, ledger.Collateral, decimal.NewFromInt(80)); err != nil {
		t.Fatalf("endow: %v", err)
	}
	if err := mint.Escrow(a.ID, decimal.NewFromInt(30)); err != nil {
		t.Fatalf("escrow: %v", err)
	}
	if err := mint.Issue(a.ID, decimal.NewFromInt(25)); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := l.Endow(a.ID, ledger.Stable, decimal.NewFromInt(15)); err != nil {
		t.Fatalf("endow: %v", err)
	}

	// At par: 100 reference + 80 collateral + (40 stable - 25 issued) = 195.
	got := Wealth(m, a)
	if !got.Equal(decimal.NewFromInt(195)) {
		t.Fatalf("wealth = %s, want 195", got)
	}
}

func TestCollectorSeries(t *testing.T) {
	policy := fee.NewPolicy(decimal.Zero, decimal.Zero, decimal.Zero)
	l := ledger.New(policy, decimal.NewFromInt(1_000_000), nil)
	m := market.New(l, market.Config{})

	rich := l.CreateAccount("rich")
	poor := l.CreateAccount("poor")
	if err := l.Endow(rich.ID, ledger.Reference, decimal.NewFromInt(300)); err != nil {
		t.Fatalf("endow: %v", err)
	}
	if err := l.Endow(poor.ID, ledger.Reference, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("endow: %v", err)
	}

	c := NewCollector()
	if _, ok := c.Latest(); ok {
		t.Fatalf("empty collector reported a snapshot")
	}

	snap := c.Collect(1, l, m, 3)
	if snap.Step != 1 || snap.Trades != 3 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if !almost(snap.MaxWealth, 300) || !almost(snap.MinWealth, 100) {
		t.Fatalf("wealth bounds = [%v, %v], want [100, 300]", snap.MinWealth, snap.MaxWealth)
	}
	if !almost(snap.StablePrice, 1) || !almost(snap.CollateralPrice, 1) {
		t.Fatalf("prices before any trade = %v / %v, want par", snap.CollateralPrice, snap.StablePrice)
	}

	c.Collect(2, l, m, 0)
	series := c.Series()
	if len(series) != 2 {
		t.Fatalf("series length = %d, want 2", len(series))
	}
	latest, ok := c.Latest()
	if !ok || latest.Step != 2 {
		t.Fatalf("latest = %+v", latest)
	}
}
