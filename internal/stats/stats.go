package stats

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/reemardelarosa/simulation/internal/ledger"
	"github.com/reemardelarosa/simulation/internal/market"
)

// Snapshot is one step's worth of model reporters. Values are float64: these
// feed dashboards, not balances.
type Snapshot struct {
	Step            uint64  `json:"step"`
	Gini            float64 `json:"gini"`
	WealthSD        float64 `json:"wealth_sd"`
	MaxWealth       float64 `json:"max_wealth"`
	MinWealth       float64 `json:"min_wealth"`
	CollateralPrice float64 `json:"collateral_price"`
	StablePrice     float64 `json:"stable_price"`
	StableFeePool   float64 `json:"stable_fee_pool"`
	Trades          int     `json:"trades"`
}

// Wealth values an account's whole position in reference currency: free
// reference, collateral (escrowed included) at market price, and the net
// stable position (holdings minus issuance debt) at market price.
func Wealth(m *market.MarketSet, a *ledger.Account) decimal.Decimal {
	collateral := a.Balance(ledger.Collateral).Add(a.Escrowed())
	netStable := a.Balance(ledger.Stable).Sub(a.Issued())
	return a.Balance(ledger.Reference).
		Add(m.Convert(ledger.Collateral, ledger.Reference, collateral)).
		Add(m.Convert(ledger.Stable, ledger.Reference, netStable))
}

// Collector accumulates one snapshot per step.
type Collector struct {
	series []Snapshot
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Collect(step uint64, l *ledger.Ledger, m *market.MarketSet, trades int) Snapshot {
	accounts := l.Accounts()
	wealths := make([]float64, 0, len(accounts))
	for _, a := range accounts {
		wealths = append(wealths, Wealth(m, a).InexactFloat64())
	}

	snap := Snapshot{
		Step:            step,
		Gini:            gini(wealths),
		WealthSD:        stddev(wealths),
		CollateralPrice: m.LastPrice(market.CollateralReference).InexactFloat64(),
		StablePrice:     m.LastPrice(market.StableReference).InexactFloat64(),
		StableFeePool:   l.FeePool(ledger.Stable).InexactFloat64(),
		Trades:          trades,
	}
	if len(wealths) > 0 {
		sort.Float64s(wealths)
		snap.MinWealth = wealths[0]
		snap.MaxWealth = wealths[len(wealths)-1]
	}

	c.series = append(c.series, snap)
	return snap
}

// Series returns the collected snapshots, oldest first.
func (c *Collector) Series() []Snapshot {
	out := make([]Snapshot, len(c.series))
	copy(out, c.series)
	return out
}

func (c *Collector) Latest() (Snapshot, bool) {
	if len(c.series) == 0 {
		return Snapshot{}, false
	}
	return c.series[len(c.series)-1], true
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

func gini(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)

	total := 0.0
	weighted := 0.0
	for i, x := range sorted {
		total += x
		weighted += x * float64(n-i)
	}
	if total == 0 {
		return 0
	}
	return 1 + 1/float64(n) - 2*weighted/(float64(n)*total)
}
