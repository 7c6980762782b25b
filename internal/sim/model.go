package sim

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"log/slog"

	"github.com/reemardelarosa/simulation/internal/fee"
	"github.com/reemardelarosa/simulation/internal/ledger"
	"github.com/reemardelarosa/simulation/internal/market"
	"github.com/reemardelarosa/simulation/internal/stats"
	"github.com/reemardelarosa/simulation/libs/metrics"
)

// Params sizes the population and its endowments.
type Params struct {
	Agents           int
	Seed             int64
	InitialEndowment decimal.Decimal
}

// Model is the step scheduler: it activates agents in a fresh random order
// each step, resolves the books in batch mode, triggers fee distribution on
// period boundaries and collects statistics.
type Model struct {
	ledger      *ledger.Ledger
	market      *market.MarketSet
	mint        *ledger.Mint
	distributor *fee.Distributor
	collector   *stats.Collector
	metrics     *metrics.SimMetrics
	logger      *slog.Logger

	rng    *rand.Rand
	agents []Agent
}

func NewModel(params Params, l *ledger.Ledger, m *market.MarketSet, mint *ledger.Mint,
	distributor *fee.Distributor, collector *stats.Collector,
	simMetrics *metrics.SimMetrics, logger *slog.Logger) *Model {

	if logger == nil {
		logger = slog.Default()
	}
	model := &Model{
		ledger:      l,
		market:      m,
		mint:        mint,
		distributor: distributor,
		collector:   collector,
		metrics:     simMetrics,
		logger:      logger,
		rng:         rand.New(rand.NewSource(params.Seed)),
	}
	model.populate(params)
	return model
}

// populate creates the agent mix: bankers, peg speculators, noise traders
// and arbitrageurs, each with a skewed random reference endowment. Bankers
// additionally receive collateral drawn from the system reserve.
func (m *Model) populate(params Params) {
	count := params.Agents
	if count < 4 {
		count = 4
	}

	for i := 0; i < count; i++ {
		endowment := params.InitialEndowment.Mul(m.skewedScale())

		var agent Agent
		switch {
		case i%10 < 3:
			p := m.newPlayer("banker")
			m.endow(p, ledger.Reference, endowment)
			m.endow(p, ledger.Collateral, endowment.Mul(decimal.NewFromInt(4)))
			agent = NewBanker(p)
		case i%10 < 5:
			p := m.newPlayer("shorter")
			m.endow(p, ledger.Reference, endowment.Mul(decimal.NewFromInt(2)))
			agent = NewStableShorter(p)
		case i%10 < 8:
			p := m.newPlayer("randomizer")
			m.endow(p, ledger.Reference, endowment)
			m.endow(p, ledger.Collateral, endowment)
			agent = NewRandomizer(p)
		default:
			p := m.newPlayer("arbitrageur")
			m.endow(p, ledger.Reference, endowment)
			m.endow(p, ledger.Collateral, endowment)
			agent = NewArbitrageur(p)
		}
		m.agents = append(m.agents, agent)
	}
}

func (m *Model) newPlayer(name string) player {
	account := m.ledger.CreateAccount(name)
	return player{
		id:     account.ID,
		market: m.market,
		ledger: m.ledger,
		mint:   m.mint,
		rng:    m.rng,
		logger: m.logger,
	}
}

func (m *Model) endow(p player, kind ledger.AssetKind, value decimal.Decimal) {
	if err := m.ledger.Endow(p.id, kind, value); err != nil {
		m.logger.Warn("endowment failed", "account", p.id, "asset", kind.String(), "error", err)
	}
}

// skewedScale approximates the original's skew-normal endowment draw: most
// agents near 1×, a thin tail well above it.
func (m *Model) skewedScale() decimal.Decimal {
	return decimal.NewFromFloat(0.5 + math.Abs(m.rng.NormFloat64()))
}

func (m *Model) Agents() []Agent {
	return m.agents
}

// Step advances the model by one step: agents act in a fresh random order,
// outstanding crossed orders resolve, fees distribute on period boundaries,
// statistics collect, and the clock ticks.
func (m *Model) Step(ctx context.Context) stats.Snapshot {
	start := time.Now()
	step := m.market.CurrentStep()

	order := m.rng.Perm(len(m.agents))
	for _, idx := range order {
		m.agents[idx].Step(ctx)
	}

	m.market.ResolveAll(ctx)

	if m.distributor.Due(step) {
		paid := m.distributor.Distribute()
		if m.metrics != nil {
			m.metrics.FeesPaidOut.Add(paid.InexactFloat64())
		}
	}

	snap := m.collector.Collect(step, m.ledger, m.market, m.market.DrainStepTrades())
	m.market.AdvanceStep()

	if m.metrics != nil {
		m.metrics.ObserveStep(time.Since(start))
	}
	return snap
}

// Run executes steps until the count is reached or the context ends.
func (m *Model) Run(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		snap := m.Step(ctx)
		if snap.Step%100 == 0 {
			m.logger.Info("step",
				"step", snap.Step,
				"trades", snap.Trades,
				"stable_price", snap.StablePrice,
				"gini", snap.Gini,
			)
		}
	}
	return nil
}
